package mispricing

import "errors"

// ErrInsufficientHistory is returned by detector helpers that need at least
// min_observation_window samples to produce a defensible signal (§7).
var ErrInsufficientHistory = errors.New("mispricing: insufficient history")
