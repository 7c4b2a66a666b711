package pricing

import "errors"

// Sentinel errors for the kinds enumerated in §7 that originate in this
// package. Wrapped with fmt.Errorf("...: %w", ...) at call sites so
// errors.Is/errors.As still match through model-specific context.
var (
	// ErrModelDomain covers domain violations such as negative
	// time-to-maturity or non-positive volatility.
	ErrModelDomain = errors.New("pricing: model domain error")
	// ErrInsufficientHistory is returned when a model cannot price because
	// its rolling history is shorter than the configured window.
	ErrInsufficientHistory = errors.New("pricing: insufficient history")
	// ErrUnknownInstrument is returned when a referenced instrument is
	// absent from the snapshot.
	ErrUnknownInstrument = errors.New("pricing: unknown instrument")

	errMismatchedSeries    = errors.New("pricing: mismatched series lengths")
	errInsufficientSamples = errors.New("pricing: fewer than two samples")
)
