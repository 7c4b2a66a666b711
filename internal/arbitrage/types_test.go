package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionAllowsSpecMachine(t *testing.T) {
	assert.True(t, CanTransition(StatusIdentified, StatusValidated))
	assert.True(t, CanTransition(StatusIdentified, StatusFailed))
	assert.True(t, CanTransition(StatusIdentified, StatusExpired))
	assert.True(t, CanTransition(StatusValidated, StatusExecuting))
	assert.True(t, CanTransition(StatusExecuting, StatusCompleted))
}

func TestCanTransitionRejectsBackwardsMoves(t *testing.T) {
	assert.False(t, CanTransition(StatusValidated, StatusIdentified))
	assert.False(t, CanTransition(StatusCompleted, StatusExecuting))
	assert.False(t, CanTransition(StatusFailed, StatusValidated))
	assert.False(t, CanTransition(StatusExpired, StatusIdentified))
}

func TestWithStatusRejectsIllegalTransition(t *testing.T) {
	opp := Opportunity{Status: StatusCompleted}
	_, err := opp.WithStatus(StatusValidated)
	assert.Error(t, err)
	var transErr *InvalidTransitionError
	assert.ErrorAs(t, err, &transErr)
}

func TestWithStatusAppliesLegalTransition(t *testing.T) {
	opp := Opportunity{Status: StatusIdentified}
	next, err := opp.WithStatus(StatusValidated)
	assert.NoError(t, err)
	assert.Equal(t, StatusValidated, next.Status)
	assert.False(t, next.ValidatedTime.IsZero())
}

func TestLegNotional(t *testing.T) {
	leg := Leg{Weight: -1, EntryPrice: 100, Size: 2}
	assert.Equal(t, -200.0, leg.Notional())
}
