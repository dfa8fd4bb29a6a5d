package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketState_Transitions(t *testing.T) {
	assert.True(t, TicketWaiting.CanTransitionTo(TicketServing))
	assert.True(t, TicketWaiting.CanTransitionTo(TicketFinished))
	assert.True(t, TicketServing.CanTransitionTo(TicketFinished))

	assert.False(t, TicketServing.CanTransitionTo(TicketServing))
	assert.False(t, TicketServing.CanTransitionTo(TicketWaiting))
	assert.False(t, TicketFinished.CanTransitionTo(TicketServing))
	assert.False(t, TicketFinished.CanTransitionTo(TicketFinished))

	assert.True(t, TicketWaiting.Active())
	assert.True(t, TicketServing.Active())
	assert.False(t, TicketFinished.Active())

	assert.True(t, TicketFinished.Valid())
	assert.False(t, TicketState("espera").Valid())
}
