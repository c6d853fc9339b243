package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceMachine_LegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		trigger Trigger
		want    State
	}{
		{"resubmission keeps invoice pending", StatePending, TriggerResubmit, StatePending},
		{"resubmission reopens rejected invoice", StateRejected, TriggerResubmit, StatePending},
		{"approval moves pending to approved", StatePending, TriggerApprove, StateApproved},
		{"rejection moves pending to rejected", StatePending, TriggerReject, StateRejected},
		{"emission moves pending to processing", StatePending, TriggerEmit, StateProcessing},
		{"confirmation moves processing to issued", StateProcessing, TriggerConfirmIssue, StateIssued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewInvoiceMachine(tt.from)
			require.NoError(t, err)
			require.True(t, m.CanFire(tt.trigger))
			require.NoError(t, m.Fire(tt.trigger))
			assert.Equal(t, tt.want, m.State())
		})
	}
}

func TestInvoiceMachine_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		trigger Trigger
	}{
		{"cannot approve issued", StateIssued, TriggerApprove},
		{"cannot approve processing", StateProcessing, TriggerApprove},
		{"cannot approve rejected", StateRejected, TriggerApprove},
		{"cannot reject issued", StateIssued, TriggerReject},
		{"cannot reject processing", StateProcessing, TriggerReject},
		{"cannot reject rejected", StateRejected, TriggerReject},
		{"cannot emit processing", StateProcessing, TriggerEmit},
		{"cannot emit approved", StateApproved, TriggerEmit},
		{"cannot confirm pending", StatePending, TriggerConfirmIssue},
		{"cannot resubmit issued", StateIssued, TriggerResubmit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewInvoiceMachine(tt.from)
			require.NoError(t, err)
			assert.False(t, m.CanFire(tt.trigger))

			err = m.Fire(tt.trigger)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, m.State(), "failed fire must leave state unchanged")
		})
	}
}

func TestInvoiceMachine_InvalidState(t *testing.T) {
	_, err := NewInvoiceMachine(State(3))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestState_Properties(t *testing.T) {
	assert.True(t, StateIssued.IsTerminal())
	assert.True(t, StateRejected.IsTerminal())
	assert.False(t, StatePending.IsTerminal())
	assert.False(t, StateProcessing.IsTerminal())

	assert.Equal(t, "PENDENTE", StatePending.String())
	assert.Equal(t, "3", State(3).String())
	assert.False(t, State(3).IsValid())
}
