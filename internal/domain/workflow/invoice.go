package workflow

// invoiceBuilder holds the invoice lifecycle transition table:
//
//	Pending    --RESUBMIT-->      Pending
//	Rejected   --RESUBMIT-->      Pending
//	Pending    --APPROVE-->       Approved
//	Pending    --REJECT-->        Rejected
//	Pending    --EMIT-->          Processing
//	Processing --CONFIRM_ISSUE--> Issued
//
// Issued and Rejected are terminal for the automated flow; resubmission of a
// rejected invoice is a manual action that restarts the lifecycle.
var invoiceBuilder = NewBuilder().
	Permit(StatePending, TriggerResubmit, StatePending).
	Permit(StateRejected, TriggerResubmit, StatePending).
	Permit(StatePending, TriggerApprove, StateApproved).
	Permit(StatePending, TriggerReject, StateRejected).
	Permit(StatePending, TriggerEmit, StateProcessing).
	Permit(StateProcessing, TriggerConfirmIssue, StateIssued)

// NewInvoiceMachine creates a machine for an invoice currently in the given
// state. Role and ownership guards are enforced by the caller; the machine
// only answers whether the transition itself is legal.
func NewInvoiceMachine(current State) (*Machine, error) {
	return invoiceBuilder.Build(current)
}
