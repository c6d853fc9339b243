package workflow

// Trigger represents an event that can cause an invoice state transition.
type Trigger string

const (
	TriggerResubmit     Trigger = "RESUBMIT"
	TriggerApprove      Trigger = "APPROVE"
	TriggerReject       Trigger = "REJECT"
	TriggerEmit         Trigger = "EMIT"
	TriggerConfirmIssue Trigger = "CONFIRM_ISSUE"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
