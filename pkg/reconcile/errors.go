package reconcile

import "fmt"

const (
	StepBootstrap = "bootstrap"
	StepInvite    = "invite"
	StepList      = "list_invites"
)

// ReconciliationPartialFailure is a non-fatal failure of one reconciliation
// item. Reconcile collects these instead of returning them.
type ReconciliationPartialFailure struct {
	Step   string
	ItemID string
	Err    error
}

func (e *ReconciliationPartialFailure) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("%s %s failed: %v", e.Step, e.ItemID, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *ReconciliationPartialFailure) Unwrap() error {
	return e.Err
}
