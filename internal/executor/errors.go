package executor

import "fmt"

// ProvisioningFailedError reports that a node's handler returned an error.
// Skipped dependents are a symptom of the same failure and do not get their
// own entry in the run's aggregate error.
type ProvisioningFailedError struct {
	NodeID string
	Cause  error
}

func (e *ProvisioningFailedError) Error() string {
	return fmt.Sprintf("provisioning %s failed: %v", e.NodeID, e.Cause)
}

func (e *ProvisioningFailedError) Unwrap() error {
	return e.Cause
}
