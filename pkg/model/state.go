package model

import "fmt"

// WorkflowStatus represents the lifecycle status of a workflow run.
type WorkflowStatus string

const (
	StatusDraft     WorkflowStatus = "DRAFT"
	StatusReady     WorkflowStatus = "READY"
	StatusSubmitted WorkflowStatus = "SUBMITTED"
	StatusRunning   WorkflowStatus = "RUNNING"
	StatusSucceeded WorkflowStatus = "SUCCEEDED"
	StatusFailed    WorkflowStatus = "FAILED"
	StatusAborted   WorkflowStatus = "ABORTED"
)

// statusRank orders statuses along the run lifecycle. Terminal statuses
// share the highest rank.
var statusRank = map[WorkflowStatus]int{
	StatusDraft:     0,
	StatusReady:     1,
	StatusSubmitted: 2,
	StatusRunning:   3,
	StatusSucceeded: 4,
	StatusFailed:    4,
	StatusAborted:   4,
}

// ParseStatus converts s into a WorkflowStatus, rejecting unknown values.
func ParseStatus(s string) (WorkflowStatus, error) {
	st := WorkflowStatus(s)
	if _, ok := statusRank[st]; !ok {
		return "", NewValidationError(fmt.Sprintf("unknown workflow status %q", s),
			FieldError{Field: "status", Message: "must be one of DRAFT, READY, SUBMITTED, RUNNING, SUCCEEDED, FAILED, ABORTED"})
	}
	return st, nil
}

// String returns the string representation of the status.
func (s WorkflowStatus) String() string {
	return string(s)
}

// IsValid returns true if s is a known status.
func (s WorkflowStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal returns true if the run is in a final state.
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusAborted:
		return true
	}
	return false
}

// CanTransitionTo returns true if moving from the current status to next
// keeps the lifecycle monotonic. Re-delivery of the same status is allowed;
// a terminal status never changes.
func (s WorkflowStatus) CanTransitionTo(next WorkflowStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	return statusRank[next] > statusRank[s]
}
