package model

import (
	"fmt"
	"regexp"
	"time"
)

// TimestampLayout is the canonical event timestamp format: UTC, second
// precision, Z suffix.
const TimestampLayout = "2006-01-02T15:04:05Z"

var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)

// WorkflowRunStateChange is the platform's canonical workflow event.
type WorkflowRunStateChange struct {
	Status          WorkflowStatus `json:"status"`
	Timestamp       string         `json:"timestamp"`
	PortalRunID     string         `json:"portalRunId"`
	Workflow        Workflow       `json:"workflow"`
	WorkflowRunName string         `json:"workflowRunName"`
	Libraries       []Library      `json:"libraries"`
	Payload         Payload        `json:"payload"`
}

// FormatTimestamp renders t in the canonical event format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampLayout)
}

// Validate checks the event's structure.
func (e *WorkflowRunStateChange) Validate() error {
	var details []FieldError

	if !e.Status.IsValid() {
		details = append(details, FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", e.Status)})
	}
	if _, err := time.Parse(TimestampLayout, e.Timestamp); err != nil || !timestampPattern.MatchString(e.Timestamp) {
		details = append(details, FieldError{Field: "timestamp", Message: "must be UTC with second precision and a Z suffix"})
	}
	if !ValidPortalRunID(e.PortalRunID) {
		details = append(details, FieldError{Field: "portalRunId", Message: "must be YYYYMMDD followed by 8 lowercase hex characters"})
	}
	if e.Workflow.Name == "" {
		details = append(details, FieldError{Field: "workflow.name", Message: "required"})
	}
	if e.Workflow.Version == "" {
		details = append(details, FieldError{Field: "workflow.version", Message: "required"})
	}
	if e.WorkflowRunName == "" {
		details = append(details, FieldError{Field: "workflowRunName", Message: "required"})
	}

	seen := make(map[string]bool, len(e.Libraries))
	for i, lib := range e.Libraries {
		field := fmt.Sprintf("libraries[%d].libraryId", i)
		if lib.LibraryID == "" {
			details = append(details, FieldError{Field: field, Message: "required"})
			continue
		}
		if seen[lib.LibraryID] {
			details = append(details, FieldError{Field: field, Message: fmt.Sprintf("duplicate library %q", lib.LibraryID)})
		}
		seen[lib.LibraryID] = true
	}

	if e.Status != StatusSucceeded {
		if _, ok := e.Payload.Data[DataKeyOutputs]; ok {
			details = append(details, FieldError{Field: "payload.data.outputs", Message: "only allowed once the run has succeeded"})
		}
	}

	if len(details) > 0 {
		return NewValidationError("invalid workflow run state change event", details...)
	}
	return nil
}
