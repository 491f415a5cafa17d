package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Code: ErrNotFound, Message: "WorkflowRun '20250620abcd6789' not found"}
	want := "NOT_FOUND: WorkflowRun '20250620abcd6789' not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("Pipeline", "pl_abc")
	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Message != "Pipeline 'pl_abc' not found" {
		t.Errorf("Message = %q, want %q", err.Message, "Pipeline 'pl_abc' not found")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("Invalid request",
		FieldError{Field: "portalRunId", Message: "required"},
		FieldError{Field: "payload", Message: "required"},
	)
	if err.Code != ErrValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
	}
	if len(err.Details) != 2 {
		t.Errorf("Details length = %d, want 2", len(err.Details))
	}
}

func TestNewUnavailableError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUnavailableError("get parameter", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if got := err.Error(); got != "UNAVAILABLE: get parameter: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{
		Entity: "WorkflowRun",
		ID:     "20250620abcd6789",
		From:   "SUCCEEDED",
		To:     "RUNNING",
	}
	want := "invalid WorkflowRun state transition: SUCCEEDED → RUNNING (entity 20250620abcd6789)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"validation", NewValidationError("bad"), ErrValidation},
		{"wrapped not found", fmt.Errorf("lookup: %w", NewNotFoundError("Data", "x")), ErrNotFound},
		{"unavailable", NewUnavailableError("op", errors.New("boom")), ErrUnavailable},
		{"transition", &InvalidTransitionError{From: "RUNNING", To: "DRAFT"}, ErrConflict},
		{"plain", errors.New("boom"), ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.code {
				t.Errorf("CodeOf() = %q, want %q", got, tt.code)
			}
			if got := AsAPIError(tt.err).Code; got != tt.code {
				t.Errorf("AsAPIError().Code = %q, want %q", got, tt.code)
			}
		})
	}

	if !IsValidation(NewValidationError("x")) || IsValidation(NewNotFoundError("a", "b")) {
		t.Error("IsValidation misclassified")
	}
	if !IsNotFound(NewNotFoundError("a", "b")) {
		t.Error("IsNotFound misclassified")
	}
	if !IsUnavailable(NewUnavailableError("op", nil)) {
		t.Error("IsUnavailable misclassified")
	}
}
