package model

// Icav2WesStateChange is the execution service's WES analysis state change
// event. Only the fields the handlers read are typed; the rest pass through.
type Icav2WesStateChange struct {
	ID                      string         `json:"id"`
	Name                    string         `json:"name"`
	Status                  string         `json:"status"`
	Inputs                  map[string]any `json:"inputs"`
	EngineParameters        map[string]any `json:"engineParameters"`
	Tags                    map[string]any `json:"tags"`
	SubmissionTime          string         `json:"submissionTime,omitempty"`
	StartTime               string         `json:"startTime,omitempty"`
	EndTime                 string         `json:"endTime,omitempty"`
	StepsLaunchExecutionArn string         `json:"stepsLaunchExecutionArn,omitempty"`
	Icav2AnalysisID         string         `json:"icav2AnalysisId,omitempty"`
}

// PortalRunID returns the portalRunId tag.
func (e *Icav2WesStateChange) PortalRunID() string {
	s, _ := e.Tags["portalRunId"].(string)
	return s
}

// Validate checks the fields needed for normalization.
func (e *Icav2WesStateChange) Validate() error {
	var details []FieldError
	if e.PortalRunID() == "" {
		details = append(details, FieldError{Field: "tags.portalRunId", Message: "required"})
	}
	if e.Status == "" {
		details = append(details, FieldError{Field: "status", Message: "required"})
	} else if !WorkflowStatus(e.Status).IsValid() {
		details = append(details, FieldError{Field: "status", Message: "unknown status " + e.Status})
	}
	if len(details) > 0 {
		return NewValidationError("invalid ICAv2 WES state change event", details...)
	}
	return nil
}
