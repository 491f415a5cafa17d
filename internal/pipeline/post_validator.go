package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/logging"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/metrics"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// EngineParameters are the execution coordinates of a draft run.
type EngineParameters struct {
	ProjectID  string
	PipelineID string
	OutputURI  string
	LogsURI    string
	CacheURI   string
}

// engineParametersFrom reads the engine parameters from payload data.
func engineParametersFrom(data map[string]any) (EngineParameters, error) {
	ep := mapField(data, model.DataKeyEngineParameters)
	if ep == nil {
		return EngineParameters{}, model.NewValidationError("engine parameters are required",
			model.FieldError{Field: "data.engineParameters", Message: "required"})
	}
	params := EngineParameters{
		ProjectID:  stringField(ep, "projectId"),
		PipelineID: stringField(ep, "pipelineId"),
		OutputURI:  stringField(ep, "outputUri"),
		LogsURI:    stringField(ep, "logsUri"),
		CacheURI:   stringField(ep, "cacheUri"),
	}
	if params.ProjectID == "" {
		return params, model.NewValidationError("engine parameters are incomplete",
			model.FieldError{Field: "data.engineParameters.projectId", Message: "required"})
	}
	return params, nil
}

// uris returns the storage locations in check order.
func (p EngineParameters) uris() []struct{ name, uri string } {
	return []struct{ name, uri string }{
		{"outputUri", p.OutputURI},
		{"logsUri", p.LogsURI},
		{"cacheUri", p.CacheURI},
	}
}

// PostValidator checks that a schema-valid draft can run in its execution
// project: storage locations, pipeline and input data.
type PostValidator struct {
	store      DraftStore
	comments   Commenter
	executions ExecutionService
	testBucket string
	author     string
	logger     *slog.Logger
}

// NewPostValidator creates a PostValidator. Input URIs under
// s3://<testBucket>/ are never looked up.
func NewPostValidator(store DraftStore, comments Commenter, executions ExecutionService, testBucket, author string, logger *slog.Logger) *PostValidator {
	return &PostValidator{
		store:      store,
		comments:   comments,
		executions: executions,
		testBucket: testBucket,
		author:     author,
		logger:     logging.OrDiscard(logger).With("component", "post-validator"),
	}
}

// Validate runs the checks in order and stops at the first failure, which
// is posted as a comment on the workflow run. Malformed or incomplete data
// fails the same way. Only lookup failures from the store and the execution
// service are returned as errors.
func (v *PostValidator) Validate(ctx context.Context, req *ValidationRequest) (model.ValidationResult, error) {
	if req == nil {
		return model.ValidationResult{}, model.NewValidationError("validation request is required")
	}
	if req.WorkflowRunID == "" {
		return model.ValidationResult{}, model.NewValidationError("workflowRunId is required",
			model.FieldError{Field: "workflowRunId", Message: "required"})
	}

	reason, err := v.check(ctx, req)
	if err != nil {
		if !model.IsValidation(err) {
			return model.ValidationResult{}, err
		}
		reason = validationReason(err)
	}

	if reason == "" {
		metrics.IncValidation("post_schema", true)
		return model.ValidationResult{IsValid: true}, nil
	}

	metrics.IncValidation("post_schema", false)
	v.logger.Info("post schema validation failed", "workflow_run_id", req.WorkflowRunID, "reason", reason)
	if err := v.comments.AddComment(ctx, req.WorkflowRunID, "Post schema validation failed: "+reason, v.author); err != nil {
		return model.ValidationResult{}, fmt.Errorf("comment on %s: %w", req.WorkflowRunID, err)
	}
	metrics.IncComment(v.author)
	return model.ValidationResult{IsValid: false}, nil
}

// check returns the first failure reason, or "" when the draft can run.
func (v *PostValidator) check(ctx context.Context, req *ValidationRequest) (string, error) {
	params, err := engineParametersFrom(req.Data)
	if err != nil {
		return "", err
	}

	prefix, err := v.executions.ProjectStoragePrefix(ctx, params.ProjectID)
	if err != nil {
		return "", fmt.Errorf("resolve storage prefix of project %s: %w", params.ProjectID, err)
	}

	reason, err := v.checkEngineParameters(ctx, params, req.WorkflowRunID, prefix)
	if err != nil || reason != "" {
		return reason, err
	}
	return v.checkInputs(ctx, mapField(req.Data, model.DataKeyInputs), params.ProjectID, prefix)
}

// validationReason renders a validation error as a comment reason.
func validationReason(err error) string {
	apiErr := model.AsAPIError(err)
	reason := apiErr.Message
	for _, d := range apiErr.Details {
		field := d.Field
		if field == "" {
			field = d.Path
		}
		reason += fmt.Sprintf(" (%s: %s)", field, d.Message)
	}
	return reason
}

// checkEngineParameters returns the reason the parameters are invalid, or
// "" when they pass.
func (v *PostValidator) checkEngineParameters(ctx context.Context, params EngineParameters, workflowRunID, prefix string) (string, error) {
	for _, u := range params.uris() {
		if !strings.HasPrefix(u.uri, prefix) {
			return fmt.Sprintf("%s '%s' is not in the project context '%s'", u.name, u.uri, prefix), nil
		}
	}

	if params.PipelineID == "" {
		return fmt.Sprintf("The pipeline '' cannot be found in the project %s", params.ProjectID), nil
	}
	if _, err := v.executions.GetProjectPipeline(ctx, params.ProjectID, params.PipelineID); err != nil {
		if model.IsNotFound(err) {
			return fmt.Sprintf("The pipeline %s cannot be found in the project %s", params.PipelineID, params.ProjectID), nil
		}
		return "", fmt.Errorf("get pipeline %s: %w", params.PipelineID, err)
	}

	run, err := v.store.GetWorkflowRun(ctx, workflowRunID)
	if err != nil {
		return "", fmt.Errorf("get workflow run %s: %w", workflowRunID, err)
	}
	suffix := "/" + run.PortalRunID + "/"
	for _, u := range params.uris() {
		if !strings.HasSuffix(u.uri, suffix) {
			return fmt.Sprintf("%s '%s' does not end with the portal run id '%s'", u.name, u.uri, run.PortalRunID), nil
		}
	}
	return "", nil
}

// checkInputs confirms every fastq URI outside the test data bucket and
// the project prefix resolves to data visible in the project.
func (v *PostValidator) checkInputs(ctx context.Context, inputs map[string]any, projectID, prefix string) (string, error) {
	rows, err := model.DecodeFastqListRows(inputs["fastqListRows"])
	if err != nil {
		return "", err
	}

	for _, row := range rows {
		for _, uri := range row.FileURIs() {
			if uri == "" || v.exempt(uri, prefix) {
				continue
			}
			found, err := v.dataInProject(ctx, uri, projectID)
			if err != nil {
				return "", err
			}
			if !found {
				return fmt.Sprintf("Data uri '%s' cannot be found in the project context '%s'", uri, projectID), nil
			}
		}
	}
	return "", nil
}

func (v *PostValidator) exempt(uri, prefix string) bool {
	if v.testBucket != "" && strings.HasPrefix(uri, "s3://"+v.testBucket+"/") {
		return true
	}
	return strings.HasPrefix(uri, prefix)
}

// dataInProject reports whether uri resolves to a data object that is
// readable from projectID. Only unavailability is an error.
func (v *PostValidator) dataInProject(ctx context.Context, uri, projectID string) (bool, error) {
	pd, err := v.executions.ResolveURI(ctx, uri)
	if err != nil {
		if model.IsUnavailable(err) {
			return false, fmt.Errorf("resolve %s: %w", uri, err)
		}
		v.logger.Debug("data uri not resolved", "uri", uri, "error", err)
		return false, nil
	}
	if _, err := v.executions.GetProjectData(ctx, projectID, pd.Data.ID); err != nil {
		if model.IsUnavailable(err) {
			return false, fmt.Errorf("get data %s in project %s: %w", pd.Data.ID, projectID, err)
		}
		v.logger.Debug("data not visible in project", "uri", uri, "project_id", projectID, "error", err)
		return false, nil
	}
	return true, nil
}
