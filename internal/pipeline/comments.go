package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/logging"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/metrics"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// ReadyDelayMessage explains why a READY run is not submitted right away.
const ReadyDelayMessage = "Before we can submit an ICAv2 WES event, we need to first decompress the fastq data\n" +
	"from ORA to GZIP format and generate a TSO500 ctDNA appropriate SampleSheet.\n" +
	"This may take some time depending on the size of the input data."

// CommentStatusAdded is the status reported after a comment is posted.
const CommentStatusAdded = "comment_added"

// WesFailure describes a failed analysis.
type WesFailure struct {
	PortalRunID     string `json:"portalRunId"`
	ErrorType       string `json:"errorType"`
	ErrorMessageURI string `json:"errorMessageUri"`
}

// UploadFailure describes a failure while uploading run inputs.
type UploadFailure struct {
	PortalRunID      string `json:"portalRunId"`
	ErrorType        string `json:"errorType"`
	StepsExecutionID string `json:"stepsExecutionId"`
}

// Commentator posts lifecycle comments on workflow runs found by portal
// run id.
type Commentator struct {
	store               DraftStore
	comments            Commenter
	serviceAuthor       string
	orchestrationAuthor string
	logger              *slog.Logger
}

// NewCommentator creates a Commentator. Failure comments are posted as
// serviceAuthor and delay comments as orchestrationAuthor.
func NewCommentator(store DraftStore, comments Commenter, serviceAuthor, orchestrationAuthor string, logger *slog.Logger) *Commentator {
	return &Commentator{
		store:               store,
		comments:            comments,
		serviceAuthor:       serviceAuthor,
		orchestrationAuthor: orchestrationAuthor,
		logger:              logging.OrDiscard(logger).With("component", "commentator"),
	}
}

// WesFailure records that the analysis failed.
func (c *Commentator) WesFailure(ctx context.Context, f WesFailure) (model.CommentResult, error) {
	if f.PortalRunID == "" {
		return model.CommentResult{}, requiredField("portalRunId")
	}
	text := fmt.Sprintf("The workflow has failed with error type '%s', full traceback can be found at '%s'",
		f.ErrorType, f.ErrorMessageURI)
	return c.post(ctx, f.PortalRunID, text, c.serviceAuthor)
}

// UploadFailure records that the input upload stage failed.
func (c *Commentator) UploadFailure(ctx context.Context, f UploadFailure) (model.CommentResult, error) {
	if f.ErrorType == "" {
		return model.CommentResult{}, requiredField("errorType")
	}
	if f.PortalRunID == "" {
		return model.CommentResult{}, requiredField("portalRunId")
	}
	text := fmt.Sprintf("The workflow has failed at the upload inputs stage with error type '%s', "+
		"The Steps Execution ID was as follows '%s'", f.ErrorType, f.StepsExecutionID)
	return c.post(ctx, f.PortalRunID, text, c.serviceAuthor)
}

// ReadyDelay records that inputs must be decompressed before submission.
func (c *Commentator) ReadyDelay(ctx context.Context, portalRunID string) (model.CommentResult, error) {
	if portalRunID == "" {
		return model.CommentResult{}, requiredField("portalRunId")
	}
	return c.post(ctx, portalRunID, ReadyDelayMessage, c.orchestrationAuthor)
}

func (c *Commentator) post(ctx context.Context, portalRunID, text, author string) (model.CommentResult, error) {
	run, err := c.store.GetWorkflowRunByPortalRunID(ctx, portalRunID)
	if err != nil {
		return model.CommentResult{}, fmt.Errorf("get workflow run %s: %w", portalRunID, err)
	}
	if err := c.comments.AddComment(ctx, run.OrcabusID, text, author); err != nil {
		return model.CommentResult{}, fmt.Errorf("comment on %s: %w", run.OrcabusID, err)
	}
	metrics.IncComment(author)
	c.logger.Info("comment added", "portal_run_id", portalRunID, "workflow_run_id", run.OrcabusID, "author", author)
	return model.CommentResult{Status: CommentStatusAdded, WorkflowRunID: run.OrcabusID}, nil
}

func requiredField(name string) error {
	return model.NewValidationError(name+" is required", model.FieldError{Field: name, Message: "required"})
}
