package pipeline

import (
	"context"
	"testing"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

const (
	serviceAuthor       = "dragen-tso500-ctdna-workflow-service"
	orchestrationAuthor = "dragen-tso500-ctdna-workflow-orchestration-service"
)

func TestCommentator(t *testing.T) {
	tests := []struct {
		name   string
		post   func(*Commentator) (model.CommentResult, error)
		text   string
		author string
	}{
		{
			name: "wes failure",
			post: func(c *Commentator) (model.CommentResult, error) {
				return c.WesFailure(context.Background(), WesFailure{
					PortalRunID:     testPortalRunID,
					ErrorType:       "PipelineFailed",
					ErrorMessageURI: "s3://bucket/logs/error.txt",
				})
			},
			text:   "The workflow has failed with error type 'PipelineFailed', full traceback can be found at 's3://bucket/logs/error.txt'",
			author: serviceAuthor,
		},
		{
			name: "upload failure",
			post: func(c *Commentator) (model.CommentResult, error) {
				return c.UploadFailure(context.Background(), UploadFailure{
					PortalRunID:      testPortalRunID,
					ErrorType:        "States.TaskFailed",
					StepsExecutionID: "arn:aws:states:ap-southeast-2:000000000000:execution:upload:1",
				})
			},
			text: "The workflow has failed at the upload inputs stage with error type 'States.TaskFailed', " +
				"The Steps Execution ID was as follows 'arn:aws:states:ap-southeast-2:000000000000:execution:upload:1'",
			author: serviceAuthor,
		},
		{
			name: "ready delay",
			post: func(c *Commentator) (model.CommentResult, error) {
				return c.ReadyDelay(context.Background(), testPortalRunID)
			},
			text:   ReadyDelayMessage,
			author: orchestrationAuthor,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore(draftRun(model.StatusReady))
			c := NewCommentator(st, st, serviceAuthor, orchestrationAuthor, nil)

			res, err := tt.post(c)
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			if res.Status != CommentStatusAdded || res.WorkflowRunID != "wfr.01JY0000000000000000000001" {
				t.Errorf("result = %+v", res)
			}
			if len(st.comments) != 1 {
				t.Fatalf("comments = %d", len(st.comments))
			}
			got := st.comments[0]
			if got.text != tt.text || got.author != tt.author || got.workflowRunID != res.WorkflowRunID {
				t.Errorf("comment = %+v", got)
			}
		})
	}
}

func TestCommentator_Errors(t *testing.T) {
	st := newFakeStore(draftRun(model.StatusReady))
	c := NewCommentator(st, st, serviceAuthor, orchestrationAuthor, nil)
	ctx := context.Background()

	if _, err := c.UploadFailure(ctx, UploadFailure{PortalRunID: testPortalRunID}); !model.IsValidation(err) {
		t.Errorf("missing errorType: %v", err)
	}
	if _, err := c.WesFailure(ctx, WesFailure{ErrorType: "x"}); !model.IsValidation(err) {
		t.Errorf("missing portalRunId: %v", err)
	}
	if _, err := c.ReadyDelay(ctx, "20990101deadbeef"); !model.IsNotFound(err) {
		t.Errorf("unknown run: %v", err)
	}
	if len(st.comments) != 0 {
		t.Errorf("comments posted on error: %+v", st.comments)
	}
}
