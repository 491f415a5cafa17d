// Package pipeline implements the event normalization and draft payload
// pipeline: normalizing execution service events into workflow run state
// change events, merging draft payloads, and validating them against the
// payload schema and the execution project.
//
// Every component reads its collaborators fresh on each call and keeps no
// state between calls. Concurrent calls for the same portal run are not
// coordinated here.
package pipeline

import (
	"context"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/icav2"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// DraftStore reads draft workflow runs. Both the workflow manager client
// and the SQLite store satisfy it.
type DraftStore interface {
	GetWorkflowRunByPortalRunID(ctx context.Context, portalRunID string) (*model.WorkflowRun, error)
	GetWorkflowRun(ctx context.Context, orcabusID string) (*model.WorkflowRun, error)
	GetLatestPayload(ctx context.Context, workflowRunID string) (*model.Payload, error)
}

// Commenter attaches a comment to a workflow run.
type Commenter interface {
	AddComment(ctx context.Context, workflowRunID, comment, author string) error
}

// SchemaSource returns the current payload JSON Schema.
type SchemaSource interface {
	Schema(ctx context.Context) (string, error)
}

// ExecutionService is the part of the execution service the post-schema
// validator needs.
type ExecutionService interface {
	ProjectStoragePrefix(ctx context.Context, projectID string) (string, error)
	GetProjectPipeline(ctx context.Context, projectID, pipelineID string) (*icav2.ProjectPipeline, error)
	ResolveURI(ctx context.Context, uri string) (*icav2.ProjectData, error)
	GetProjectData(ctx context.Context, projectID, dataID string) (*icav2.ProjectData, error)
}

// ValidationRequest is the input of both validators.
type ValidationRequest struct {
	Data              map[string]any `json:"data,omitempty"`
	WorkflowRunID     string         `json:"workflowRunId,omitempty"`
	AddCommentOnError bool           `json:"addCommentOnError,omitempty"`

	// Body is the remainder of the request. The schema validator checks it
	// when Data is absent.
	Body map[string]any `json:"-"`
}

// mapField returns m[key] as an object, or nil.
func mapField(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
