// Package store is a SQLite-backed draft store. It mirrors the parts of
// the workflow manager the handlers use, so they can run offline.
package store

import (
	"context"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// Store defines the persistence layer for draft workflow runs.
type Store interface {
	// Workflow runs
	CreateWorkflowRun(ctx context.Context, run *model.WorkflowRun) error
	GetWorkflowRun(ctx context.Context, orcabusID string) (*model.WorkflowRun, error)
	GetWorkflowRunByPortalRunID(ctx context.Context, portalRunID string) (*model.WorkflowRun, error)
	ListWorkflowRuns(ctx context.Context, opts model.ListOptions) ([]*model.WorkflowRun, int, error)

	// States and payloads
	AddState(ctx context.Context, workflowRunID string, status model.WorkflowStatus, payload *model.Payload) (*model.State, error)
	ListStates(ctx context.Context, workflowRunID string) ([]model.State, error)
	GetLatestPayload(ctx context.Context, workflowRunID string) (*model.Payload, error)

	// Comments
	AddComment(ctx context.Context, workflowRunID, comment, author string) error
	ListComments(ctx context.Context, workflowRunID string) ([]Comment, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Comment is a note attached to a workflow run.
type Comment struct {
	OrcabusID string `json:"orcabusId"`
	Text      string `json:"text"`
	CreatedBy string `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
}
