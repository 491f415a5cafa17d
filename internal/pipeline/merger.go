package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/logging"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// MergeRequest overrides parts of a draft run. A nil Libraries keeps the
// stored libraries.
type MergeRequest struct {
	PortalRunID string                `json:"portalRunId"`
	Libraries   []model.LinkedLibrary `json:"libraries,omitempty"`
	Payload     *model.Payload        `json:"payload"`
}

// Validate checks the request shape.
func (r *MergeRequest) Validate() error {
	var details []model.FieldError
	if r.PortalRunID == "" {
		details = append(details, model.FieldError{Field: "portalRunId", Message: "required"})
	}
	if r.Payload == nil {
		details = append(details, model.FieldError{Field: "payload", Message: "required"})
	}
	for i, lib := range r.Libraries {
		if lib.LibraryID == "" {
			details = append(details, model.FieldError{Field: fmt.Sprintf("libraries[%d].libraryId", i), Message: "required"})
		}
	}
	if len(details) > 0 {
		return model.NewValidationError("invalid merge request", details...)
	}
	return nil
}

// Merger produces workflow run updates from a draft run and override data.
type Merger struct {
	store  DraftStore
	logger *slog.Logger
}

// NewMerger creates a Merger reading draft runs from store.
func NewMerger(store DraftStore, logger *slog.Logger) *Merger {
	return &Merger{
		store:  store,
		logger: logging.OrDiscard(logger).With("component", "merger"),
	}
}

// Merge returns the draft run in its flattened shape with the override
// applied. The incoming payload data is overlaid on the stored data at the
// top level; null values remove their key. The result carries the incoming
// payload version. Merging the same request twice gives the same result.
func (m *Merger) Merge(ctx context.Context, req *MergeRequest) (*model.WorkflowRunUpdate, error) {
	if req == nil {
		return nil, model.NewValidationError("merge request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	run, err := m.store.GetWorkflowRunByPortalRunID(ctx, req.PortalRunID)
	if err != nil {
		return nil, fmt.Errorf("get workflow run %s: %w", req.PortalRunID, err)
	}

	var stored map[string]any
	latest, err := m.store.GetLatestPayload(ctx, run.OrcabusID)
	switch {
	case err == nil:
		stored = latest.Data
	case model.IsNotFound(err):
		m.logger.Debug("draft run has no payload yet", "portal_run_id", req.PortalRunID)
	default:
		return nil, fmt.Errorf("get latest payload of %s: %w", run.OrcabusID, err)
	}

	update := run.ToUpdate()
	if req.Libraries != nil {
		update.Libraries = model.NormalizeLibraries(req.Libraries)
	}
	update.Payload = &model.Payload{
		Version: req.Payload.Version,
		Data:    model.MergeData(stored, req.Payload.Data),
	}

	m.logger.Debug("merged draft payload",
		"portal_run_id", req.PortalRunID,
		"keys", len(update.Payload.Data),
	)
	return &update, nil
}
