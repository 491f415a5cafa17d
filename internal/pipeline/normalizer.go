package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/logging"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// Normalizer converts execution service WES state change events into
// workflow run state change events.
type Normalizer struct {
	store  DraftStore
	logger *slog.Logger
	now    func() time.Time
}

// NewNormalizer creates a Normalizer reading draft runs from store.
func NewNormalizer(store DraftStore, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		store:  store,
		logger: logging.OrDiscard(logger).With("component", "normalizer"),
		now:    time.Now,
	}
}

// Normalize builds the state change event for ev. The draft run and its
// latest payload are looked up by the portalRunId tag; the event carries the
// run's workflow, name and libraries unchanged. Outputs are set only for a
// SUCCEEDED status and removed otherwise.
func (n *Normalizer) Normalize(ctx context.Context, ev *model.Icav2WesStateChange) (*model.WorkflowRunStateChange, error) {
	if ev == nil {
		return nil, model.NewValidationError("icav2WesStateChangeEvent is required")
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	status, err := model.ParseStatus(ev.Status)
	if err != nil {
		return nil, err
	}
	portalRunID := ev.PortalRunID()

	run, err := n.store.GetWorkflowRunByPortalRunID(ctx, portalRunID)
	if err != nil {
		return nil, fmt.Errorf("get workflow run %s: %w", portalRunID, err)
	}
	// A stored status outside the enum is not ranked.
	switch current := run.CurrentState.Status; {
	case current == "":
	case !current.IsValid():
		n.logger.Warn("stored status not recognised, transition not checked",
			"portal_run_id", portalRunID, "stored_status", current, "status", status)
	case !current.CanTransitionTo(status):
		return nil, &model.InvalidTransitionError{
			Entity: "workflow run",
			ID:     portalRunID,
			From:   current.String(),
			To:     status.String(),
		}
	}

	latest, err := n.store.GetLatestPayload(ctx, run.OrcabusID)
	if err != nil {
		return nil, fmt.Errorf("get latest payload of %s: %w", run.OrcabusID, err)
	}

	outputs, err := model.DeriveOutputs(status, ev.Inputs)
	if err != nil {
		return nil, err
	}

	event := &model.WorkflowRunStateChange{
		Status:          status,
		Timestamp:       model.FormatTimestamp(n.now()),
		PortalRunID:     portalRunID,
		Workflow:        model.Workflow{Name: run.Workflow.Name, Version: run.Workflow.Version},
		WorkflowRunName: run.WorkflowRunName,
		Libraries:       run.LibraryRefs(),
		Payload: model.Payload{
			Version: latest.Version,
			Data:    outputs.Apply(latest.Data),
		},
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	n.logger.Debug("normalized event",
		"portal_run_id", portalRunID,
		"status", status,
		"outputs", outputs.Available,
	)
	return event, nil
}
