// Package handlers exposes the pipeline operations as named event
// handlers. Each handler takes a JSON event and returns a JSON-encodable
// result, the contract the orchestrator's state machine expects.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/logging"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/metrics"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// Func handles one raw JSON event.
type Func func(ctx context.Context, event json.RawMessage) (any, error)

// Handler is a named event handler.
type Handler struct {
	Name        string
	Description string
	Fn          Func
}

// Registry maps handler names to handlers.
// Registration happens at startup before concurrent access, so no mutex is needed.
type Registry struct {
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logging.OrDiscard(logger).With("component", "handler-registry"),
	}
}

// Register adds h, replacing any handler with the same name.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Name] = h
	r.logger.Debug("handler registered", "handler", h.Name)
}

// Get returns the named handler.
func (r *Registry) Get(name string) (Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return Handler{}, model.NewNotFoundError("Handler", name)
	}
	return h, nil
}

// List describes the registered handlers sorted by name.
func (r *Registry) List() []model.HandlerInfo {
	infos := make([]model.HandlerInfo, 0, len(r.handlers))
	for _, h := range r.handlers {
		infos = append(infos, model.HandlerInfo{Name: h.Name, Description: h.Description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Invoke runs the named handler on event and records its outcome.
func (r *Registry) Invoke(ctx context.Context, name, requestID string, event []byte) (any, error) {
	h, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	logger := logging.ForInvocation(r.logger, name, requestID)
	if len(event) == 0 {
		event = []byte("{}")
	}

	start := time.Now()
	result, err := h.Fn(ctx, event)
	elapsed := time.Since(start)
	outcome := outcomeOf(err)
	metrics.ObserveInvocation(name, outcome, elapsed)

	if err != nil {
		logger.Warn("handler failed", "outcome", outcome, "duration", elapsed.String(), "error", err)
		return nil, err
	}
	logger.Info("handler completed", "duration", elapsed.String())
	return result, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch model.CodeOf(err) {
	case model.ErrValidation, model.ErrConflict:
		return metrics.OutcomeInvalid
	case model.ErrNotFound:
		return metrics.OutcomeNotFound
	case model.ErrUnavailable:
		return metrics.OutcomeUnavailable
	}
	return metrics.OutcomeError
}

// decode unmarshals event into v, reporting malformed input as a
// validation error.
func decode(event json.RawMessage, v any) error {
	if err := json.Unmarshal(event, v); err != nil {
		return model.NewValidationError(fmt.Sprintf("invalid event: %v", err))
	}
	return nil
}
