package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// SeedFile is the YAML fixture format loaded by Seed.
type SeedFile struct {
	WorkflowRuns []SeedRun `yaml:"workflowRuns"`
}

// SeedRun describes one draft run and its initial state. A run without a
// portalRunId gets a fresh one dated today.
type SeedRun struct {
	PortalRunID string                `yaml:"portalRunId"`
	Workflow    model.Workflow        `yaml:"workflow"`
	Libraries   []model.LinkedLibrary `yaml:"libraries"`
	Status      model.WorkflowStatus  `yaml:"status"`
	Payload     *model.Payload        `yaml:"payload"`
}

// LoadSeedFile reads a YAML fixture file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &sf, nil
}

// Seed creates every run in sf with its initial state and returns the
// created runs.
func Seed(ctx context.Context, st Store, sf *SeedFile) ([]*model.WorkflowRun, error) {
	created := make([]*model.WorkflowRun, 0, len(sf.WorkflowRuns))
	for i, sr := range sf.WorkflowRuns {
		if sr.PortalRunID == "" {
			sr.PortalRunID = model.NewPortalRunID(time.Now())
		}
		run := &model.WorkflowRun{
			PortalRunID: sr.PortalRunID,
			Workflow:    sr.Workflow,
			Libraries:   sr.Libraries,
		}
		if err := st.CreateWorkflowRun(ctx, run); err != nil {
			return created, fmt.Errorf("seed run %d (%s): %w", i, sr.PortalRunID, err)
		}

		status := sr.Status
		if status == "" {
			status = model.StatusDraft
		}
		if sr.Payload != nil {
			sr.Payload.Data = normalizeYAML(sr.Payload.Data).(map[string]any)
		}
		state, err := st.AddState(ctx, run.OrcabusID, status, sr.Payload)
		if err != nil {
			return created, fmt.Errorf("seed state for %s: %w", sr.PortalRunID, err)
		}
		run.CurrentState = *state
		created = append(created, run)
	}
	return created, nil
}

// normalizeYAML converts the map[any]any values yaml can produce for
// non-string keys so the data survives JSON encoding.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	default:
		return map[string]any{}
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}
