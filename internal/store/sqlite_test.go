package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// tickingClock advances one second per call so state order is deterministic.
func tickingClock() func() time.Time {
	t := time.Date(2025, 6, 20, 4, 39, 31, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func sampleRun() *model.WorkflowRun {
	return &model.WorkflowRun{
		PortalRunID: "20250620abcd6789",
		Workflow:    model.Workflow{Name: "dragen-tso500-ctdna", Version: "2.6.1"},
		Libraries:   []model.LinkedLibrary{{LibraryID: "L2301197"}},
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	st := testStore(t)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestCreateAndGetWorkflowRun(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	run := sampleRun()
	if err := st.CreateWorkflowRun(ctx, run); err != nil {
		t.Fatalf("CreateWorkflowRun: %v", err)
	}
	if !strings.HasPrefix(run.OrcabusID, "wfr.") {
		t.Errorf("OrcabusID = %q, want wfr. prefix", run.OrcabusID)
	}
	if !strings.HasPrefix(run.Libraries[0].OrcabusID, "lib.") {
		t.Errorf("library OrcabusID = %q, want lib. prefix", run.Libraries[0].OrcabusID)
	}
	if run.WorkflowRunName != "umccr--automated--dragen-tso500-ctdna--2-6-1--20250620abcd6789" {
		t.Errorf("WorkflowRunName = %q", run.WorkflowRunName)
	}

	got, err := st.GetWorkflowRunByPortalRunID(ctx, "20250620abcd6789")
	if err != nil {
		t.Fatalf("GetWorkflowRunByPortalRunID: %v", err)
	}
	if got.OrcabusID != run.OrcabusID {
		t.Errorf("OrcabusID = %q, want %q", got.OrcabusID, run.OrcabusID)
	}
	if got.CurrentState.Status != "" {
		t.Errorf("new run should have no state, got %q", got.CurrentState.Status)
	}

	byID, err := st.GetWorkflowRun(ctx, run.OrcabusID)
	if err != nil {
		t.Fatalf("GetWorkflowRun: %v", err)
	}
	if byID.Libraries[0].LibraryID != "L2301197" {
		t.Errorf("Libraries = %+v", byID.Libraries)
	}

	if _, err := st.GetWorkflowRun(ctx, "wfr.missing"); !model.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	dup := sampleRun()
	if err := st.CreateWorkflowRun(ctx, dup); err == nil {
		t.Error("expected duplicate portal run id to fail")
	}
}

func TestCreateWorkflowRun_Validation(t *testing.T) {
	st := testStore(t)
	if err := st.CreateWorkflowRun(context.Background(), &model.WorkflowRun{}); !model.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAddStateAndLatestPayload(t *testing.T) {
	st := testStore(t)
	st.now = tickingClock()
	ctx := context.Background()

	run := sampleRun()
	if err := st.CreateWorkflowRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	if _, err := st.GetLatestPayload(ctx, run.OrcabusID); !model.IsNotFound(err) {
		t.Errorf("expected not found before any payload, got %v", err)
	}

	first := &model.Payload{Version: "2025.07.29", Data: map[string]any{"a": 1.0}}
	if _, err := st.AddState(ctx, run.OrcabusID, model.StatusDraft, first); err != nil {
		t.Fatalf("AddState DRAFT: %v", err)
	}
	second := &model.Payload{Version: "2025.07.29", Data: map[string]any{"b": "two"}}
	if _, err := st.AddState(ctx, run.OrcabusID, model.StatusDraft, second); err != nil {
		t.Fatalf("AddState DRAFT again: %v", err)
	}
	if _, err := st.AddState(ctx, run.OrcabusID, model.StatusReady, nil); err != nil {
		t.Fatalf("AddState READY: %v", err)
	}

	p, err := st.GetLatestPayload(ctx, run.OrcabusID)
	if err != nil {
		t.Fatalf("GetLatestPayload: %v", err)
	}
	if p.OrcabusID != second.OrcabusID || p.Data["b"] != "two" {
		t.Errorf("latest payload = %+v, want the second one", p)
	}

	got, _ := st.GetWorkflowRun(ctx, run.OrcabusID)
	if got.CurrentState.Status != model.StatusReady {
		t.Errorf("CurrentState.Status = %q, want READY", got.CurrentState.Status)
	}

	states, err := st.ListStates(ctx, run.OrcabusID)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 3 {
		t.Errorf("got %d states, want 3", len(states))
	}
}

func TestAddState_RejectsRegression(t *testing.T) {
	st := testStore(t)
	st.now = tickingClock()
	ctx := context.Background()

	run := sampleRun()
	st.CreateWorkflowRun(ctx, run)
	if _, err := st.AddState(ctx, run.OrcabusID, model.StatusRunning, nil); err != nil {
		t.Fatal(err)
	}

	_, err := st.AddState(ctx, run.OrcabusID, model.StatusDraft, nil)
	var transErr *model.InvalidTransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transErr.From != "RUNNING" || transErr.To != "DRAFT" {
		t.Errorf("transition = %s → %s", transErr.From, transErr.To)
	}

	if _, err := st.AddState(ctx, run.OrcabusID, "BOGUS", nil); !model.IsValidation(err) {
		t.Errorf("expected validation error for unknown status, got %v", err)
	}
}

func TestComments(t *testing.T) {
	st := testStore(t)
	st.now = tickingClock()
	ctx := context.Background()

	run := sampleRun()
	st.CreateWorkflowRun(ctx, run)

	if err := st.AddComment(ctx, run.OrcabusID, "first", "author-a"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if err := st.AddComment(ctx, run.OrcabusID, "second", "author-b"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if err := st.AddComment(ctx, "wfr.missing", "x", "y"); !model.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	comments, err := st.ListComments(ctx, run.OrcabusID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 2 || comments[0].Text != "first" || comments[1].CreatedBy != "author-b" {
		t.Errorf("comments = %+v", comments)
	}
}

func TestListWorkflowRuns(t *testing.T) {
	st := testStore(t)
	st.now = tickingClock()
	ctx := context.Background()

	for _, id := range []string{"20250620aaaaaaaa", "20250620bbbbbbbb", "20250620cccccccc"} {
		run := sampleRun()
		run.PortalRunID = id
		if err := st.CreateWorkflowRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		status := model.StatusDraft
		if id == "20250620bbbbbbbb" {
			status = model.StatusReady
		}
		st.AddState(ctx, run.OrcabusID, status, nil)
	}

	runs, total, err := st.ListWorkflowRuns(ctx, model.ListOptions{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(runs) != 2 {
		t.Errorf("total=%d len=%d, want 3 and 2", total, len(runs))
	}
	if runs[0].PortalRunID != "20250620cccccccc" {
		t.Errorf("first run = %q, want newest", runs[0].PortalRunID)
	}

	ready, total, err := st.ListWorkflowRuns(ctx, model.ListOptions{Status: "READY"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || ready[0].PortalRunID != "20250620bbbbbbbb" {
		t.Errorf("READY filter returned %d runs", total)
	}
}

func TestSeed(t *testing.T) {
	st := testStore(t)
	st.now = tickingClock()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
workflowRuns:
  - portalRunId: 20250620abcd6789
    workflow:
      name: dragen-tso500-ctdna
      version: 2.6.1
    libraries:
      - libraryId: L2301197
        orcabusId: lib.01JBMVHM2D5GCC7FTC20K4FDFK
    status: DRAFT
    payload:
      version: "2025.07.29"
      data:
        tags:
          libraryId: L2301197
        engineParameters:
          projectId: ea19a3f5-ec7c-4940-a474-c31cd91dbad4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	sf, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	runs, err := Seed(ctx, st, sf)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(runs) != 1 || runs[0].CurrentState.Status != model.StatusDraft {
		t.Fatalf("runs = %+v", runs)
	}

	p, err := st.GetLatestPayload(ctx, runs[0].OrcabusID)
	if err != nil {
		t.Fatalf("GetLatestPayload: %v", err)
	}
	tags, ok := p.Data["tags"].(map[string]any)
	if !ok || tags["libraryId"] != "L2301197" {
		t.Errorf("tags = %v", p.Data["tags"])
	}
}

func TestSeed_MintsPortalRunID(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	runs, err := Seed(ctx, st, &SeedFile{WorkflowRuns: []SeedRun{
		{Workflow: model.Workflow{Name: "dragen-tso500-ctdna", Version: "2.6.1"}},
		{Workflow: model.Workflow{Name: "dragen-tso500-ctdna", Version: "2.6.1"}},
	}})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(runs) != 2 || runs[0].PortalRunID == runs[1].PortalRunID {
		t.Fatalf("runs = %+v", runs)
	}
	for _, run := range runs {
		if !model.ValidPortalRunID(run.PortalRunID) {
			t.Errorf("portalRunId %q is not YYYYMMDD + 8 hex", run.PortalRunID)
		}
		got, err := st.GetWorkflowRunByPortalRunID(ctx, run.PortalRunID)
		if err != nil {
			t.Fatalf("GetWorkflowRunByPortalRunID: %v", err)
		}
		if got.CurrentState.Status != model.StatusDraft {
			t.Errorf("status = %s, want DRAFT", got.CurrentState.Status)
		}
	}
}
