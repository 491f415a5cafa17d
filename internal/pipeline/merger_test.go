package pipeline

import (
	"context"
	"reflect"
	"testing"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/store"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

func mergeStore(stored map[string]any) *fakeStore {
	run := draftRun(model.StatusDraft)
	st := newFakeStore(run)
	if stored != nil {
		st.payloads[run.OrcabusID] = &model.Payload{Version: "2025.06.20", Data: stored}
	}
	return st
}

func TestMerge_Scenario(t *testing.T) {
	m := NewMerger(mergeStore(map[string]any{"a": 1, "b": 2}), nil)

	update, err := m.Merge(context.Background(), &MergeRequest{
		PortalRunID: testPortalRunID,
		Payload:     &model.Payload{Version: "2025.07.29", Data: map[string]any{"a": nil, "c": 3}},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := map[string]any{"b": 2, "c": 3}
	if !reflect.DeepEqual(update.Payload.Data, want) {
		t.Errorf("data = %#v, want %#v", update.Payload.Data, want)
	}
	if update.Payload.Version != "2025.07.29" {
		t.Errorf("version = %s, want the incoming version", update.Payload.Version)
	}
}

func TestMerge_NullDrop(t *testing.T) {
	tests := []struct {
		name     string
		stored   map[string]any
		incoming map[string]any
	}{
		{"key present in stored", map[string]any{"tags": map[string]any{"x": 1}}, map[string]any{"tags": nil}},
		{"key absent from stored", map[string]any{"inputs": 1}, map[string]any{"tags": nil}},
		{"no stored payload", nil, map[string]any{"tags": nil, "inputs": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMerger(mergeStore(tt.stored), nil)
			update, err := m.Merge(context.Background(), &MergeRequest{
				PortalRunID: testPortalRunID,
				Payload:     &model.Payload{Data: tt.incoming},
			})
			if err != nil {
				t.Fatalf("Merge: %v", err)
			}
			for k, v := range tt.incoming {
				if v != nil {
					continue
				}
				if _, ok := update.Payload.Data[k]; ok {
					t.Errorf("null key %q retained", k)
				}
			}
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	st := mergeStore(map[string]any{"inputs": map[string]any{"libraryId": "L1"}, "tags": map[string]any{"subjectId": "S1"}})
	m := NewMerger(st, nil)
	req := &MergeRequest{
		PortalRunID: testPortalRunID,
		Payload: &model.Payload{Version: "2025.07.29", Data: map[string]any{
			"engineParameters": map[string]any{"projectId": "proj"},
			"tags":             nil,
		}},
	}

	first, err := m.Merge(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Merge(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("merge is not idempotent:\n%#v\n%#v", first, second)
	}
	if _, ok := req.Payload.Data["tags"]; !ok {
		t.Error("request data was modified")
	}
}

func TestMerge_Libraries(t *testing.T) {
	t.Run("replaced and reduced", func(t *testing.T) {
		m := NewMerger(mergeStore(map[string]any{}), nil)
		update, err := m.Merge(context.Background(), &MergeRequest{
			PortalRunID: testPortalRunID,
			Libraries: []model.LinkedLibrary{
				{LibraryID: "L2500373", OrcabusID: "lib.01JQ00000000000000000000AA"},
			},
			Payload: &model.Payload{Data: map[string]any{}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(update.Libraries) != 1 || update.Libraries[0].LibraryID != "L2500373" {
			t.Fatalf("libraries = %+v", update.Libraries)
		}
		if update.Libraries[0].Readsets == nil {
			t.Error("readsets should default to an empty list")
		}
	})

	t.Run("kept when absent", func(t *testing.T) {
		m := NewMerger(mergeStore(map[string]any{}), nil)
		update, err := m.Merge(context.Background(), &MergeRequest{
			PortalRunID: testPortalRunID,
			Payload:     &model.Payload{Data: map[string]any{}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(update.Libraries) != 1 || update.Libraries[0].LibraryID != "L2301197" {
			t.Errorf("libraries = %+v", update.Libraries)
		}
	})
}

func TestMerge_FlattensStatus(t *testing.T) {
	m := NewMerger(mergeStore(map[string]any{}), nil)
	update, err := m.Merge(context.Background(), &MergeRequest{
		PortalRunID: testPortalRunID,
		Payload:     &model.Payload{Data: map[string]any{}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if update.Status != model.StatusDraft {
		t.Errorf("status = %q, want DRAFT", update.Status)
	}
	if update.OrcabusID != "wfr.01JY0000000000000000000001" || update.WorkflowRunName == "" {
		t.Errorf("run identity not carried: %+v", update)
	}
}

func TestMerge_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     *MergeRequest
		wantErr func(error) bool
	}{
		{"nil request", nil, model.IsValidation},
		{"missing portal run id", &MergeRequest{Payload: &model.Payload{}}, model.IsValidation},
		{"missing payload", &MergeRequest{PortalRunID: testPortalRunID}, model.IsValidation},
		{"unknown portal run", &MergeRequest{PortalRunID: "20990101deadbeef", Payload: &model.Payload{}}, model.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMerger(mergeStore(nil), nil)
			_, err := m.Merge(context.Background(), tt.req)
			if err == nil || !tt.wantErr(err) {
				t.Errorf("Merge() error = %v", err)
			}
		})
	}
}

func TestMerge_SQLiteDraftStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	run := &model.WorkflowRun{
		PortalRunID: testPortalRunID,
		Workflow:    model.Workflow{Name: "dragen-tso500-ctdna", Version: "2.6.1"},
		Libraries:   []model.LinkedLibrary{{LibraryID: "L2301197"}},
	}
	if err := st.CreateWorkflowRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddState(ctx, run.OrcabusID, model.StatusDraft, &model.Payload{
		Version: "2025.06.20",
		Data:    map[string]any{"inputs": map[string]any{"libraryId": "L2301197"}, "tags": map[string]any{"subjectId": "S1"}},
	}); err != nil {
		t.Fatal(err)
	}

	update, err := NewMerger(st, nil).Merge(ctx, &MergeRequest{
		PortalRunID: testPortalRunID,
		Payload:     &model.Payload{Version: "2025.07.29", Data: map[string]any{"tags": nil, "engineParameters": map[string]any{"projectId": "p"}}},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if update.Status != model.StatusDraft {
		t.Errorf("status = %s", update.Status)
	}
	if _, ok := update.Payload.Data["inputs"]; !ok {
		t.Error("stored inputs lost")
	}
	if _, ok := update.Payload.Data["tags"]; ok {
		t.Error("null tags retained")
	}
	if _, ok := update.Payload.Data["engineParameters"]; !ok {
		t.Error("incoming engineParameters missing")
	}
}
