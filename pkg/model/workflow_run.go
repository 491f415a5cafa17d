package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkflowRunNamePrefix is prepended to every generated workflow run name.
const WorkflowRunNamePrefix = "umccr--automated"

var portalRunIDPattern = regexp.MustCompile(`^\d{8}[0-9a-f]{8}$`)

// Workflow identifies the workflow definition a run belongs to.
type Workflow struct {
	OrcabusID string `json:"orcabusId,omitempty" yaml:"orcabusId,omitempty"`
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version" yaml:"version"`
}

// Library is a library linked to a workflow run.
type Library struct {
	LibraryID string `json:"libraryId" yaml:"libraryId"`
	OrcabusID string `json:"orcabusId" yaml:"orcabusId"`
}

// LinkedLibrary is a library as carried on a workflow run update, with the
// readsets used from it.
type LinkedLibrary struct {
	LibraryID string           `json:"libraryId" yaml:"libraryId"`
	OrcabusID string           `json:"orcabusId" yaml:"orcabusId"`
	Readsets  []map[string]any `json:"readsets" yaml:"readsets"`
}

// Payload is a versioned free-form data container. A nil value in Data
// represents a JSON null.
type Payload struct {
	OrcabusID string         `json:"orcabusId,omitempty" yaml:"orcabusId,omitempty"`
	Version   string         `json:"version" yaml:"version"`
	Data      map[string]any `json:"data" yaml:"data"`
}

// Recognized top-level payload data keys.
const (
	DataKeyInputs           = "inputs"
	DataKeyEngineParameters = "engineParameters"
	DataKeyTags             = "tags"
	DataKeyOutputs          = "outputs"
)

// State is one entry in a workflow run's state history.
type State struct {
	OrcabusID string         `json:"orcabusId,omitempty"`
	Status    WorkflowStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Comment   string         `json:"comment,omitempty"`
	// Payload is the orcabus id of the payload attached to this state.
	Payload string `json:"payload,omitempty"`
}

// WorkflowRun is a workflow run as the Draft Store represents it.
type WorkflowRun struct {
	OrcabusID       string          `json:"orcabusId"`
	PortalRunID     string          `json:"portalRunId"`
	ExecutionID     string          `json:"executionId,omitempty"`
	WorkflowRunName string          `json:"workflowRunName"`
	Comment         string          `json:"comment,omitempty"`
	Workflow        Workflow        `json:"workflow"`
	Libraries       []LinkedLibrary `json:"libraries"`
	CurrentState    State           `json:"currentState"`
}

// WorkflowRunUpdate is the canonical, flattened shape of a draft workflow
// run: the stored currentState is reduced to a plain status.
type WorkflowRunUpdate struct {
	OrcabusID       string          `json:"orcabusId,omitempty"`
	PortalRunID     string          `json:"portalRunId"`
	ExecutionID     string          `json:"executionId,omitempty"`
	WorkflowRunName string          `json:"workflowRunName"`
	Comment         string          `json:"comment,omitempty"`
	Workflow        Workflow        `json:"workflow"`
	Libraries       []LinkedLibrary `json:"libraries"`
	Status          WorkflowStatus  `json:"status"`
	Payload         *Payload        `json:"payload,omitempty"`
}

// ToUpdate projects the stored run into its canonical shape. The payload
// is left unset.
func (r *WorkflowRun) ToUpdate() WorkflowRunUpdate {
	libs := make([]LinkedLibrary, len(r.Libraries))
	for i, l := range r.Libraries {
		libs[i] = l.normalized()
	}
	return WorkflowRunUpdate{
		OrcabusID:       r.OrcabusID,
		PortalRunID:     r.PortalRunID,
		ExecutionID:     r.ExecutionID,
		WorkflowRunName: r.WorkflowRunName,
		Comment:         r.Comment,
		Workflow:        r.Workflow,
		Libraries:       libs,
		Status:          r.CurrentState.Status,
	}
}

// LibraryRefs returns the run's libraries reduced to {libraryId, orcabusId}.
func (r *WorkflowRun) LibraryRefs() []Library {
	refs := make([]Library, len(r.Libraries))
	for i, l := range r.Libraries {
		refs[i] = Library{LibraryID: l.LibraryID, OrcabusID: l.OrcabusID}
	}
	return refs
}

func (l LinkedLibrary) normalized() LinkedLibrary {
	if l.Readsets == nil {
		l.Readsets = []map[string]any{}
	}
	return l
}

// NormalizeLibraries reduces each entry to {libraryId, orcabusId, readsets},
// defaulting readsets to an empty list.
func NormalizeLibraries(libs []LinkedLibrary) []LinkedLibrary {
	out := make([]LinkedLibrary, len(libs))
	for i, l := range libs {
		out[i] = l.normalized()
	}
	return out
}

// MergeData overlays incoming on stored at the top level. A key whose
// incoming value is nil is removed from the result; keys not mentioned in
// incoming keep their stored value. Neither argument is modified.
func MergeData(stored, incoming map[string]any) map[string]any {
	merged := make(map[string]any, len(stored)+len(incoming))
	for k, v := range stored {
		if v != nil {
			merged[k] = v
		}
	}
	for k, v := range incoming {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}

// WorkflowRunName builds the platform's run name, e.g.
// umccr--automated--dragen-tso500-ctdna--2-6-1--20250620abcd6789.
func WorkflowRunName(workflowName, version, portalRunID string) string {
	return strings.Join([]string{
		WorkflowRunNamePrefix,
		workflowName,
		strings.ReplaceAll(version, ".", "-"),
		portalRunID,
	}, "--")
}

// ValidPortalRunID reports whether id has the YYYYMMDD + 8 hex form.
func ValidPortalRunID(id string) bool {
	return portalRunIDPattern.MatchString(id)
}

// NewPortalRunID mints a portal run id for the given date.
func NewPortalRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s%s", now.UTC().Format("20060102"), suffix)
}
