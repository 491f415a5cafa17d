package pipeline

import (
	"context"
	"strings"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/icav2"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

type postedComment struct {
	workflowRunID string
	text          string
	author        string
}

// fakeStore is an in-memory DraftStore and Commenter.
type fakeStore struct {
	runs       map[string]*model.WorkflowRun
	payloads   map[string]*model.Payload
	comments   []postedComment
	readErr    error
	commentErr error
}

func newFakeStore(runs ...*model.WorkflowRun) *fakeStore {
	s := &fakeStore{
		runs:     make(map[string]*model.WorkflowRun),
		payloads: make(map[string]*model.Payload),
	}
	for _, r := range runs {
		s.runs[r.OrcabusID] = r
	}
	return s
}

func (s *fakeStore) GetWorkflowRunByPortalRunID(_ context.Context, portalRunID string) (*model.WorkflowRun, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	for _, r := range s.runs {
		if r.PortalRunID == portalRunID {
			return r, nil
		}
	}
	return nil, model.NewNotFoundError("Workflow run", portalRunID)
}

func (s *fakeStore) GetWorkflowRun(_ context.Context, orcabusID string) (*model.WorkflowRun, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	r, ok := s.runs[orcabusID]
	if !ok {
		return nil, model.NewNotFoundError("Workflow run", orcabusID)
	}
	return r, nil
}

func (s *fakeStore) GetLatestPayload(_ context.Context, workflowRunID string) (*model.Payload, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	p, ok := s.payloads[workflowRunID]
	if !ok {
		return nil, model.NewNotFoundError("Payload for workflow run", workflowRunID)
	}
	return p, nil
}

func (s *fakeStore) AddComment(_ context.Context, workflowRunID, comment, author string) error {
	if s.commentErr != nil {
		return s.commentErr
	}
	s.comments = append(s.comments, postedComment{workflowRunID, comment, author})
	return nil
}

type fakeSchema struct {
	doc string
	err error
}

func (f fakeSchema) Schema(context.Context) (string, error) {
	return f.doc, f.err
}

// fakeExecutions is an in-memory ExecutionService.
type fakeExecutions struct {
	prefix    string
	prefixErr error

	pipelines       map[string]bool
	pipelineErr     error
	pipelineLookups int

	// uris maps a data URI to its data id; visible lists data ids readable
	// from the project.
	uris       map[string]string
	visible    map[string]bool
	resolveErr error
	resolved   []string
}

func (f *fakeExecutions) ProjectStoragePrefix(_ context.Context, projectID string) (string, error) {
	if f.prefixErr != nil {
		return "", f.prefixErr
	}
	return f.prefix, nil
}

func (f *fakeExecutions) GetProjectPipeline(_ context.Context, projectID, pipelineID string) (*icav2.ProjectPipeline, error) {
	f.pipelineLookups++
	if f.pipelineErr != nil {
		return nil, f.pipelineErr
	}
	if !f.pipelines[pipelineID] {
		return nil, model.NewNotFoundError("Pipeline", pipelineID)
	}
	return &icav2.ProjectPipeline{Pipeline: icav2.Pipeline{ID: pipelineID}}, nil
}

func (f *fakeExecutions) ResolveURI(_ context.Context, uri string) (*icav2.ProjectData, error) {
	f.resolved = append(f.resolved, uri)
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	id, ok := f.uris[uri]
	if !ok {
		return nil, model.NewNotFoundError("Data", uri)
	}
	return &icav2.ProjectData{Data: icav2.Data{ID: id, Details: icav2.DataDetails{Path: "/" + strings.TrimPrefix(uri, "s3://")}}}, nil
}

func (f *fakeExecutions) GetProjectData(_ context.Context, projectID, dataID string) (*icav2.ProjectData, error) {
	if !f.visible[dataID] {
		return nil, model.NewNotFoundError("Data", dataID)
	}
	return &icav2.ProjectData{ProjectID: projectID, Data: icav2.Data{ID: dataID}}, nil
}
