// Package workflowmanager is a client for the OrcaBus workflow manager
// REST API, the store of draft workflow runs, their payloads and comments.
package workflowmanager

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sort"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/restclient"
)

// Client reads and annotates workflow runs through the workflow manager.
type Client struct {
	api *restclient.Client
}

// NewClient creates a workflow manager client.
func NewClient(config restclient.Config, logger *slog.Logger) *Client {
	return &Client{api: restclient.NewClient(config, "workflow-manager-client", logger)}
}

type workflowRunList struct {
	Results []model.WorkflowRun `json:"results"`
}

type commentRequest struct {
	Text      string `json:"text"`
	CreatedBy string `json:"createdBy"`
}

// GetWorkflowRunByPortalRunID looks a run up by its portal run id.
func (c *Client) GetWorkflowRunByPortalRunID(ctx context.Context, portalRunID string) (*model.WorkflowRun, error) {
	var list workflowRunList
	err := c.api.Do(ctx, restclient.Request{
		Op:       "list workflow runs",
		Method:   http.MethodGet,
		Path:     "/api/v1/workflowrun/",
		Query:    url.Values{"portalRunId": {portalRunID}},
		Resource: "WorkflowRun",
		ID:       portalRunID,
	}, &list)
	if err != nil {
		return nil, err
	}
	if len(list.Results) == 0 {
		return nil, model.NewNotFoundError("WorkflowRun", portalRunID)
	}
	return &list.Results[0], nil
}

// GetWorkflowRun fetches a run by its orcabus id.
func (c *Client) GetWorkflowRun(ctx context.Context, orcabusID string) (*model.WorkflowRun, error) {
	var run model.WorkflowRun
	err := c.api.Do(ctx, restclient.Request{
		Op:       "get workflow run",
		Method:   http.MethodGet,
		Path:     "/api/v1/workflowrun/" + url.PathEscape(orcabusID) + "/",
		Resource: "WorkflowRun",
		ID:       orcabusID,
	}, &run)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetLatestPayload returns the payload attached to the most recent state
// of the run that carries one.
func (c *Client) GetLatestPayload(ctx context.Context, workflowRunID string) (*model.Payload, error) {
	states, err := c.listStates(ctx, workflowRunID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(states, func(i, j int) bool {
		return states[i].Timestamp.After(states[j].Timestamp)
	})
	for _, st := range states {
		if st.Payload == "" {
			continue
		}
		var payload model.Payload
		err := c.api.Do(ctx, restclient.Request{
			Op:       "get payload",
			Method:   http.MethodGet,
			Path:     "/api/v1/payload/" + url.PathEscape(st.Payload) + "/",
			Resource: "Payload",
			ID:       st.Payload,
		}, &payload)
		if err != nil {
			return nil, err
		}
		return &payload, nil
	}
	return nil, model.NewNotFoundError("Payload for WorkflowRun", workflowRunID)
}

// listStates accepts both a bare list and a paginated results object.
func (c *Client) listStates(ctx context.Context, workflowRunID string) ([]model.State, error) {
	var raw json.RawMessage
	err := c.api.Do(ctx, restclient.Request{
		Op:       "list workflow run states",
		Method:   http.MethodGet,
		Path:     "/api/v1/workflowrun/" + url.PathEscape(workflowRunID) + "/state/",
		Resource: "WorkflowRun",
		ID:       workflowRunID,
	}, &raw)
	if err != nil {
		return nil, err
	}

	var states []model.State
	if err := json.Unmarshal(raw, &states); err == nil {
		return states, nil
	}
	var page struct {
		Results []model.State `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, &restclient.Error{Op: "list workflow run states", Err: err}
	}
	return page.Results, nil
}

// AddComment attaches a comment to a run.
func (c *Client) AddComment(ctx context.Context, workflowRunID, comment, author string) error {
	return c.api.Do(ctx, restclient.Request{
		Op:       "add comment",
		Method:   http.MethodPost,
		Path:     "/api/v1/workflowrun/" + url.PathEscape(workflowRunID) + "/comment/",
		Body:     commentRequest{Text: comment, CreatedBy: author},
		Resource: "WorkflowRun",
		ID:       workflowRunID,
	}, nil)
}
