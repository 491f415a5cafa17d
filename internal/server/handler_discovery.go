package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	endpoints := []endpointInfo{
		{"/api/v1/health", []string{"GET"}, "Server health and version"},
		{"/api/v1/handlers", []string{"GET"}, "List event handlers"},
		{"/api/v1/handlers/{name}", []string{"POST"}, "Invoke an event handler with the request body as its event"},
		{"/metrics", []string{"GET"}, "Prometheus metrics"},
	}
	if s.store != nil {
		endpoints = append(endpoints,
			endpointInfo{"/api/v1/workflowruns", []string{"GET"}, "List draft workflow runs. Accepts ?status=, ?limit=, ?offset="},
			endpointInfo{"/api/v1/workflowruns/{id}", []string{"GET"}, "Single workflow run with its current state"},
			endpointInfo{"/api/v1/workflowruns/{id}/states", []string{"GET"}, "State history of a workflow run"},
			endpointInfo{"/api/v1/workflowruns/{id}/comments", []string{"GET"}, "Comments on a workflow run"},
		)
	}
	respondOK(w, reqID, discoveryResponse{
		Name:        "dragen-tso500-ctdna pipeline manager",
		Version:     "v1",
		Description: "Event handlers for the dragen-tso500-ctdna workflow",
		Endpoints:   endpoints,
	})
}
