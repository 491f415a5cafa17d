// Package icav2 is a client for the parts of the Illumina Connected
// Analytics v2 REST API used to validate engine parameters and inputs.
package icav2

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/restclient"
)

// DefaultBaseURL is the public ICAv2 REST root.
const DefaultBaseURL = "https://ica.illumina.com/ica/rest"

// Client queries ICAv2 projects, storage configurations, pipelines and data.
type Client struct {
	api *restclient.Client
}

// NewClient creates an ICAv2 client.
func NewClient(config restclient.Config, logger *slog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	return &Client{api: restclient.NewClient(config, "icav2-client", logger)}
}

// GetProject fetches a project.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var p Project
	err := c.api.Do(ctx, restclient.Request{
		Op:       "get project",
		Method:   http.MethodGet,
		Path:     "/api/projects/" + url.PathEscape(projectID),
		Resource: "Project",
		ID:       projectID,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects lists the projects visible to the token.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var list itemList[Project]
	err := c.api.Do(ctx, restclient.Request{
		Op:     "list projects",
		Method: http.MethodGet,
		Path:   "/api/projects",
		Query:  url.Values{"includeHiddenProjects": {"true"}},
	}, &list)
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetStorageConfiguration fetches a storage configuration.
func (c *Client) GetStorageConfiguration(ctx context.Context, id string) (*StorageConfiguration, error) {
	var sc StorageConfiguration
	err := c.api.Do(ctx, restclient.Request{
		Op:       "get storage configuration",
		Method:   http.MethodGet,
		Path:     "/api/storageConfigurations/" + url.PathEscape(id),
		Resource: "StorageConfiguration",
		ID:       id,
	}, &sc)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// ListStorageConfigurations lists all storage configurations.
func (c *Client) ListStorageConfigurations(ctx context.Context) ([]StorageConfiguration, error) {
	var list itemList[StorageConfiguration]
	err := c.api.Do(ctx, restclient.Request{
		Op:     "list storage configurations",
		Method: http.MethodGet,
		Path:   "/api/storageConfigurations",
	}, &list)
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ProjectStoragePrefix returns the s3:// prefix backing a project.
func (c *Client) ProjectStoragePrefix(ctx context.Context, projectID string) (string, error) {
	p, err := c.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	if p.SelfManagedStorageConfiguration == nil || p.SelfManagedStorageConfiguration.ID == "" {
		return "", model.NewValidationError(fmt.Sprintf("project %s has no self-managed storage configuration", projectID))
	}
	sc, err := c.GetStorageConfiguration(ctx, p.SelfManagedStorageConfiguration.ID)
	if err != nil {
		return "", err
	}
	prefix := sc.Prefix()
	if prefix == "" {
		return "", model.NewValidationError(fmt.Sprintf("storage configuration %s is not backed by S3", sc.ID))
	}
	return prefix, nil
}

// GetProjectPipeline checks that pipelineID is linked to projectID. A
// missing link is a NOT_FOUND error.
func (c *Client) GetProjectPipeline(ctx context.Context, projectID, pipelineID string) (*ProjectPipeline, error) {
	var pp ProjectPipeline
	err := c.api.Do(ctx, restclient.Request{
		Op:       "get project pipeline",
		Method:   http.MethodGet,
		Path:     "/api/projects/" + url.PathEscape(projectID) + "/pipelines/" + url.PathEscape(pipelineID),
		Resource: "Pipeline",
		ID:       pipelineID,
	}, &pp)
	if err != nil {
		return nil, err
	}
	return &pp, nil
}

// GetProjectData fetches a data object within a project.
func (c *Client) GetProjectData(ctx context.Context, projectID, dataID string) (*ProjectData, error) {
	var pd ProjectData
	err := c.api.Do(ctx, restclient.Request{
		Op:       "get project data",
		Method:   http.MethodGet,
		Path:     "/api/projects/" + url.PathEscape(projectID) + "/data/" + url.PathEscape(dataID),
		Resource: "Data",
		ID:       dataID,
	}, &pd)
	if err != nil {
		return nil, err
	}
	return &pd, nil
}

// FindProjectDataByPath looks up a file by its absolute path in a project.
func (c *Client) FindProjectDataByPath(ctx context.Context, projectID, path string) (*ProjectData, error) {
	var list itemList[ProjectData]
	err := c.api.Do(ctx, restclient.Request{
		Op:     "find project data",
		Method: http.MethodGet,
		Path:   "/api/projects/" + url.PathEscape(projectID) + "/data",
		Query: url.Values{
			"filePath":          {path},
			"filePathMatchMode": {"FULL_CASE_INSENSITIVE"},
		},
		Resource: "Data",
		ID:       path,
	}, &list)
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, model.NewNotFoundError("Data", path)
	}
	return &list.Items[0], nil
}

// ResolveURI finds the data object an s3:// URI points at. The URI is
// matched to the project whose storage prefix contains it, then looked up
// by path inside that project.
func (c *Client) ResolveURI(ctx context.Context, uri string) (*ProjectData, error) {
	configs, err := c.ListStorageConfigurations(ctx)
	if err != nil {
		return nil, err
	}
	owners := make(map[string]string)
	for _, sc := range configs {
		if prefix := sc.Prefix(); prefix != "" && strings.HasPrefix(uri, prefix) {
			owners[sc.ID] = prefix
		}
	}
	if len(owners) == 0 {
		return nil, model.NewNotFoundError("Storage configuration for", uri)
	}

	projects, err := c.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.SelfManagedStorageConfiguration == nil {
			continue
		}
		prefix, ok := owners[p.SelfManagedStorageConfiguration.ID]
		if !ok {
			continue
		}
		path := "/" + strings.TrimPrefix(uri, prefix)
		pd, err := c.FindProjectDataByPath(ctx, p.ID, path)
		if model.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return pd, nil
	}
	return nil, model.NewNotFoundError("Data", uri)
}

// S3Prefix joins a bucket and key prefix into an s3:// URI ending in "/".
func S3Prefix(bucket, keyPrefix string) string {
	keyPrefix = strings.Trim(keyPrefix, "/")
	if keyPrefix == "" {
		return "s3://" + bucket + "/"
	}
	return "s3://" + bucket + "/" + keyPrefix + "/"
}
