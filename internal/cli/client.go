package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// Client is an HTTP client for a running tso500ctdna server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a server API client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Logger:     logger,
	}
}

// apiResponse is the parsed envelope.
type apiResponse struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

// do performs an HTTP request with a raw body and returns the parsed envelope.
func (c *Client) do(method, path string, body []byte) (*apiResponse, error) {
	url := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
		c.Logger.Debug("HTTP request body", "body", string(body))
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.Logger.Debug("HTTP request", "method", method, "url", url)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.Logger.Debug("HTTP response", "status", resp.StatusCode, "body", string(respBody))

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w\nbody: %s", resp.StatusCode, err, string(respBody))
	}

	if apiResp.Status == "error" && apiResp.Error != nil {
		return &apiResp, apiResp.Error
	}

	return &apiResp, nil
}

// Invoke runs the named handler on the server and returns its raw result.
func (c *Client) Invoke(name string, event []byte) (json.RawMessage, error) {
	resp, err := c.do(http.MethodPost, "/api/v1/handlers/"+name, event)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Handlers lists the handlers registered on the server.
func (c *Client) Handlers() ([]model.HandlerInfo, error) {
	resp, err := c.do(http.MethodGet, "/api/v1/handlers/", nil)
	if err != nil {
		return nil, err
	}
	var infos []model.HandlerInfo
	if err := json.Unmarshal(resp.Data, &infos); err != nil {
		return nil, fmt.Errorf("parse handlers: %w", err)
	}
	return infos, nil
}
