package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Client issues JSON requests against one REST API. It is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
}

// NewClient creates a new API client with the given configuration.
func NewClient(config Config, component string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logger.With("component", component),
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Request describes one API call.
type Request struct {
	// Op names the operation in errors and logs.
	Op     string
	Method string
	Path   string
	Query  url.Values
	Body   any

	// Resource and ID name the target entity when the API answers 404.
	Resource string
	ID       string
}

// Do sends req and decodes a JSON response into out (which may be nil).
// Failures are returned as model errors: 404 as NOT_FOUND, 5xx, 429 and
// transport failures as UNAVAILABLE.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	logger := c.logger.With("op", req.Op, "method", req.Method, "path", req.Path)

	respBody, err := c.doRequest(ctx, req)
	if err != nil {
		logger.Debug("request failed", "error", err)
		return classify(req.Op, req.Resource, req.ID, err)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &Error{Op: req.Op, Err: fmt.Errorf("unmarshaling response: %w", err)}
		}
	}

	logger.Debug("request successful")
	return nil
}

// doRequest performs a single HTTP request and returns the response body.
func (c *Client) doRequest(ctx context.Context, req Request) ([]byte, error) {
	target := c.config.BaseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
