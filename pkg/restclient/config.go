// Package restclient is the shared JSON-over-HTTP plumbing used by the
// workflow manager and ICAv2 clients.
package restclient

import "time"

// DefaultTimeout bounds each request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Config holds the connection settings of one REST API.
type Config struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// Token is sent as a bearer token when non-empty.
	Token string

	// Timeout is the HTTP client timeout for each request.
	Timeout time.Duration
}

// DefaultConfig returns a Config for baseURL with default settings.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: DefaultTimeout,
	}
}

// WithToken returns a copy of the config with the specified token.
func (c Config) WithToken(token string) Config {
	c.Token = token
	return c
}

// WithTimeout returns a copy of the config with the specified timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}
