package llm

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a single completion call
const DefaultTimeout = 120 * time.Second

// ClientOption configures a backend client
type ClientOption func(*clientOptions)

type clientOptions struct {
	timeout    time.Duration
	httpClient *http.Client
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithHTTPClient replaces the HTTP client; its own timeout is kept
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

func applyOptions(opts []ClientOption) clientOptions {
	o := clientOptions{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	return o
}
