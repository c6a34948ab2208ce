// Package api is the HTTP client for the status backend: the aggregate
// snapshot, trigger-check and Prometheus graph endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rileyhilliard/statuspage/internal/logger"
)

// Supported proxy base paths. The backend is mounted at /api directly or at
// /canary/api behind the dashboard proxy.
const (
	BasePathDirect = "/api"
	BasePathCanary = "/canary/api"
)

// Endpoint paths relative to the base path.
const (
	PathAggregate    = "/aggregate"
	PathTriggerCheck = "/triggerCheck"
	PathGraph        = "/prometheus/graph"
)

// maxErrorBody caps how much of an error response is kept as detail.
const maxErrorBody = 4096

// TransportError means no response was received from the backend.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError means a response was received but it was not a success, or
// its payload could not be used.
type StatusError struct {
	StatusCode int
	// Detail is the server supplied error text, or a description of why the
	// payload was rejected.
	Detail string
}

func (e *StatusError) Error() string {
	if e.StatusCode == 0 {
		return e.Detail
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Detail)
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Detail returns the server supplied detail of a StatusError, or the error
// text for anything else.
func Detail(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Detail
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Options configures a Client.
type Options struct {
	// BaseURL is the backend origin, e.g. http://localhost:8080.
	BaseURL string
	// BasePath is the proxy mount point, BasePathDirect when empty.
	BasePath string
	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is nil. Zero keeps the client default
	// of no timeout.
	Timeout time.Duration
	Logger  logger.Logger
}

// Client talks to the status backend.
type Client struct {
	baseURL    string
	basePath   string
	httpClient *http.Client
	log        logger.Logger
}

// NewClient creates a backend client.
func NewClient(opts Options) *Client {
	basePath := opts.BasePath
	if basePath == "" {
		basePath = BasePathDirect
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		basePath:   "/" + strings.Trim(basePath, "/"),
		httpClient: httpClient,
		log:        log,
	}
}

// URL returns the absolute URL of an endpoint path.
func (c *Client) URL(path string) string {
	return c.baseURL + c.basePath + path
}

// Aggregate fetches the current snapshot of checks and servers.
func (c *Client) Aggregate(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := c.doRequest(ctx, http.MethodGet, PathAggregate, nil, &snap); err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, &StatusError{StatusCode: http.StatusOK, Detail: "invalid aggregate response: " + err.Error()}
	}
	return &snap, nil
}

// TriggerCheck asks the backend to re-run a check on one server.
func (c *Client) TriggerCheck(ctx context.Context, req TriggerRequest) error {
	return c.doRequest(ctx, http.MethodPost, PathTriggerCheck, req, nil)
}

// PrometheusGraph fetches the success, failed and latency series of a check.
func (c *Client) PrometheusGraph(ctx context.Context, req GraphRequest) (*GraphResponse, error) {
	var graph GraphResponse
	if err := c.doRequest(ctx, http.MethodPost, PathGraph, req, &graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

// doRequest performs a JSON request. A nil result discards the body.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	url := c.URL(path)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("%s %s failed after %s: %v", method, url, time.Since(start), err)
		return &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()
	c.log.Debug("%s %s -> %d in %s", method, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := strings.TrimSpace(string(data))
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return &StatusError{StatusCode: resp.StatusCode, Detail: detail}
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &StatusError{StatusCode: resp.StatusCode, Detail: "failed to decode response: " + err.Error()}
	}
	return nil
}
