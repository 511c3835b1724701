package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/ontology-registry/internal/otel"
)

const (
	// DefaultTimeout is the default timeout for management requests
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response size (1MB)
	MaxResponseSize = 1024 * 1024

	// UserAgent is the user agent string for management requests
	UserAgent = "onto-registry/1.0"

	// RequestIDHeader carries a per-request identifier for correlation with service logs
	RequestIDHeader = "X-Request-ID"

	// ManagePath is the path of the management action endpoint
	ManagePath = "/manage"

	// HealthPath is the path polled while waiting for the service
	HealthPath = "/healthz"
)

// manageRequest is the body posted to the management endpoint
type manageRequest struct {
	Action string `json:"action"`
	Param  string `json:"param,omitempty"`
}

// manageResponse is the body returned by the management endpoint
type manageResponse struct {
	Code   int      `json:"code"`
	Values []string `json:"values,omitempty"`
}

// Client talks to the management service over HTTP
type Client struct {
	endpoint     string
	client       *http.Client
	timeout      time.Duration
	pollInterval time.Duration
	tracer       trace.Tracer
	level        *slog.LevelVar
	logger       *slog.Logger
}

var _ Authority = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout. Zero keeps DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithLogHandler sets the handler the client logs through. Output is still
// gated by the client verbosity.
func WithLogHandler(h slog.Handler) Option {
	return func(c *Client) {
		c.logger = slog.New(newVerbosityHandler(h, c.level))
	}
}

// WithTracer sets the tracer used for management call spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// WithVerbosity sets the initial verbosity
func WithVerbosity(v Verbosity) Option {
	return func(c *Client) {
		c.level.Set(v.slogLevel())
	}
}

// WithPollInterval sets the initial interval between readiness probes
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient creates a client for the management service at endpoint
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid management endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("management endpoint %q must use http or https", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("management endpoint %q has no host", endpoint)
	}

	level := &slog.LevelVar{}
	level.Set(DefaultVerbosity.slogLevel())

	c := &Client{
		endpoint:     strings.TrimSuffix(endpoint, "/"),
		timeout:      DefaultTimeout,
		pollInterval: defaultPollInterval,
		level:        level,
		logger:       slog.New(newVerbosityHandler(slog.Default().Handler(), level)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}

	return c, nil
}

// Endpoint returns the base URL of the management service
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Add creates a new named instance
func (c *Client) Add(ctx context.Context, name string) error {
	_, err := c.mutate(ctx, ActionAdd, name)
	return err
}

// Copy creates destName as a copy of srcName
func (c *Client) Copy(ctx context.Context, destName, srcName string) error {
	_, err := c.mutate(ctx, ActionCopy, destName+"="+srcName)
	return err
}

// Delete removes the named instance
func (c *Client) Delete(ctx context.Context, name string) error {
	_, err := c.mutate(ctx, ActionDelete, name)
	return err
}

// List returns the instance names held by the service
func (c *Client) List(ctx context.Context) ([]string, error) {
	values, err := c.mutate(ctx, ActionList, "")
	if err != nil {
		return nil, err
	}
	return values, nil
}

// SetVerbosity changes the verbosity of this client only
func (c *Client) SetVerbosity(level Verbosity) {
	c.level.Set(level.slogLevel())
}

func (c *Client) mutate(ctx context.Context, action, param string) ([]string, error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "manager."+action,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(otel.AttrManageAction.String(action), otel.AttrManageParam.String(param)),
	)
	defer span.End()

	requestID := uuid.NewString()
	values, err := c.do(ctx, requestID, action, param)
	if err != nil {
		otel.RecordError(span, err)
		c.logger.ErrorContext(ctx, "Management call failed",
			"action", action, "param", param, "request_id", requestID, "error", err)
		if !errors.Is(err, ErrRemoteFailure) {
			err = fmt.Errorf("%w: %w", ErrRemoteFailure, err)
		}
		return nil, err
	}

	if action == ActionList {
		c.logger.DebugContext(ctx, "Management call succeeded",
			"action", action, "request_id", requestID, "count", len(values))
	} else {
		c.logger.InfoContext(ctx, "Management call succeeded",
			"action", action, "param", param, "request_id", requestID)
	}
	return values, nil
}

func (c *Client) do(ctx context.Context, requestID, action, param string) ([]string, error) {
	body, err := json.Marshal(manageRequest{Action: action, Param: param})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.endpoint + ManagePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	c.logger.DebugContext(ctx, "Sending management request",
		"action", action, "param", param, "request_id", requestID, "url", target)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, target, resp.Status)
	}

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var result manageResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Code != CodeSuccess {
		return nil, &RemoteError{Action: action, Param: param, Code: result.Code}
	}

	return result.Values, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes",
			resp.ContentLength, MaxResponseSize)
	}

	// +1 to detect if limit exceeded
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	return body, nil
}
