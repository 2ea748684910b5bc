// Package httpclient implements the resilient HTTP executor every client
// call goes through: bearer auth, bounded deadlines, retry with exponential
// backoff and jitter, and classification of failures into the bitbucket
// error taxonomy.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

// DefaultRequestTimeout bounds a call whose context carries no deadline.
const DefaultRequestTimeout = 30 * time.Second

const requestIDHeader = "X-Request-Id"

// Request describes a single API call. Consumed once per call; retries reuse
// the same immutable request.
type Request struct {
	Method  string
	Path    string // relative API path, or an absolute URL followed verbatim
	Query   url.Values
	Headers map[string]string
	Body    interface{}
	Accept  string // defaults to application/json
}

// Response is a completed non-error HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client performs authenticated HTTP calls with retry.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	timeout    time.Duration
	policy     bitbucket.RetryPolicy
	logger     bitbucket.Logger
	debug      bool
	httpClient *http.Client
	retry      *retryablehttp.Client
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger attempts and retries are reported through.
func WithLogger(logger bitbucket.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDebug enables per-attempt and per-response debug logging.
func WithDebug(debug bool) Option {
	return func(c *Client) { c.debug = debug }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) { c.userAgent = agent }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(policy bitbucket.RetryPolicy) Option {
	return func(c *Client) { c.policy = policy }
}

// WithRequestTimeout sets the fallback deadline applied when the caller's
// context has none.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a client for the given API base URL. The token, when non-empty,
// is forwarded as a bearer token on every request.
func New(baseURL, token string, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		timeout: DefaultRequestTimeout,
		policy:  bitbucket.DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(client)
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = client.policy.MaxRetries
	retry.Logger = nil
	retry.CheckRetry = client.checkRetry
	retry.Backoff = client.Backoff
	retry.RequestLogHook = client.logAttempt
	// Hand the last response back instead of discarding it, so transient
	// errors can carry the final status and body.
	retry.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if client.httpClient != nil {
		retry.HTTPClient = client.httpClient
	}

	client.retry = retry

	return client
}

// checkRetry decides whether an attempt's outcome is worth retrying. A spent
// caller deadline is never retried: the deadline is the caller's contract,
// not a transient condition.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return false, err
		}

		// Transport-level failure (connection refused, DNS, reset).
		return true, nil
	}

	if resp != nil && c.policy.Retryable(resp.StatusCode) {
		return true, nil
	}

	return false, nil
}

// Backoff computes the delay before retry attempt i (0-indexed):
//
//	min(base*2^i + uniform(0, base), BackoffCap)
//
// Jitter is drawn fresh per attempt so synchronized clients don't retry in
// lockstep. Exported so tests can assert the bounds directly.
func (c *Client) Backoff(_, _ time.Duration, attempt int, resp *http.Response) time.Duration {
	base := c.policy.BaseDelay
	if base <= 0 {
		base = bitbucket.DefaultBaseDelay
	}

	delay := base << uint(attempt)
	if delay <= 0 || delay > bitbucket.BackoffCap {
		delay = bitbucket.BackoffCap
	} else {
		delay += time.Duration(rand.Int64N(int64(base) + 1))
		if delay > bitbucket.BackoffCap {
			delay = bitbucket.BackoffCap
		}
	}

	if c.logger != nil {
		fields := map[string]interface{}{"delay": delay.String(), "attempt": attempt}
		if resp != nil {
			fields["status"] = resp.StatusCode
		} else {
			fields["status"] = "network error"
		}

		c.logger.Warn("retrying request", fields)
	}

	return delay
}

// logAttempt emits one debug entry per attempt, including retries.
func (c *Client) logAttempt(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if c.logger == nil || !c.debug {
		return
	}

	c.logger.Debug("HTTP Request", map[string]interface{}{
		"method":     req.Method,
		"url":        req.URL.String(),
		"attempt":    attempt,
		"request_id": req.Header.Get(requestIDHeader),
	})
}

// buildURL joins the base URL, path, and query. Absolute paths (continuation
// URLs from cursor pagination) pass through untouched except for extra query
// values.
func (c *Client) buildURL(path string, query url.Values) string {
	full := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		full = c.baseURL + path
	}

	if len(query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}

		full += sep + query.Encode()
	}

	return full
}

// Do performs the request, retrying per policy, and returns either a
// successful response or a classified *bitbucket.Error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)

		defer cancel()
	}

	fullURL := c.buildURL(req.Path, req.Query)

	var payload []byte

	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		payload = encoded
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	accept := req.Accept
	if accept == "" {
		accept = "application/json"
	}

	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set(requestIDHeader, uuid.NewString())

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.retry.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransport(ctx, req.Path, err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &bitbucket.Error{
			Kind:     bitbucket.ErrorKindNetwork,
			Resource: req.Path,
			Message:  "reading response body",
			Err:      err,
		}
	}

	if c.logger != nil && c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    fullURL,
		})
	}

	if resp.StatusCode >= 400 {
		return nil, c.classifyStatus(req.Path, resp.StatusCode, body)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) classifyTransport(ctx context.Context, resource string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &bitbucket.Error{
			Kind:     bitbucket.ErrorKindTimeout,
			Resource: resource,
			Message:  "deadline exceeded",
			Err:      err,
		}
	}

	return &bitbucket.Error{
		Kind:     bitbucket.ErrorKindNetwork,
		Resource: resource,
		Message:  "request failed",
		Err:      err,
	}
}

func (c *Client) classifyStatus(resource string, status int, body []byte) error {
	kind := bitbucket.ErrorKindInvalidRequest

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = bitbucket.ErrorKindAuthentication
	case status == http.StatusNotFound:
		kind = bitbucket.ErrorKindNotFound
	case status == http.StatusConflict:
		kind = bitbucket.ErrorKindConflict
	case c.policy.Retryable(status):
		// A retryable status surfacing here means the retry budget is spent.
		kind = bitbucket.ErrorKindTransient
	}

	message := bitbucket.ExtractAPIMessage(body)
	if message == "" {
		message = http.StatusText(status)
	}

	return &bitbucket.Error{
		Kind:       kind,
		StatusCode: status,
		Resource:   resource,
		Message:    message,
		Body:       body,
	}
}

// Get performs a GET expecting a JSON response.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// GetText performs a GET expecting a plain-text response (diffs, patches).
func (c *Client) GetText(ctx context.Context, path string, query url.Values) (string, error) {
	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query, Accept: "text/plain"})
	if err != nil {
		return "", err
	}

	return string(resp.Body), nil
}

// Post performs a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete performs a DELETE. Data Center versioned deletes carry a JSON body
// with the version token, so a body is accepted here.
func (c *Client) Delete(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path, Body: body})
}
