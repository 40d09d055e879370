// Package activityapi is a client for the backend activity HTTP JSON API.
//
// Example usage:
//
//	client := activityapi.New("http://localhost:8000", activityapi.WithTimeout(5*time.Second))
//	activities, err := client.ListActivities(ctx)
//	res, err := client.Signup(ctx, "Chess Club", "emma@mergington.edu")
//
// Every response body is parsed defensively: a body that is not the expected
// JSON yields *MalformedResponseError, never a panic or a zero value.
package activityapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"activityboard/internal/adapters/http/perf"
	"activityboard/internal/domain/activity"
	"activityboard/internal/metrics"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// Operation names used in errors, logs and metrics.
const (
	OpList       = "list"
	OpSignup     = "signup"
	OpUnregister = "unregister"
)

// Result is the outcome of an accepted mutation.
type Result struct {
	StatusCode int
	Message    string
}

// Client calls the activity API rooted at a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	collector  *perf.Collector
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithCollector records request timings for the perf dashboard.
func WithCollector(col *perf.Collector) Option {
	return func(c *Client) { c.collector = col }
}

// New creates a Client for the API at baseURL (scheme and host, optional path prefix).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListActivities fetches the full activity collection.
// PRE: ctx is valid
// POST: Returns the collection in delivery order, or a typed error
func (c *Client) ListActivities(ctx context.Context) (activity.Collection, error) {
	resp, err := c.do(ctx, OpList, http.MethodGet, c.baseURL+"/activities")
	if err != nil {
		return activity.Collection{}, err
	}
	if !isSuccess(resp.status) {
		return activity.Collection{}, c.failure(OpList, resp)
	}
	col, err := activity.DecodeCollection(bytes.NewReader(resp.body))
	if err != nil {
		c.record(OpList, KindMalformed, resp)
		return activity.Collection{}, &MalformedResponseError{Op: OpList, StatusCode: resp.status, Err: err}
	}
	c.record(OpList, KindNone, resp)
	return col, nil
}

// Signup registers email for the named activity.
// PRE: activityName and email are non-empty
// POST: Returns the server message on 2xx, or a typed error
func (c *Client) Signup(ctx context.Context, activityName, email string) (Result, error) {
	return c.mutate(ctx, OpSignup, http.MethodPost, activityName, "signup", email)
}

// Unregister removes email from the named activity.
// PRE: activityName and email are non-empty
// POST: Returns the server message on 2xx, or a typed error
func (c *Client) Unregister(ctx context.Context, activityName, email string) (Result, error) {
	return c.mutate(ctx, OpUnregister, http.MethodDelete, activityName, "unregister", email)
}

// mutationURL builds /activities/{name}/{verb}?email={email} with both values percent-encoded.
func (c *Client) mutationURL(activityName, verb, email string) string {
	q := url.Values{"email": {email}}
	return c.baseURL + "/activities/" + url.PathEscape(activityName) + "/" + verb + "?" + q.Encode()
}

type messagePayload struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (c *Client) mutate(ctx context.Context, op, method, activityName, verb, email string) (Result, error) {
	resp, err := c.do(ctx, op, method, c.mutationURL(activityName, verb, email))
	if err != nil {
		return Result{}, err
	}
	if !isSuccess(resp.status) {
		return Result{StatusCode: resp.status}, c.failure(op, resp)
	}
	var p messagePayload
	if err := decodePayload(resp.body, &p); err != nil {
		c.record(op, KindMalformed, resp)
		return Result{StatusCode: resp.status}, &MalformedResponseError{Op: op, StatusCode: resp.status, Err: err}
	}
	c.record(op, KindNone, resp)
	return Result{StatusCode: resp.status, Message: p.Message}, nil
}

// failure converts a non-2xx response into a ServerError, or a
// MalformedResponseError when its body is not a JSON object.
func (c *Client) failure(op string, resp response) error {
	var p messagePayload
	if err := decodePayload(resp.body, &p); err != nil {
		c.record(op, KindMalformed, resp)
		return &MalformedResponseError{Op: op, StatusCode: resp.status, Err: err}
	}
	c.record(op, KindServer, resp)
	return &ServerError{Op: op, StatusCode: resp.status, Detail: p.Detail}
}

type response struct {
	status  int
	body    []byte
	start   time.Time
	elapsed time.Duration
}

// do performs the request and reads the body. Only transport-level failures
// are returned as errors; the status code is left for the caller.
func (c *Client) do(ctx context.Context, op, method, target string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return response{}, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp := response{start: c.now()}
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.elapsed = c.now().Sub(resp.start)
		c.record(op, KindNetwork, resp)
		return response{}, &NetworkError{Op: op, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	resp.elapsed = c.now().Sub(resp.start)
	resp.status = httpResp.StatusCode
	if err != nil {
		c.record(op, KindNetwork, resp)
		return response{}, &NetworkError{Op: op, Err: err}
	}
	resp.body = body
	return resp, nil
}

// record publishes one finished request to logs, metrics and the perf collector.
func (c *Client) record(op string, kind ErrorKind, resp response) {
	outcome := string(kind)
	if kind == KindNone {
		outcome = "ok"
	}
	slog.Debug("upstream_request",
		"op", op,
		"status", resp.status,
		"outcome", outcome,
		"duration_ms", float64(resp.elapsed.Microseconds())/1000.0,
	)
	c.metrics.ObserveUpstream(op, outcome, resp.elapsed)
	c.collector.Record(perf.Entry{
		Kind:       perf.KindUpstream,
		Path:       "upstream " + op,
		StatusCode: resp.status,
		DurationMs: float64(resp.elapsed.Microseconds()) / 1000.0,
		Timestamp:  resp.start,
	})
}

// decodePayload parses a JSON object body. An empty body counts as an empty object.
func decodePayload(body []byte, v *messagePayload) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] != '{' {
		return errors.New("body is not a JSON object")
	}
	return json.Unmarshal(trimmed, v)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
