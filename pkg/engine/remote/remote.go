// Package remote implements a layout engine that delegates to an
// elkjs-compatible HTTP service.
//
// The request is POSTed as JSON, {"graph": <root>, "layoutOptions": {...}},
// and the service answers with the laid-out root node in ELK JSON. A minimal
// service around elkjs is:
//
//	app.post("/layout", async (req, res) => {
//	  const { graph, layoutOptions } = req.body;
//	  res.json(await elk.layout(graph, { layoutOptions }));
//	});
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/statelayout/pkg/engine"
	"github.com/matzehuels/statelayout/pkg/httputil"
	"github.com/matzehuels/statelayout/pkg/observability"
)

const defaultTimeout = 30 * time.Second

// ErrNetwork is returned for transport failures and 5xx responses.
var ErrNetwork = errors.New("network error")

// StatusError is returned when the service answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("layout service: status %d", e.Code)
	}
	return fmt.Sprintf("layout service: status %d: %s", e.Code, e.Body)
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient sets the HTTP client. The default has a 30s timeout.
func WithHTTPClient(c *http.Client) Option { return func(e *Engine) { e.client = c } }

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option { return func(e *Engine) { e.headers[key] = value } }

// WithRetries sets how many times a request failing with ErrNetwork is
// retried. The default is 0.
func WithRetries(n int) Option { return func(e *Engine) { e.retries = max(n, 0) } }

// Engine posts requests to a layout service.
type Engine struct {
	endpoint string
	client   *http.Client
	headers  map[string]string
	retries  int
}

// New returns an engine for the service at endpoint.
func New(endpoint string, opts ...Option) *Engine {
	e := &Engine{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		headers:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name identifies the engine in logs and metrics.
func (*Engine) Name() string { return "remote" }

// Layout implements engine.Engine.
func (e *Engine) Layout(ctx context.Context, req *engine.Request) (*engine.ResultNode, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var res engine.ResultNode
	err = httputil.Retry(ctx, e.retries+1, 500*time.Millisecond, func() error {
		return e.post(ctx, body, &res)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (e *Engine) post(ctx context.Context, body []byte, v any) error {
	u, err := url.Parse(e.endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", e.endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, http.MethodPost, u.Host, u.Path)
	start := time.Now()

	resp, err := e.client.Do(req)
	if err != nil {
		hooks.OnError(ctx, http.MethodPost, u.Host, u.Path, err)
		return &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, http.MethodPost, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		serr := &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
		if resp.StatusCode >= 500 {
			return &httputil.RetryableError{Err: fmt.Errorf("%w: %w", ErrNetwork, serr)}
		}
		return serr
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ engine.Engine = (*Engine)(nil)
