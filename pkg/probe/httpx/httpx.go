// Package httpx adapts a plain HTTP endpoint into a probe for the wait
// engine, for readiness-style waits that do not need a browser: status
// codes, response bodies, JSON and XML payloads, and static HTML structure.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"
)

// ErrUnreachable is the transient failure kind raised when the endpoint
// cannot be reached at all (connection refused, DNS failure, timeout).
// Callers waiting for a service to come up list it in Spec.Ignore.
var ErrUnreachable = errors.New("endpoint unreachable")

const defaultRequestTimeout = 10 * time.Second

// maxBodyBytes bounds how much of a response body a single probe attempt
// will read.
const maxBodyBytes = 4 << 20

// Endpoint is the probe handle: a URL plus the client used to fetch it. The
// endpoint holds no response state; every evaluation fetches a fresh
// snapshot.
type Endpoint struct {
	url    string
	client *http.Client
	header http.Header
	logger *zap.Logger
}

// Option customises an Endpoint.
type Option func(*Endpoint)

// WithClient substitutes the HTTP client, e.g. to disable TLS verification
// or tune timeouts.
func WithClient(c *http.Client) Option {
	return func(e *Endpoint) { e.client = c }
}

// WithHeader adds a request header sent on every probe attempt.
func WithHeader(key, value string) Option {
	return func(e *Endpoint) { e.header.Set(key, value) }
}

// WithLogger attaches a logger for per-fetch debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Endpoint) { e.logger = l }
}

// New builds an Endpoint probe for the given URL.
func New(url string, opts ...Option) *Endpoint {
	e := &Endpoint{
		url:    url,
		client: &http.Client{Timeout: defaultRequestTimeout},
		header: make(http.Header),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// URL returns the endpoint's URL.
func (e *Endpoint) URL() string { return e.url }

// Snapshot is the observed state of one fetch.
type Snapshot struct {
	Status int
	Header http.Header
	Body   []byte
}

// fetch performs one GET against the endpoint. Transport-level failures are
// wrapped in ErrUnreachable so the engine can treat them as transient when
// whitelisted; HTTP-level responses, whatever the status, are snapshots.
func (e *Endpoint) fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", e.url, err)
	}
	for key, values := range e.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		// Surface context errors as-is so cancellation is not mistaken for
		// an unreachable endpoint.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	var reader io.Reader = io.LimitReader(resp.Body, maxBodyBytes)
	if resp.Header.Get("Content-Encoding") == "br" {
		reader = brotli.NewReader(reader)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", e.url, err)
	}

	e.logger.Debug("fetched endpoint",
		zap.String("url", e.url),
		zap.Int("status", resp.StatusCode),
		zap.Int("body_bytes", len(body)))

	return &Snapshot{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
