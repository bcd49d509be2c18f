// Package graphclient is the data-access layer for the graph explorer: it
// maps graph operations onto HTTP exchanges with the graph service and
// reduces every outcome to a *Result or an *Error.
package graphclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"graphexplorer/internal/config"
	"graphexplorer/internal/logging"
)

// Doer sends an HTTP request and returns its response. *http.Client
// satisfies it; tests substitute their own.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client issues graph operations against a service rooted at baseURL.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	baseURL string
	doer    Doer
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithDoer replaces the transport. The default is http.DefaultClient.
func WithDoer(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.doer = d
		}
	}
}

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer used to open one span per request.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New returns a Client composing every request as baseURL + path. A trailing
// slash on baseURL is ignored.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    http.DefaultClient,
		logger:  logging.Component(nil, "graphclient"),
		tracer:  otel.Tracer("graphexplorer/graphclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a Client from cfg.APIBaseURL, applying cfg.APITimeout
// (seconds) to a dedicated http.Client. Options are applied afterwards.
func NewFromConfig(cfg config.Config, opts ...Option) (*Client, error) {
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("graphclient: API base URL is required")
	}

	httpClient := &http.Client{}
	if cfg.APITimeout > 0 {
		httpClient.Timeout = time.Duration(cfg.APITimeout) * time.Second
	}

	return New(cfg.APIBaseURL, append([]Option{WithDoer(httpClient)}, opts...)...), nil
}

// BaseURL returns the prefix requests are composed against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs one exchange: method on baseURL+endpoint, with body encoded as
// JSON when it is non-nil. A typed nil (a nil map, slice or pointer) counts as
// no body. endpoint must already be escaped.
//
// The response is interpreted in this order:
//  1. a non-2xx status fails with the body's "error" field when it is a JSON
//     object carrying one, otherwise with the status and raw body text;
//  2. 204 or Content-Length: 0 yields SuccessResult without reading a body;
//  3. anything else is decoded as JSON and returned verbatim.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "graphclient "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("graph.endpoint", endpoint),
		))
	defer span.End()

	start := time.Now()

	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, recordFailure(span, err)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		c.logger.Debug("graph request failed", "method", method, "endpoint", endpoint, "error", err)
		return nil, recordFailure(span, &Error{Kind: KindTransport, Message: err.Error(), Err: err})
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	res, err := interpret(resp)
	c.logger.Debug("graph request",
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	if err != nil {
		return nil, recordFailure(span, err)
	}
	return res, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	var reader io.Reader
	hasBody := !isNil(body)
	if hasBody {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindRequest, Message: fmt.Sprintf("encode request body: %v", err), Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Message: fmt.Sprintf("create request: %v", err), Err: err}
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func interpret(resp *http.Response) (*Result, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, readError(resp.StatusCode, err)
		}
		return nil, classifyFailure(resp.StatusCode, text)
	}

	if resp.StatusCode == http.StatusNoContent || resp.Header.Get("Content-Length") == "0" {
		return SuccessResult(), nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, readError(resp.StatusCode, err)
	}
	return decodeResult(resp.StatusCode, data)
}

func readError(status int, err error) *Error {
	return &Error{
		Kind:       KindTransport,
		StatusCode: status,
		Message:    fmt.Sprintf("read response body: %v", err),
		Err:        err,
	}
}

func recordFailure(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
