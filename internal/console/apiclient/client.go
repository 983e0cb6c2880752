// Package apiclient is the single request-dispatch path to the backend REST
// API. Every call carries the session credential and impersonation scope,
// and a 401 from any endpoint expires the session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	platformotel "github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/otel"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/requestctx"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/timeouts"
)

const maxResponseBytes = 4 << 20

// Config wires a Client to one application session.
type Config struct {
	BaseURL     string
	HTTPClient  *http.Client
	Credentials CredentialSource
	Target      TargetSource
	// TenantScope returns the tenant the caller acts on, impersonated or
	// owned. It keys the response cache so a write by any caller purges every
	// cached view of that tenant. When nil the impersonated tenant is used.
	TenantScope func(ctx context.Context) string
	// OnUnauthorized runs once per 401 response, before the error returns.
	OnUnauthorized func(ctx context.Context) error
	Cache          *ResponseCache
	Timeout        time.Duration
}

// Client dispatches backend requests.
type Client struct {
	baseURL        string
	base           http.RoundTripper
	credentials    CredentialSource
	target         TargetSource
	tenantScope    func(ctx context.Context) string
	onUnauthorized func(ctx context.Context) error
	cache          *ResponseCache
	timeout        time.Duration
	tracer         trace.Tracer
}

// New validates cfg and builds a client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	var base http.RoundTripper
	if cfg.HTTPClient != nil {
		base = cfg.HTTPClient.Transport
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = timeouts.APIRequest
	}
	return &Client{
		baseURL:        baseURL,
		base:           base,
		credentials:    cfg.Credentials,
		target:         cfg.Target,
		tenantScope:    cfg.TenantScope,
		onUnauthorized: cfg.OnUnauthorized,
		cache:          cfg.Cache,
		timeout:        timeout,
		tracer:         platformotel.Tracer("apiclient"),
	}, nil
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	// Params become the query string; empty values are skipped.
	Params map[string]string
	// Body is JSON-encoded.
	Body any
	// NoCache bypasses the response cache for a GET.
	NoCache bool
}

// Get issues a GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, params map[string]string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Params: params}, out)
}

// Post issues a JSON POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put issues a JSON PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete issues a DELETE with optional query params.
func (c *Client) Delete(ctx context.Context, path string, params map[string]string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Params: params}, out)
}

// Do sends req and decodes a successful response into out. out may be nil,
// a *[]byte or *json.RawMessage for the raw body, or any JSON target.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target := c.endpoint(req.Path, req.Params)

	credential, err := c.credential(ctx)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "read credential", Err: err}
	}
	tenantID := ""
	if c.target != nil {
		if id, ok := c.target.TenantID(ctx); ok {
			tenantID = id
		}
	}
	scopeTenant := tenantID
	if c.tenantScope != nil {
		if id := c.tenantScope(ctx); id != "" {
			scopeTenant = id
		}
	}
	scope := scopeKey(credential, scopeTenant)
	cacheable := method == http.MethodGet && !req.NoCache
	if cacheable {
		if body, ok := c.cache.get(cacheKey(scope, method, target)); ok {
			return decode(body, out)
		}
	}

	ctx, span := c.tracer.Start(ctx, "apiclient.dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", req.Path),
			attribute.Bool("smartappt.impersonating", tenantID != ""),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.newRequest(ctx, method, target, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return &Error{Kind: KindTransport, Message: err.Error(), Err: err}
	}

	httpClient := &http.Client{Transport: roundTripper(c.base, credential, tenantID)}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return &Error{Kind: KindTransport, Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		span.RecordError(err)
		return &Error{Kind: KindTransport, Status: resp.StatusCode, Message: transportMessage(err), Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		span.SetStatus(codes.Error, "unauthorized")
		log.Printf("dispatch unauthorized method=%s path=%s request_id=%s", method, req.Path, httpReq.Header.Get(requestctx.RequestIDHeader))
		if c.onUnauthorized != nil {
			if hookErr := c.onUnauthorized(ctx); hookErr != nil {
				log.Printf("expire session after 401 failed err=%v", hookErr)
			}
		}
		return &Error{Kind: KindUnauthorized, Status: resp.StatusCode, Message: "Unauthorized"}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := responseError(resp.StatusCode, body)
		span.SetStatus(codes.Error, string(apiErr.Kind))
		return apiErr
	}

	if cacheable {
		c.cache.add(cacheKey(scope, method, target), body)
	} else if method != http.MethodGet {
		c.cache.purgeScope(scope, scopeTenant)
	}
	return decode(body, out)
}

func (c *Client) credential(ctx context.Context) (string, error) {
	if c.credentials == nil {
		return "", nil
	}
	credential, ok, err := c.credentials.Credential(ctx)
	if err != nil || !ok {
		return "", err
	}
	return credential, nil
}

func (c *Client) endpoint(path string, params map[string]string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := c.baseURL + path
	if query := encodeParams(params); query != "" {
		target += "?" + query
	}
	return target
}

func (c *Client) newRequest(ctx context.Context, method, target string, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	requestID := requestctx.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set(requestctx.RequestIDHeader, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	return httpReq, nil
}

func encodeParams(params map[string]string) string {
	values := url.Values{}
	for key, value := range params {
		if value == "" {
			continue
		}
		values.Set(key, value)
	}
	return values.Encode()
}

func decode(body []byte, out any) error {
	switch dst := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*dst = append([]byte(nil), body...)
		return nil
	case *json.RawMessage:
		*dst = append(json.RawMessage(nil), body...)
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindServer, Message: "invalid response from server", Err: err}
	}
	return nil
}

func transportMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return "Unable to reach the server"
}
