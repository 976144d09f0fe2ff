package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const RequestIDHeader = "X-Request-ID"

// Request describes one call to the API. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header

	// SkipAuth sends the request without a bearer token and keeps it away
	// from the refresh coordinator (login, refresh).
	SkipAuth bool
	// NoRetry disables the retry layer for this request.
	NoRetry bool
}

// withHeader returns a shallow copy of r with key set to value.
func (r *Request) withHeader(key, value string) *Request {
	c := *r
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	c.Header.Set(key, value)
	return &c
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the body into out. An empty body leaves out untouched.
func (r *Response) Decode(out any) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return &APIError{Kind: KindGeneric, Status: r.Status, Message: "malformed response body", Err: err}
	}
	return nil
}

// Doer performs a request. Every layer of the client (base transport, retry,
// auth) implements it so layers can be stacked and tested one by one.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

type DoerFunc func(ctx context.Context, req *Request) (*Response, error)

func (f DoerFunc) Do(ctx context.Context, req *Request) (*Response, error) { return f(ctx, req) }

// httpTransport is the innermost layer. It sends a single attempt and maps
// the outcome to a Response or an *APIError.
type httpTransport struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	log     logging.Logger
}

func newHTTPTransport(baseURL string, hc *http.Client, timeout time.Duration, rps float64, log logging.Logger) *httpTransport {
	if hc == nil {
		hc = &http.Client{}
	}
	t := &httpTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  hc,
		timeout: timeout,
		log:     log,
	}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return t
}

func (t *httpTransport) url(req *Request) string {
	u := t.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func (t *httpTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, newNetworkError(err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &APIError{Kind: KindGeneric, Message: "failed to encode request body", Err: err}
		}
		body = bytes.NewReader(data)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.url(req), body)
	if err != nil {
		return nil, &APIError{Kind: KindGeneric, Message: "failed to build request", Err: err}
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.log.Debug(ctx, "request failed", "method", req.Method, "path", req.Path, "request_id", requestID, "error", err)
		return nil, newNetworkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError(fmt.Errorf("read response body: %w", err))
	}

	t.log.Debug(ctx, "request done",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp.StatusCode, data)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
