// Package http is a small fluent client for outgoing calls (WhatsApp Cloud
// API, order webhooks) with timeouts and retries.
//
//	resp, err := http.Post(url).
//	    WithContext(ctx).
//	    Bearer(token).
//	    Body(payload).
//	    Retry(3, time.Second).
//	    Send()
//	if err == nil {
//	    err = resp.Throw()
//	}
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	gohttp "net/http"
	"time"

	"github.com/shashiranjanraj/shopfront/pkg/logger"
)

var defaultTransport = &gohttp.Transport{
	Proxy:               gohttp.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// DefaultClient is shared by every request. Tests point it at an
// httptest.Server or swap its Transport.
var DefaultClient = &gohttp.Client{Transport: defaultTransport}

// ResetTransport restores the production transport.
func ResetTransport() { DefaultClient.Transport = defaultTransport }

// Request is built fluently and run with Send.
type Request struct {
	method    string
	url       string
	headers   map[string]string
	body      any
	timeout   time.Duration
	retries   int
	retryWait time.Duration
	ctx       context.Context
}

func Get(url string) *Request    { return newRequest(gohttp.MethodGet, url) }
func Post(url string) *Request   { return newRequest(gohttp.MethodPost, url) }
func Put(url string) *Request    { return newRequest(gohttp.MethodPut, url) }
func Delete(url string) *Request { return newRequest(gohttp.MethodDelete, url) }

func newRequest(method, url string) *Request {
	return &Request{
		method:    method,
		url:       url,
		headers:   map[string]string{"Accept": "application/json"},
		timeout:   10 * time.Second,
		retries:   1,
		retryWait: 500 * time.Millisecond,
		ctx:       context.Background(),
	}
}

func (r *Request) Header(key, value string) *Request {
	r.headers[key] = value
	return r
}

func (r *Request) Bearer(token string) *Request {
	return r.Header("Authorization", "Bearer "+token)
}

// Body sets the payload. Strings and byte slices are sent as-is; anything
// else is encoded as JSON.
func (r *Request) Body(v any) *Request {
	r.body = v
	return r
}

// Timeout bounds each attempt.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Retry allows n attempts in total. Transport errors and 5xx responses are
// retried, with wait doubling between attempts.
func (r *Request) Retry(n int, wait time.Duration) *Request {
	if n > 0 {
		r.retries = n
	}
	r.retryWait = wait
	return r
}

func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// Send runs the request. A non-2xx response is not an error; call Throw.
func (r *Request) Send() (*Response, error) {
	var (
		resp    *Response
		lastErr error
	)
	wait := r.retryWait
	for attempt := 1; attempt <= r.retries; attempt++ {
		resp, lastErr = r.do()
		if lastErr == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt == r.retries {
			break
		}
		logger.Warn("http: request failed, retrying",
			"method", r.method, "url", r.url, "attempt", attempt, "error", lastErr)
		select {
		case <-r.ctx.Done():
			return nil, r.ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	if lastErr != nil {
		return nil, fmt.Errorf("http: %s %s: %w", r.method, r.url, lastErr)
	}
	return resp, nil
}

func (r *Request) do() (*Response, error) {
	body, contentType, err := r.encode()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	req, err := gohttp.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: res.StatusCode, Headers: res.Header, Raw: raw}, nil
}

func (r *Request) encode() (io.Reader, string, error) {
	switch v := r.body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return bytes.NewBufferString(v), "text/plain; charset=utf-8", nil
	case []byte:
		return bytes.NewReader(v), "application/octet-stream", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("http: marshal body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

func (r *Response) JSON(dest any) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

func (r *Response) Text() string { return string(r.Raw) }

// Throw turns a non-2xx response into an error carrying the body.
func (r *Response) Throw() error {
	if !r.OK() {
		return fmt.Errorf("http: status %d: %s", r.StatusCode, bytes.TrimSpace(r.Raw))
	}
	return nil
}
