// Package api is the typed client for the Bug Track REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SendFunc puts a request on the wire, bypassing the middleware chain.
type SendFunc func(ctx context.Context, req *Request) (*Response, error)

// Middleware hooks into every call made by a Client.
//
// OnRequest may rewrite the request or fail it before anything is sent.
// OnResponse sees the response to the final request and may replace it;
// send lets it re-issue a request directly on the transport.
type Middleware interface {
	OnRequest(ctx context.Context, req *Request) (*Request, error)
	OnResponse(ctx context.Context, req *Request, resp *Response, send SendFunc) (*Response, error)
}

// Config configures a Client
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Logger     *zap.Logger
}

// Client calls the Bug Track API through its middleware chain
type Client struct {
	baseURL     string
	http        HTTPDoer
	log         *zap.Logger
	middlewares []Middleware
}

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    selectHTTPClient(cfg),
		log:     cfg.Logger,
	}
}

func selectHTTPClient(cfg Config) HTTPDoer {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}

	return &http.Client{
		Timeout: cfg.Timeout,
	}
}

// BaseURL returns the API host the client targets
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Use appends middlewares. Request hooks run in the order given, response
// hooks in reverse.
func (c *Client) Use(mw ...Middleware) {
	c.middlewares = append(c.middlewares, mw...)
}

// Do runs req through the middleware chain and the transport.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	var err error
	for _, mw := range c.middlewares {
		req, err = mw.OnRequest(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	for i := len(c.middlewares) - 1; i >= 0; i-- {
		resp, err = c.middlewares[i].OnResponse(ctx, req, resp, c.send)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.url(c.baseURL), body)
	if err != nil {
		return nil, &Error{Code: CodeTransport, Message: "failed to create request", Err: err}
	}
	httpReq.Header = req.Header.Clone()
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Request-Id", req.ID.String())

	req.sentAt = time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &Error{Code: CodeTransport, Message: "request cancelled", Err: ctx.Err()}
		}
		c.log.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err))
		return nil, &Error{Code: CodeTransport, Message: "failed to execute request", Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Code: CodeTransport, Message: "failed to read response", Err: err}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
		Request:    req,
	}, nil
}

// call performs req and decodes a 2xx JSON body into out.
func (c *Client) call(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *Response, out any) error {
	if !resp.OK() {
		return errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 || bytes.Equal(bytes.TrimSpace(resp.Body), []byte("null")) {
		return &Error{Code: CodeDecode, Status: resp.StatusCode, Message: "no data returned"}
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &Error{Code: CodeDecode, Status: resp.StatusCode, Message: "failed to decode response", Err: err}
	}
	return nil
}
