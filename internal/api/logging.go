package api

import (
	"context"

	"go.uber.org/zap"
)

// Logging returns a middleware writing a debug line per request and response.
// The response line describes the request that was answered, which is the
// retry when the auth middleware re-sent it.
func Logging(logger *zap.Logger) Middleware {
	return logging{log: logger}
}

type logging struct {
	log *zap.Logger
}

func (l logging) OnRequest(_ context.Context, req *Request) (*Request, error) {
	l.log.Debug("api request",
		zap.String("request_id", req.ID.String()),
		zap.String("method", req.Method),
		zap.String("path", req.Path))
	return req, nil
}

func (l logging) OnResponse(_ context.Context, req *Request, resp *Response, _ SendFunc) (*Response, error) {
	if resp.Request != nil {
		req = resp.Request
	}
	l.log.Debug("api response",
		zap.String("request_id", req.ID.String()),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Bool("retried", req.Retried))
	return resp, nil
}
