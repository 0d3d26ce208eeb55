package api

import (
	"context"
	"net/http"
	"regexp"

	"go.uber.org/zap"
)

var publicPath = regexp.MustCompile(`^/public`)

// IsPublic reports whether path is served without authentication
func IsPublic(path string) bool {
	return publicPath.MatchString(path)
}

// TokenSource supplies the current access token
type TokenSource interface {
	AccessToken() (string, bool)
}

// Refresher exchanges the stored refresh token for a new access token.
// It reports false when no new token could be obtained.
type Refresher interface {
	Refresh(ctx context.Context) (bool, error)
}

// AuthMiddleware attaches bearer tokens to secured requests and, on a 401,
// refreshes the token once and retries the request once.
type AuthMiddleware struct {
	tokens    TokenSource
	refresher Refresher
	log       *zap.Logger
	metrics   *Metrics
}

// NewAuthMiddleware creates the middleware. metrics may be nil.
func NewAuthMiddleware(tokens TokenSource, refresher Refresher, logger *zap.Logger, metrics *Metrics) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		tokens:    tokens,
		refresher: refresher,
		log:       logger,
		metrics:   metrics,
	}
}

// OnRequest implements Middleware.
func (m *AuthMiddleware) OnRequest(_ context.Context, req *Request) (*Request, error) {
	if IsPublic(req.Path) {
		m.log.Debug("unsecured endpoint, not attaching token", zap.String("path", req.Path))
		return req, nil
	}

	token, ok := m.tokens.AccessToken()
	if !ok || token == "" {
		m.log.Debug("no access token", zap.String("path", req.Path))
		return nil, &Error{Code: CodeUnauthenticated, Status: http.StatusUnauthorized, Message: "not signed in"}
	}

	if req.Header.Get("Authorization") == "" {
		req = req.Clone()
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// OnResponse implements Middleware.
func (m *AuthMiddleware) OnResponse(ctx context.Context, req *Request, resp *Response, send SendFunc) (*Response, error) {
	if resp.StatusCode != http.StatusUnauthorized || IsPublic(req.Path) {
		return resp, nil
	}
	if req.Retried {
		m.log.Debug("already retried, not retrying again", zap.String("request_id", req.ID.String()))
		return resp, nil
	}

	m.log.Info("unauthorized, refreshing token", zap.String("path", req.Path))
	ok, err := m.refresher.Refresh(ctx)
	if err != nil || !ok {
		m.metrics.RecordRefresh(false)
		m.log.Warn("token refresh failed", zap.Error(err))
		return resp, nil
	}
	m.metrics.RecordRefresh(true)

	token, ok := m.tokens.AccessToken()
	if !ok {
		return resp, nil
	}

	retry := req.Clone()
	retry.Retried = true
	retry.Header.Set("Authorization", "Bearer "+token)
	return send(ctx, retry)
}
