package api

import (
	"context"
	"net/http"

	"github.com/tgienger/bugtrack/internal/models"
)

// Login signs in with email and password
func (c *Client) Login(ctx context.Context, in models.LoginRequest) (*models.AuthResponse, error) {
	req, err := NewRequest(http.MethodPost, "/public/api/v1/auth/login").WithJSON(in)
	if err != nil {
		return nil, err
	}
	var out models.AuthResponse
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup creates an account and signs in
func (c *Client) Signup(ctx context.Context, in models.SignupRequest) (*models.AuthResponse, error) {
	req, err := NewRequest(http.MethodPost, "/public/api/v1/auth/signup").WithJSON(in)
	if err != nil {
		return nil, err
	}
	var out models.AuthResponse
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshTokens exchanges a refresh token for a new token pair. The request
// is marked as already retried so a 401 here cannot start another refresh.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	req := NewRequest(http.MethodPost, "/api/v1/auth/refresh")
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	req.Retried = true

	var out models.AuthResponse
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &Error{Code: CodeDecode, Message: "no access token returned"}
	}
	return &out, nil
}
