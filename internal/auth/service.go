// Package auth signs users in and keeps their tokens.
package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tgienger/bugtrack/internal/models"
)

var (
	// ErrNoRefreshToken is returned by Refresh when nobody is signed in
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrNotLoggedIn is returned by CurrentUser when no tokens are stored
	ErrNotLoggedIn = errors.New("not logged in")
)

// Client is the part of the API client the service needs
type Client interface {
	Login(ctx context.Context, in models.LoginRequest) (*models.AuthResponse, error)
	Signup(ctx context.Context, in models.SignupRequest) (*models.AuthResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*models.AuthResponse, error)
}

// Service holds the authentication state. It is the token source and the
// refresher of the API's auth middleware.
type Service struct {
	client  Client
	store   TokenStore
	log     *zap.Logger
	refresh singleflight.Group
}

// NewService creates an auth service
func NewService(client Client, store TokenStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, store: store, log: logger}
}

// Login signs in and stores the issued tokens
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	out, err := s.client.Login(ctx, models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return s.signedIn(out)
}

// Signup creates an account, signs in and stores the issued tokens
func (s *Service) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	out, err := s.client.Signup(ctx, models.SignupRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return s.signedIn(out)
}

func (s *Service) signedIn(out *models.AuthResponse) (*models.User, error) {
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, errors.New("no tokens returned")
	}
	if err := s.store.Save(Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}); err != nil {
		return nil, fmt.Errorf("save tokens: %w", err)
	}

	user := models.User{ID: out.UserID}
	if claims, err := ParseClaims(out.AccessToken); err == nil {
		user = claims.User()
		if out.UserID != 0 {
			user.ID = out.UserID
		}
	}
	s.log.Info("signed in", zap.Int64("user_id", user.ID))
	return &user, nil
}

// Refresh exchanges the stored refresh token for a new access token.
// Concurrent callers share one refresh call, which runs detached from any
// single caller's context. A caller that gives up gets its context error
// while the shared call carries on for the others. Stored tokens are cleared
// only when the API rejects the refresh.
func (s *Service) Refresh(ctx context.Context) (bool, error) {
	ch := s.refresh.DoChan("refresh", func() (any, error) {
		return s.doRefresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

func (s *Service) doRefresh(ctx context.Context) (bool, error) {
	tokens, err := s.store.Load()
	if err != nil {
		return false, fmt.Errorf("load tokens: %w", err)
	}
	if tokens == nil || tokens.RefreshToken == "" {
		return false, ErrNoRefreshToken
	}

	out, err := s.client.RefreshTokens(ctx, tokens.RefreshToken)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.log.Debug("token refresh abandoned", zap.Error(err))
			return false, fmt.Errorf("refresh: %w", err)
		}
		s.log.Warn("token refresh failed, signing out", zap.Error(err))
		if clearErr := s.store.Clear(); clearErr != nil {
			s.log.Error("failed to clear tokens", zap.Error(clearErr))
		}
		return false, fmt.Errorf("refresh: %w", err)
	}

	next := Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	if next.RefreshToken == "" {
		next.RefreshToken = tokens.RefreshToken
	}
	if err := s.store.Save(next); err != nil {
		return false, fmt.Errorf("save tokens: %w", err)
	}
	s.log.Debug("access token refreshed")
	return true, nil
}

// Logout forgets the stored tokens
func (s *Service) Logout() error {
	return s.store.Clear()
}

// IsLoggedIn reports whether tokens are stored
func (s *Service) IsLoggedIn() bool {
	tokens, err := s.store.Load()
	return err == nil && tokens != nil
}

// AccessToken returns the stored access token
func (s *Service) AccessToken() (string, bool) {
	tokens, err := s.store.Load()
	if err != nil || tokens == nil || tokens.AccessToken == "" {
		return "", false
	}
	return tokens.AccessToken, true
}

// CurrentUser describes the signed-in user from the access token's claims
func (s *Service) CurrentUser() (*models.User, error) {
	token, ok := s.AccessToken()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return nil, err
	}
	u := claims.User()
	return &u, nil
}
