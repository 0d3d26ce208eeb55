package api_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/api/apitest"
	"github.com/tgienger/bugtrack/internal/models"
)

// tokenHolder keeps a token pair in memory and refreshes it through the client
type tokenHolder struct {
	mu      sync.Mutex
	access  string
	refresh string
	client  *api.Client
}

func (h *tokenHolder) AccessToken() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.access, h.access != ""
}

func (h *tokenHolder) Refresh(ctx context.Context) (bool, error) {
	h.mu.Lock()
	refresh := h.refresh
	h.mu.Unlock()

	out, err := h.client.RefreshTokens(ctx, refresh)
	if err != nil {
		return false, err
	}
	h.mu.Lock()
	h.access, h.refresh = out.AccessToken, out.RefreshToken
	h.mu.Unlock()
	return true, nil
}

func newSignedInClient(t *testing.T, metrics *api.Metrics) (*api.Client, *apitest.Server, *tokenHolder) {
	t.Helper()
	srv := apitest.New(t)
	client := api.NewClient(api.Config{BaseURL: srv.URL, HTTPClient: srv.Client(), Logger: zap.NewNop()})

	pair := srv.IssueTokens()
	holder := &tokenHolder{access: pair.AccessToken, refresh: pair.RefreshToken, client: client}
	if metrics != nil {
		client.Use(api.Instrument(metrics))
	}
	client.Use(api.Logging(zap.NewNop()), api.NewAuthMiddleware(holder, holder, zap.NewNop(), metrics))
	return client, srv, holder
}

func TestLoginAgainstPublicEndpoint(t *testing.T) {
	srv := apitest.New(t)
	client := api.NewClient(api.Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	holder := &tokenHolder{client: client}
	client.Use(api.NewAuthMiddleware(holder, holder, nil, nil))

	out, err := client.Login(context.Background(), models.LoginRequest{Email: apitest.UserEmail, Password: apitest.UserPassword})

	require.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)
	assert.Equal(t, int64(apitest.UserID), out.UserID)
	assert.Empty(t, srv.LastAuthorization("/public/api/v1/auth/login"))
}

func TestLoginWrongPasswordCarriesServerMessage(t *testing.T) {
	srv := apitest.New(t)
	client := api.NewClient(api.Config{BaseURL: srv.URL, HTTPClient: srv.Client()})

	_, err := client.Login(context.Background(), models.LoginRequest{Email: apitest.UserEmail, Password: "nope"})

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.CodeUnauthenticated, apiErr.Code)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Incorrect email or password", apiErr.Message)
}

func TestSignupConflict(t *testing.T) {
	srv := apitest.New(t)
	client := api.NewClient(api.Config{BaseURL: srv.URL, HTTPClient: srv.Client()})

	_, err := client.Signup(context.Background(), models.SignupRequest{Name: "Ada", Email: apitest.UserEmail, Password: "x"})

	assert.True(t, api.HasCode(err, api.CodeConflict))
	assert.True(t, errors.Is(err, api.NewError(api.CodeConflict, "")))
}

func TestDashboardEndpoints(t *testing.T) {
	client, _, _ := newSignedInClient(t, nil)
	ctx := context.Background()

	list, err := client.ListDbms(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "SQLite", list[0].Name)

	detail, err := client.GetDbms(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, detail.BugCount)
	require.NotEmpty(t, detail.BugCategories)
	assert.Equal(t, 3, detail.BugCategories[0].Count)

	trend, err := client.BugTrend(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, trend, api.DefaultTrendDays)
	assert.Equal(t, 2, trend[len(trend)-1])

	summary, err := client.DbmsAiSummary(ctx, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.Summary)

	cats, err := client.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 10)
}

func TestSearchAndLoadMore(t *testing.T) {
	client, _, _ := newSignedInClient(t, nil)
	ctx := context.Background()

	res, err := client.SearchBugReports(ctx, 1, api.SearchParams{Search: "segfault", Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.BugReports, 2)
	assert.Equal(t, int64(1), res.BugReports[0].ID)

	crash := 0
	res, err = client.SearchBugReports(ctx, 1, api.SearchParams{Search: "", CategoryID: &crash})
	require.NoError(t, err)
	assert.Len(t, res.BugReports, 3)

	distr := make([]int, 10)
	distr[0] = 1
	more, err := client.LoadMoreBugsByCategory(ctx, 1, 0, distr, 5)
	require.NoError(t, err)
	require.Len(t, more.BugReportsDelta, 2)
	assert.Equal(t, int64(3), more.BugReportsDelta[0].ID)
	assert.Equal(t, 3, more.NewBugDistr[0])
}

func TestBugEndpoints(t *testing.T) {
	client, _, _ := newSignedInClient(t, nil)
	ctx := context.Background()

	bug, err := client.GetBugReport(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Hang on vacuum", bug.Title)

	bug, err = client.UpdateBugCategory(ctx, 2, 8)
	require.NoError(t, err)
	require.NotNil(t, bug.CategoryID)
	assert.Equal(t, 8, *bug.CategoryID)
	assert.Equal(t, "Deadlock", bug.CategoryName())

	bug, err = client.UpdateBugPriority(ctx, 2, models.PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, bug.Priority)

	bug, err = client.UpdateBugVersionsAffected(ctx, 2, "3.45, 3.46")
	require.NoError(t, err)
	assert.Equal(t, "3.45, 3.46", bug.VersionsAffected)

	_, err = client.GetBugReport(ctx, 404)
	assert.True(t, api.HasCode(err, api.CodeNotFound))
}

func TestDiscussionEndpoints(t *testing.T) {
	client, _, _ := newSignedInClient(t, nil)
	ctx := context.Background()

	d, err := client.AddComment(ctx, 1, apitest.UserID, "Reproduced on 3.45")
	require.NoError(t, err)
	assert.True(t, d.IsThread)
	assert.Equal(t, apitest.UserName, d.Author.Name)

	d, err = client.AddReply(ctx, d.ID, apitest.UserID, "Same here")
	require.NoError(t, err)
	require.Len(t, d.Replies, 1)

	list, err := client.ListDiscussions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Same here", list[0].Replies[0].Content)

	got, err := client.GetDiscussion(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	none, err := client.ListDiscussions(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestExpiredTokenIsRefreshedTransparently(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := api.NewMetrics(reg)
	client, srv, holder := newSignedInClient(t, metrics)
	before, _ := holder.AccessToken()
	srv.ExpireAccessTokens()

	list, err := client.ListDbms(context.Background())

	require.NoError(t, err)
	assert.Len(t, list, 2)
	after, _ := holder.AccessToken()
	assert.NotEqual(t, before, after)
	assert.Equal(t, 1, srv.Calls("/api/v1/auth/refresh"))
	assert.Equal(t, 2, srv.Calls("/api/v1/dbms/"))
	assert.Equal(t, "Bearer "+after, srv.LastAuthorization("/api/v1/dbms/"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("ok")))
}

func TestFailedRefreshSurfacesOriginal401(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := api.NewMetrics(reg)
	client, srv, _ := newSignedInClient(t, metrics)
	srv.ExpireAccessTokens()
	srv.FailRefresh(true)

	_, err := client.ListDbms(context.Background())

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.CodeUnauthenticated, apiErr.Code)
	assert.Equal(t, "Could not validate credentials", apiErr.Message)
	assert.True(t, api.IsAuthError(err))
	assert.Equal(t, 1, srv.Calls("/api/v1/auth/refresh"))
	assert.Equal(t, 1, srv.Calls("/api/v1/dbms/"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodGet, "/api/v1/dbms/", "401")))
}

func TestCancelledContextAbortsRequest(t *testing.T) {
	client, srv, _ := newSignedInClient(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListDbms(ctx)

	assert.True(t, api.HasCode(err, api.CodeTransport))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, srv.Calls("/api/v1/dbms/"))
}

func TestErrorMessageFallsBackToStatus(t *testing.T) {
	doer := &recordingDoer{respond: func(*http.Request) int { return http.StatusBadGateway }}
	client := api.NewClient(api.Config{BaseURL: "http://bugtrack.test", HTTPClient: doer})

	_, err := client.ListCategories(context.Background())

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.CodeServerError, apiErr.Code)
	assert.Equal(t, "HTTP error! Status: 502", apiErr.Error())
}

func TestEmptyBodyIsAnError(t *testing.T) {
	client := api.NewClient(api.Config{BaseURL: "http://bugtrack.test", HTTPClient: emptyDoer{}})

	_, err := client.GetBugReport(context.Background(), 1)

	assert.True(t, api.HasCode(err, api.CodeDecode))
}

type emptyDoer struct{}

func (emptyDoer) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Header: http.Header{}, Request: req}, nil
}
