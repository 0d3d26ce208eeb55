package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/api/apitest"
	"github.com/tgienger/bugtrack/internal/auth"
	"github.com/tgienger/bugtrack/internal/db"
	"github.com/tgienger/bugtrack/internal/session"
	"github.com/tgienger/bugtrack/internal/ui/styles"
	"github.com/tgienger/bugtrack/internal/ui/views"
)

type fixture struct {
	app      *App
	auth     *auth.Service
	database *db.DB
	srv      *apitest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.New(t)
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	logger := zap.NewNop()
	client := api.NewClient(api.Config{BaseURL: srv.URL, HTTPClient: srv.Client(), Logger: logger})
	svc := auth.NewService(client, auth.NewSettingsStore(database), logger)
	client.Use(api.NewAuthMiddleware(svc, svc, logger, nil))

	app := NewApp(Deps{
		Auth:    svc,
		Session: session.New(client, database, logger),
		API:     client,
		Store:   database,
		Themes:  styles.NewThemeStore(database, "dark"),
		Logger:  logger,
	})
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return &fixture{app: app, auth: svc, database: database, srv: srv}
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	_, err := f.auth.Login(context.Background(), apitest.UserEmail, apitest.UserPassword)
	require.NoError(t, err)
}

// start runs Init and the session load it kicks off
func (f *fixture) start(t *testing.T) {
	t.Helper()
	cmd := f.app.Init()
	require.NotNil(t, cmd)
	f.app.Update(cmd())
}

func TestStartsOnLoginWhenSignedOut(t *testing.T) {
	f := newFixture(t)

	f.app.Init()

	assert.Equal(t, ViewLogin, f.app.currentView)
	assert.NotNil(t, f.app.login)
}

func TestStartsOnDashboardWhenSignedIn(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	f.start(t)

	assert.Equal(t, ViewDashboard, f.app.currentView)
	require.NotNil(t, f.app.dashboard)
	tenant, ok := f.app.dashboard.Tenant()
	require.True(t, ok)
	assert.Equal(t, "SQLite", tenant.Name)
	assert.Equal(t, apitest.UserName, f.app.user.Name)
}

func TestSessionExpiredReturnsToLogin(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.start(t)

	f.app.Update(views.SessionExpired{})
	f.app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	assert.Equal(t, ViewLogin, f.app.currentView)
	assert.Nil(t, f.app.dashboard)
	assert.False(t, f.auth.IsLoggedIn())
	assert.Contains(t, f.app.View(), "Your session has expired")
}

func TestLogoutClearsTokens(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.start(t)

	f.app.Update(views.LogoutRequested{})

	assert.Equal(t, ViewLogin, f.app.currentView)
	assert.False(t, f.auth.IsLoggedIn())
	assert.NotContains(t, f.app.View(), "expired")
}

func TestToggleThemePersists(t *testing.T) {
	f := newFixture(t)
	shared := f.app.styles

	f.app.Update(views.ToggleTheme{})

	assert.Same(t, shared, f.app.styles)
	assert.Equal(t, styles.Light.Name, f.app.styles.Theme.Name)
	saved, err := f.database.GetSetting(styles.SettingTheme)
	require.NoError(t, err)
	assert.Equal(t, "light", saved)
}

func TestBugViewReturnsToSameDashboard(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.start(t)
	dashboard := f.app.dashboard

	f.app.Update(views.OpenBug{BugID: 1})
	assert.Equal(t, ViewBug, f.app.currentView)
	require.NotNil(t, f.app.bug)

	f.app.Update(views.BackToDashboard{})
	assert.Equal(t, ViewDashboard, f.app.currentView)
	assert.Nil(t, f.app.bug)
	assert.Same(t, dashboard, f.app.dashboard)
}

func TestLoggedInStartsSession(t *testing.T) {
	f := newFixture(t)
	f.app.Init()
	f.signIn(t)

	user, err := f.auth.CurrentUser()
	require.NoError(t, err)
	_, cmd := f.app.Update(views.LoggedIn{User: *user})
	require.NotNil(t, cmd)
	f.app.Update(cmd())

	assert.Equal(t, ViewDashboard, f.app.currentView)
	assert.Nil(t, f.app.login)
	assert.NotNil(t, f.app.dashboard)
}
