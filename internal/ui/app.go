package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/models"
	"github.com/tgienger/bugtrack/internal/ui/styles"
	"github.com/tgienger/bugtrack/internal/ui/views"
)

// Currently active view
type View int

const (
	ViewLogin View = iota
	ViewDashboard
	ViewBug
)

// AuthService is what the app needs from the auth layer
type AuthService interface {
	views.Authenticator
	IsLoggedIn() bool
	CurrentUser() (*models.User, error)
	Logout() error
}

// API is the remote Bug Track API
type API interface {
	views.DashboardClient
	views.BugClient
}

// Store is the local store for recent bugs and drafts
type Store interface {
	views.RecentBugs
	views.Drafts
}

// Deps are the state containers the app is built from
type Deps struct {
	Auth    AuthService
	Session views.Tenants
	API     API
	Store   Store
	Themes  *styles.ThemeStore
	Logger  *zap.Logger
}

type App struct {
	deps        Deps
	log         *zap.Logger
	styles      *styles.Styles
	currentView View
	user        models.User
	starting    bool
	login       *views.LoginView
	dashboard   *views.DashboardView
	bug         *views.BugView
	width       int
	height      int
}

type sessionLoadedMsg struct {
	err error
}

const sessionExpiredNotice = "Your session has expired. Please log in again."

// Creates a new application
func NewApp(deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		deps:   deps,
		log:    logger,
		styles: styles.NewStyles(deps.Themes.Load()),
	}
}

func (a *App) Init() tea.Cmd {
	if a.deps.Auth.IsLoggedIn() {
		if user, err := a.deps.Auth.CurrentUser(); err == nil {
			return a.startSession(*user)
		}
	}
	return a.openLogin("")
}

func (a *App) resize() tea.Cmd {
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: a.width, Height: a.height}
	}
}

func (a *App) closeViews() {
	if a.login != nil {
		a.login.Close()
		a.login = nil
	}
	if a.bug != nil {
		a.bug.Close()
		a.bug = nil
	}
	if a.dashboard != nil {
		a.dashboard.Close()
		a.dashboard = nil
	}
}

func (a *App) openLogin(notice string) tea.Cmd {
	a.closeViews()
	a.currentView = ViewLogin
	a.login = views.NewLoginView(a.deps.Auth, a.styles, notice)
	return tea.Batch(a.login.Init(), a.resize())
}

// startSession loads the tenant list before showing the dashboard
func (a *App) startSession(user models.User) tea.Cmd {
	a.closeViews()
	a.user = user
	a.currentView = ViewDashboard
	a.starting = true
	session := a.deps.Session
	return func() tea.Msg {
		return sessionLoadedMsg{err: session.Load(context.Background())}
	}
}

func (a *App) openDashboard() tea.Cmd {
	a.currentView = ViewDashboard
	a.dashboard = views.NewDashboardView(a.deps.API, a.deps.Session, a.deps.Store, a.user, a.styles, a.log)
	return tea.Batch(a.dashboard.Init(), a.resize())
}

func (a *App) openBug(id int64) tea.Cmd {
	if a.bug != nil {
		a.bug.Close()
	}
	a.currentView = ViewBug
	a.bug = views.NewBugView(a.deps.API, a.deps.Store, a.deps.Store, a.user, id, a.styles, a.log)
	return tea.Batch(a.bug.Init(), a.resize())
}

func (a *App) endSession(notice string) tea.Cmd {
	if err := a.deps.Auth.Logout(); err != nil {
		a.log.Warn("failed to clear tokens", zap.Error(err))
	}
	a.user = models.User{}
	return a.openLogin(notice)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// The dashboard stays alive under the bug view
		if a.currentView == ViewBug && a.dashboard != nil {
			a.dashboard.Update(msg)
		}

	case tea.KeyMsg:
		if a.starting && msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case sessionLoadedMsg:
		a.starting = false
		if msg.err != nil {
			a.log.Warn("failed to load tenants", zap.Error(msg.err))
			if api.IsAuthError(msg.err) {
				return a, a.endSession(sessionExpiredNotice)
			}
		}
		return a, a.openDashboard()

	case views.LoggedIn:
		a.log.Info("signed in", zap.Int64("user_id", msg.User.ID))
		return a, a.startSession(msg.User)

	case views.SessionExpired:
		a.log.Info("session expired", zap.Error(msg.Err))
		return a, a.endSession(sessionExpiredNotice)

	case views.LogoutRequested:
		return a, a.endSession("")

	case views.ToggleTheme:
		theme, err := a.deps.Themes.Toggle()
		if err != nil {
			a.log.Warn("failed to save theme", zap.Error(err))
		}
		*a.styles = *styles.NewStyles(theme)
		return a, nil

	case views.OpenBug:
		return a, a.openBug(msg.BugID)

	case views.BackToDashboard:
		if a.bug != nil {
			a.bug.Close()
			a.bug = nil
		}
		if a.dashboard == nil {
			return a, a.openDashboard()
		}
		a.currentView = ViewDashboard
		return a, tea.Batch(a.dashboard.RefreshRecent(), a.resize())
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewLogin:
		if a.login != nil {
			_, cmd = a.login.Update(msg)
		}
	case ViewDashboard:
		if a.dashboard != nil {
			_, cmd = a.dashboard.Update(msg)
		}
	case ViewBug:
		if a.bug != nil {
			_, cmd = a.bug.Update(msg)
		}
	}

	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewLogin:
		if a.login != nil {
			return a.login.View()
		}
	case ViewBug:
		if a.bug != nil {
			return a.bug.View()
		}
	case ViewDashboard:
		if a.dashboard != nil {
			return a.dashboard.View()
		}
	}
	return lipgloss.Place(a.width, a.height,
		lipgloss.Center, lipgloss.Center,
		a.styles.TitleMuted.Render("Loading..."),
	)
}
