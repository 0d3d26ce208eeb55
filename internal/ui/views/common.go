package views

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/models"
	"github.com/tgienger/bugtrack/internal/ui/styles"
)

// LoggedIn is sent after a successful login or signup
type LoggedIn struct {
	User models.User
}

// SessionExpired is sent when a view hits an auth error it cannot recover from
type SessionExpired struct {
	Err error
}

// LogoutRequested asks the app to drop the tokens and show the login screen
type LogoutRequested struct{}

// ToggleTheme asks the app to switch between dark and light
type ToggleTheme struct{}

// OpenBug asks the app to show a bug report
type OpenBug struct {
	BugID int64
}

// BackToDashboard leaves the bug view
type BackToDashboard struct{}

func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// scope owns the context of a view's in-flight fetches. Every reset cancels
// the previous fetches and bumps the generation so late results can be
// recognised and dropped.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    int
}

func newScope() *scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &scope{ctx: ctx, cancel: cancel}
}

func (s *scope) reset() (context.Context, int) {
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.gen++
	return s.ctx, s.gen
}

func (s *scope) close() {
	s.cancel()
}

func sessionExpired(err error) tea.Cmd {
	return func() tea.Msg { return SessionExpired{Err: err} }
}

func errorText(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func renderMarkdown(md string, theme styles.Theme, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(theme.Markdown),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func renderPopup(s *styles.Styles, title string, items []string, width, height int) string {
	contentWidth := styles.ContentWidth(width)

	lines := append([]string{s.Title.Render(title), ""}, items...)
	lines = append(lines, "", s.TitleMuted.Render("Press any key to close"))
	content := lipgloss.JoinVertical(lipgloss.Left, lines...)

	centered := lipgloss.Place(contentWidth, height,
		lipgloss.Center, lipgloss.Center,
		s.FilterBar.Render(content),
	)
	return styles.CenterView(centered, width, height)
}

func renderStatus(s *styles.Styles, status string, isErr bool) string {
	if status == "" {
		return ""
	}
	if isErr {
		return s.StatusError.Render(status)
	}
	return s.StatusSuccess.Render(status)
}
