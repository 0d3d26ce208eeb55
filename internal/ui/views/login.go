package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/bugtrack/internal/models"
	"github.com/tgienger/bugtrack/internal/ui/keys"
	"github.com/tgienger/bugtrack/internal/ui/styles"
)

type loginField int

const (
	fieldName loginField = iota
	fieldEmail
	fieldPassword
	fieldSubmit
	fieldSwitch
)

// LoginView is the login and signup form
type LoginView struct {
	auth   Authenticator
	styles *styles.Styles
	keys   keys.KeyMap
	scope  *scope
	width  int
	height int

	signup   bool
	focus    loginField
	name     textinput.Model
	email    textinput.Model
	password textinput.Model

	submitting bool
	status     string
}

type loginResultMsg struct {
	gen  int
	user *models.User
	err  error
}

func NewLoginView(auth Authenticator, s *styles.Styles, notice string) *LoginView {
	name := textinput.New()
	name.Placeholder = "Name"
	name.CharLimit = 100

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "Password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	v := &LoginView{
		auth:     auth,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		scope:    newScope(),
		name:     name,
		email:    email,
		password: password,
		focus:    fieldEmail,
		status:   notice,
	}
	v.updateFocus()
	return v
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

// Close cancels a pending login
func (v *LoginView) Close() {
	v.scope.close()
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case loginResultMsg:
		if msg.gen != v.scope.gen {
			return v, nil
		}
		v.submitting = false
		if msg.err != nil {
			v.status = errorText(msg.err)
			return v, nil
		}
		user := *msg.user
		return v, func() tea.Msg { return LoggedIn{User: user} }

	case tea.KeyMsg:
		return v.updateKeys(msg)
	}
	return v, nil
}

func (v *LoginView) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if v.submitting {
		if msg.String() == "ctrl+c" {
			return v, tea.Quit
		}
		return v, nil
	}

	switch {
	case msg.String() == "ctrl+c":
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		if v.signup {
			v.toggleMode()
			return v, nil
		}
		return v, tea.Quit

	case key.Matches(msg, v.keys.ShiftTab), msg.String() == "up":
		v.moveFocus(-1)
		return v, nil

	case key.Matches(msg, v.keys.Tab), msg.String() == "down":
		v.moveFocus(1)
		return v, nil

	case key.Matches(msg, v.keys.Submit):
		return v, v.submit()

	case key.Matches(msg, v.keys.Enter):
		switch v.focus {
		case fieldSwitch:
			v.toggleMode()
			return v, nil
		case fieldSubmit, fieldPassword:
			return v, v.submit()
		default:
			v.moveFocus(1)
			return v, nil
		}
	}

	var cmd tea.Cmd
	switch v.focus {
	case fieldName:
		v.name, cmd = v.name.Update(msg)
	case fieldEmail:
		v.email, cmd = v.email.Update(msg)
	case fieldPassword:
		v.password, cmd = v.password.Update(msg)
	}
	return v, cmd
}

func (v *LoginView) fields() []loginField {
	if v.signup {
		return []loginField{fieldName, fieldEmail, fieldPassword, fieldSubmit, fieldSwitch}
	}
	return []loginField{fieldEmail, fieldPassword, fieldSubmit, fieldSwitch}
}

func (v *LoginView) moveFocus(dir int) {
	fields := v.fields()
	idx := 0
	for i, f := range fields {
		if f == v.focus {
			idx = i
		}
	}
	idx = (idx + dir + len(fields)) % len(fields)
	v.focus = fields[idx]
	v.updateFocus()
}

func (v *LoginView) toggleMode() {
	v.signup = !v.signup
	v.status = ""
	if v.signup {
		v.focus = fieldName
	} else {
		v.focus = fieldEmail
	}
	v.updateFocus()
}

func (v *LoginView) updateFocus() {
	v.name.Blur()
	v.email.Blur()
	v.password.Blur()
	switch v.focus {
	case fieldName:
		v.name.Focus()
	case fieldEmail:
		v.email.Focus()
	case fieldPassword:
		v.password.Focus()
	}
}

func (v *LoginView) validate() string {
	email := strings.TrimSpace(v.email.Value())
	switch {
	case v.signup && strings.TrimSpace(v.name.Value()) == "":
		return "Please enter your name"
	case email == "" || !strings.Contains(email, "@"):
		return "Please enter a valid email"
	case v.password.Value() == "":
		return "Please enter your password"
	}
	return ""
}

func (v *LoginView) submit() tea.Cmd {
	if problem := v.validate(); problem != "" {
		v.status = problem
		return nil
	}

	ctx, gen := v.scope.reset()
	v.submitting = true
	v.status = ""

	signup := v.signup
	name := strings.TrimSpace(v.name.Value())
	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()

	return func() tea.Msg {
		var user *models.User
		var err error
		if signup {
			user, err = v.auth.Signup(ctx, name, email, password)
		} else {
			user, err = v.auth.Login(ctx, email, password)
		}
		return loginResultMsg{gen: gen, user: user, err: err}
	}
}

func (v *LoginView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	style := func(f loginField) lipgloss.Style {
		if v.focus == f {
			return s.InputFocused
		}
		return s.Input
	}
	button := func(f loginField, label string) string {
		if v.focus == f {
			return s.ButtonFocused.Render(label)
		}
		return s.Button.Render(label)
	}

	title := "Sign in to Bug Track"
	action := " Log in "
	switchLabel := "No account? Sign up"
	if v.signup {
		title = "Create a Bug Track account"
		action = " Sign up "
		switchLabel = "Have an account? Log in"
	}

	rows := []string{s.Title.Render(title), ""}
	if v.signup {
		rows = append(rows,
			"Name:",
			style(fieldName).Width(inputWidth).Render(v.name.View()),
			"",
		)
	}
	rows = append(rows,
		"Email:",
		style(fieldEmail).Width(inputWidth).Render(v.email.View()),
		"",
		"Password:",
		style(fieldPassword).Width(inputWidth).Render(v.password.View()),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center, button(fieldSubmit, action), " ", button(fieldSwitch, switchLabel)),
		"",
	)

	switch {
	case v.submitting:
		rows = append(rows, s.TitleMuted.Render("Signing in..."))
	case v.status != "":
		rows = append(rows, s.StatusError.Render(v.status))
	}

	escHint := "quit"
	if v.signup {
		escHint = "back"
	}
	rows = append(rows, s.TitleMuted.Render(fmt.Sprintf("Tab: next • Enter: submit • Esc: %s", escHint)))

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}
