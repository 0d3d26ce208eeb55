package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/category"
	"github.com/tgienger/bugtrack/internal/models"
	"github.com/tgienger/bugtrack/internal/ui/keys"
	"github.com/tgienger/bugtrack/internal/ui/styles"
)

var clipboardWriteAll = clipboard.WriteAll

const (
	recentKeep = 50
	dateFormat = "2006-01-02 15:04"
)

type bugMode int

const (
	bugModeView bugMode = iota
	bugModeCategory
	bugModePriority
	bugModeVersions
	bugModeComment
)

// BugView shows one bug report with its AI summary and discussions
type BugView struct {
	client BugClient
	recent RecentBugs
	drafts Drafts
	user   models.User
	log    *zap.Logger
	styles *styles.Styles
	keys   keys.KeyMap
	scope  *scope
	width  int
	height int

	bugID       int64
	bug         *models.BugReport
	summary     string
	summaryErr  string
	discussions []models.Discussion
	loading     bool
	saving      bool
	spinner     spinner.Model

	viewport     viewport.Model
	contentTheme string
	contentWidth int
	// Line offset of each discussion in the viewport content
	discussionLines []int
	selected        int

	mode          bugMode
	pickerCursor  int
	versionsInput textinput.Model
	commentInput  textarea.Model
	replyTo       int64

	showHelpPopup bool
	status        string
	statusErr     bool
}

type bugLoadedMsg struct {
	gen         int
	bug         *models.BugReport
	summary     string
	summaryErr  error
	discussions []models.Discussion
}

type bugFailedMsg struct {
	gen int
	err error
}

type bugUpdatedMsg struct {
	gen  int
	what string
	bug  *models.BugReport
	err  error
}

type commentPostedMsg struct {
	gen        int
	replyTo    int64
	discussion *models.Discussion
	err        error
}

type copiedMsg struct {
	err error
}

func NewBugView(client BugClient, recent RecentBugs, drafts Drafts, user models.User, bugID int64, s *styles.Styles, logger *zap.Logger) *BugView {
	if logger == nil {
		logger = zap.NewNop()
	}

	versions := textinput.New()
	versions.Placeholder = "e.g. 3.45.0, 3.46.1"
	versions.CharLimit = 200

	comment := textarea.New()
	comment.Placeholder = "Write a comment..."
	comment.CharLimit = 5000
	comment.SetHeight(4)
	comment.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &BugView{
		client:        client,
		recent:        recent,
		drafts:        drafts,
		user:          user,
		log:           logger,
		styles:        s,
		keys:          keys.DefaultKeyMap(),
		scope:         newScope(),
		bugID:         bugID,
		spinner:       sp,
		viewport:      viewport.New(0, 0),
		selected:      -1,
		versionsInput: versions,
		commentInput:  comment,
	}
}

func (v *BugView) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, v.load())
}

// Close cancels every in-flight fetch
func (v *BugView) Close() {
	v.scope.close()
}

func (v *BugView) load() tea.Cmd {
	ctx, gen := v.scope.reset()
	v.loading = true
	// reset drops any pending save result, so nothing else would clear this.
	v.saving = false
	client := v.client
	bugID := v.bugID
	return func() tea.Msg {
		msg := bugLoadedMsg{gen: gen}
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			bug, err := client.GetBugReport(ctx, bugID)
			msg.bug = bug
			return err
		})
		g.Go(func() error {
			discussions, err := client.ListDiscussions(ctx, bugID)
			msg.discussions = discussions
			return err
		})
		g.Go(func() error {
			summary, err := client.BugAiSummary(ctx, bugID)
			if err != nil {
				// The summary is optional unless the session is gone
				if api.IsAuthError(err) {
					return err
				}
				msg.summaryErr = err
				return nil
			}
			msg.summary = summary.Summary
			return nil
		})
		if err := g.Wait(); err != nil {
			return bugFailedMsg{gen: gen, err: err}
		}
		return msg
	}
}

func (v *BugView) setStatus(text string, isErr bool) {
	v.status = text
	v.statusErr = isErr
}

func (v *BugView) fail(err error) tea.Cmd {
	if api.IsAuthError(err) {
		return sessionExpired(err)
	}
	v.log.Warn("bug request failed", zap.Int64("bug_id", v.bugID), zap.Error(err))
	v.setStatus(errorText(err), true)
	return nil
}

func (v *BugView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.resize()
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case bugLoadedMsg:
		if msg.gen != v.scope.gen {
			return v, nil
		}
		v.loading = false
		v.bug = msg.bug
		v.discussions = msg.discussions
		v.summary = msg.summary
		v.summaryErr = ""
		if msg.summaryErr != nil {
			v.summaryErr = errorText(msg.summaryErr)
		}
		v.selected = clamp(v.selected, -1, len(v.discussions)-1)
		v.remember()
		v.rebuild()
		return v, nil

	case bugFailedMsg:
		if msg.gen != v.scope.gen {
			return v, nil
		}
		v.loading = false
		return v, v.fail(msg.err)

	case bugUpdatedMsg:
		if msg.gen != v.scope.gen {
			return v, nil
		}
		v.saving = false
		if msg.err != nil {
			return v, v.fail(msg.err)
		}
		v.bug = msg.bug
		v.setStatus(msg.what+" updated", false)
		v.rebuild()
		return v, nil

	case commentPostedMsg:
		if msg.gen != v.scope.gen {
			return v, nil
		}
		v.saving = false
		if msg.err != nil {
			return v, v.fail(msg.err)
		}
		v.applyPosted(msg.replyTo, *msg.discussion)
		if v.drafts != nil {
			if err := v.drafts.DeleteDraft(v.bugID, msg.replyTo); err != nil {
				v.log.Warn("failed to delete draft", zap.Error(err))
			}
		}
		v.commentInput.Reset()
		v.commentInput.Blur()
		v.mode = bugModeView
		if msg.replyTo == 0 {
			v.setStatus("Comment posted", false)
		} else {
			v.setStatus("Reply posted", false)
		}
		v.rebuild()
		v.scrollToSelected()
		return v, nil

	case copiedMsg:
		if msg.err != nil {
			v.setStatus("Could not copy: "+msg.err.Error(), true)
		} else {
			v.setStatus("Link copied to clipboard", false)
		}
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		switch v.mode {
		case bugModeCategory, bugModePriority:
			return v.updatePicker(msg)
		case bugModeVersions:
			return v.updateVersions(msg)
		case bugModeComment:
			return v.updateComment(msg)
		}
		return v.updateViewing(msg)
	}

	if v.mode == bugModeComment {
		var cmd tea.Cmd
		v.commentInput, cmd = v.commentInput.Update(msg)
		return v, cmd
	}
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// remember records the bug in the recently viewed list
func (v *BugView) remember() {
	if v.recent == nil || v.bug == nil {
		return
	}
	if err := v.recent.RecordRecentBug(*v.bug); err != nil {
		v.log.Warn("failed to record recent bug", zap.Error(err))
		return
	}
	if err := v.recent.PruneRecentBugs(recentKeep); err != nil {
		v.log.Warn("failed to prune recent bugs", zap.Error(err))
	}
}

func (v *BugView) applyPosted(replyTo int64, d models.Discussion) {
	if replyTo == 0 {
		v.discussions = append(v.discussions, d)
		v.selected = len(v.discussions) - 1
		return
	}
	for i := range v.discussions {
		if v.discussions[i].ID == d.ID {
			v.discussions[i] = d
			v.selected = i
			return
		}
	}
	v.discussions = append(v.discussions, d)
}

func (v *BugView) updateViewing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return BackToDashboard{} }

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil

	case key.Matches(msg, v.keys.Refresh):
		return v, v.load()

	case key.Matches(msg, v.keys.Theme):
		return v, func() tea.Msg { return ToggleTheme{} }

	case key.Matches(msg, v.keys.Up):
		v.viewport.ScrollUp(1)
		return v, nil

	case key.Matches(msg, v.keys.Down):
		v.viewport.ScrollDown(1)
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.selectDiscussion(1)
		return v, nil

	case key.Matches(msg, v.keys.ShiftTab):
		v.selectDiscussion(-1)
		return v, nil
	}

	if v.bug == nil || v.saving {
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keys.Category):
		v.mode = bugModeCategory
		v.pickerCursor = 0
		if v.bug.CategoryID != nil {
			v.pickerCursor = clamp(*v.bug.CategoryID, 0, len(category.Labels)-2)
		}
		return v, nil

	case key.Matches(msg, v.keys.Priority):
		v.mode = bugModePriority
		v.pickerCursor = 0
		for i, p := range models.Priorities {
			if p == v.bug.Priority {
				v.pickerCursor = i
			}
		}
		return v, nil

	case key.Matches(msg, v.keys.Versions):
		v.mode = bugModeVersions
		v.versionsInput.SetValue(v.bug.VersionsAffected)
		v.versionsInput.CursorEnd()
		v.versionsInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Comment):
		return v, v.startComment(0)

	case key.Matches(msg, v.keys.Reply):
		if v.selected < 0 || v.selected >= len(v.discussions) {
			v.setStatus("Select a discussion with tab first", true)
			return v, nil
		}
		return v, v.startComment(v.discussions[v.selected].ID)

	case key.Matches(msg, v.keys.Copy):
		url := v.bug.URL
		return v, func() tea.Msg { return copiedMsg{err: clipboardWriteAll(url)} }
	}
	return v, nil
}

func (v *BugView) selectDiscussion(dir int) {
	if len(v.discussions) == 0 {
		return
	}
	n := len(v.discussions) + 1
	// -1 means nothing selected
	v.selected = (v.selected+1+dir+n)%n - 1
	v.rebuild()
	v.scrollToSelected()
}

func (v *BugView) scrollToSelected() {
	if v.selected >= 0 && v.selected < len(v.discussionLines) {
		v.viewport.SetYOffset(v.discussionLines[v.selected])
	}
}

func (v *BugView) startComment(replyTo int64) tea.Cmd {
	v.mode = bugModeComment
	v.replyTo = replyTo
	v.commentInput.Reset()
	if replyTo == 0 {
		v.commentInput.Placeholder = "Write a comment..."
	} else {
		v.commentInput.Placeholder = "Write a reply..."
	}
	if v.drafts != nil {
		if draft, err := v.drafts.GetDraft(v.bugID, replyTo); err == nil && draft != "" {
			v.commentInput.SetValue(draft)
		}
	}
	v.resize()
	return v.commentInput.Focus()
}

func (v *BugView) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(models.Priorities)
	if v.mode == bugModeCategory {
		// "None Selected" is a filter value, not a category
		count = len(category.Labels) - 1
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		v.mode = bugModeView
		return v, nil

	case key.Matches(msg, v.keys.Up):
		v.pickerCursor = clamp(v.pickerCursor-1, 0, count-1)
		return v, nil

	case key.Matches(msg, v.keys.Down):
		v.pickerCursor = clamp(v.pickerCursor+1, 0, count-1)
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		mode := v.mode
		v.mode = bugModeView
		if mode == bugModeCategory {
			return v, v.updateCategory(v.pickerCursor)
		}
		return v, v.updatePriority(models.Priorities[v.pickerCursor])
	}
	return v, nil
}

func (v *BugView) updateVersions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.mode = bugModeView
		v.versionsInput.Blur()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		v.mode = bugModeView
		v.versionsInput.Blur()
		return v, v.updateVersionsAffected(strings.TrimSpace(v.versionsInput.Value()))
	}

	var cmd tea.Cmd
	v.versionsInput, cmd = v.versionsInput.Update(msg)
	return v, cmd
}

func (v *BugView) updateComment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.saveDraft()
		v.commentInput.Blur()
		v.mode = bugModeView
		v.resize()
		return v, nil

	case key.Matches(msg, v.keys.Submit):
		return v, v.submitComment()
	}

	var cmd tea.Cmd
	v.commentInput, cmd = v.commentInput.Update(msg)
	return v, cmd
}

func (v *BugView) saveDraft() {
	if v.drafts == nil {
		return
	}
	if err := v.drafts.SaveDraft(v.bugID, v.replyTo, v.commentInput.Value()); err != nil {
		v.log.Warn("failed to save draft", zap.Error(err))
		return
	}
	if strings.TrimSpace(v.commentInput.Value()) != "" {
		v.setStatus("Draft saved", false)
	}
}

func (v *BugView) submitComment() tea.Cmd {
	content := strings.TrimSpace(v.commentInput.Value())
	if content == "" || v.saving {
		return nil
	}
	v.saving = true

	client := v.client
	ctx, gen := v.scope.ctx, v.scope.gen
	bugID, authorID, replyTo := v.bugID, v.user.ID, v.replyTo
	return func() tea.Msg {
		var d *models.Discussion
		var err error
		if replyTo == 0 {
			d, err = client.AddComment(ctx, bugID, authorID, content)
		} else {
			d, err = client.AddReply(ctx, replyTo, authorID, content)
		}
		return commentPostedMsg{gen: gen, replyTo: replyTo, discussion: d, err: err}
	}
}

func (v *BugView) patch(what string, call func(ctx context.Context) (*models.BugReport, error)) tea.Cmd {
	v.saving = true
	ctx, gen := v.scope.ctx, v.scope.gen
	return func() tea.Msg {
		bug, err := call(ctx)
		return bugUpdatedMsg{gen: gen, what: what, bug: bug, err: err}
	}
}

func (v *BugView) updateCategory(categoryID int) tea.Cmd {
	client, bugID := v.client, v.bugID
	return v.patch("Category", func(ctx context.Context) (*models.BugReport, error) {
		return client.UpdateBugCategory(ctx, bugID, categoryID)
	})
}

func (v *BugView) updatePriority(p models.Priority) tea.Cmd {
	client, bugID := v.client, v.bugID
	return v.patch("Priority", func(ctx context.Context) (*models.BugReport, error) {
		return client.UpdateBugPriority(ctx, bugID, p)
	})
}

func (v *BugView) updateVersionsAffected(versions string) tea.Cmd {
	client, bugID := v.client, v.bugID
	return v.patch("Affected versions", func(ctx context.Context) (*models.BugReport, error) {
		return client.UpdateBugVersionsAffected(ctx, bugID, versions)
	})
}

func (v *BugView) resize() {
	contentWidth := styles.ContentWidth(v.width)
	v.commentInput.SetWidth(max(contentWidth-6, 20))
	v.versionsInput.Width = max(contentWidth-10, 20)

	reserved := 6
	if v.mode == bugModeComment {
		reserved += v.commentInput.Height() + 3
	}
	v.viewport.Width = contentWidth
	v.viewport.Height = max(v.height-reserved, 3)
	if contentWidth != v.contentWidth {
		v.rebuild()
	}
}

// rebuild renders the bug into the viewport
func (v *BugView) rebuild() {
	v.contentWidth = styles.ContentWidth(v.width)
	v.contentTheme = v.styles.Theme.Name
	if v.bug == nil {
		v.viewport.SetContent("")
		return
	}

	s := v.styles
	width := max(v.contentWidth-2, 20)
	bug := v.bug

	var lines []string
	add := func(parts ...string) {
		for _, p := range parts {
			lines = append(lines, strings.Split(p, "\n")...)
		}
	}

	add(s.Title.Width(width).Render(fmt.Sprintf("#%d %s", bug.ID, bug.Title)))

	state := s.BugOpen.Render("● Open")
	if bug.IsClosed {
		state = s.BugClosed.Render("✔ Closed")
	}
	categoryName := bug.CategoryName()
	if categoryName == "" {
		if bug.CategoryID != nil {
			if label, ok := category.LabelOf(*bug.CategoryID); ok {
				categoryName = string(label)
			}
		}
	}
	if categoryName == "" {
		categoryName = "Uncategorised"
	}
	add(fmt.Sprintf("%s  %s %s  %s %s",
		state,
		s.BugMeta.Render("Priority:"), s.Priority(bug.Priority).Render(string(bug.Priority)),
		s.BugMeta.Render("Category:"), s.BugCategory.Render(categoryName),
	))

	meta := []string{}
	if bug.Dbms != "" {
		meta = append(meta, "DBMS: "+bug.Dbms)
	}
	versions := bug.VersionsAffected
	if versions == "" {
		versions = "unknown"
	}
	meta = append(meta, "Versions: "+versions)
	add(s.BugMeta.Render(strings.Join(meta, "  ")))

	dates := []string{"Created " + formatTime(bug.IssueCreatedAt)}
	if bug.IssueUpdatedAt != nil && !bug.IssueUpdatedAt.IsZero() {
		dates = append(dates, "Updated "+formatTime(*bug.IssueUpdatedAt))
	}
	if bug.IssueClosedAt != nil && !bug.IssueClosedAt.IsZero() {
		dates = append(dates, "Closed "+formatTime(*bug.IssueClosedAt))
	}
	add(s.BugMeta.Render(strings.Join(dates, "  ")))
	if bug.URL != "" {
		add(s.BugMeta.Render(ansi.Truncate(bug.URL, width, "…")))
	}

	add("", s.ListHeading.Render("Description"))
	if desc := renderMarkdown(bug.DescriptionText(), s.Theme, width); desc != "" {
		add(desc)
	} else {
		add(s.TitleMuted.Render("No description."))
	}

	add("", s.ListHeading.Render("AI summary"))
	switch {
	case v.summary != "":
		add(renderMarkdown(v.summary, s.Theme, width))
	case v.summaryErr != "":
		add(s.TitleMuted.Render("Summary unavailable: " + v.summaryErr))
	default:
		add(s.TitleMuted.Render("No summary yet."))
	}

	add("", s.ListHeading.Render(fmt.Sprintf("Discussion (%d)", len(v.discussions))))
	v.discussionLines = v.discussionLines[:0]
	if len(v.discussions) == 0 {
		add(s.TitleMuted.Render("No comments yet. Press 'n' to start the discussion."))
	}
	for i, d := range v.discussions {
		v.discussionLines = append(v.discussionLines, len(lines))
		add(v.renderDiscussion(d, i == v.selected, width))
	}

	v.viewport.SetContent(strings.Join(lines, "\n"))
}

func (v *BugView) renderDiscussion(d models.Discussion, selected bool, width int) string {
	s := v.styles
	header := s.CommentAuthor.Render(authorName(d.Author)) + s.BugMeta.Render(" • "+formatTime(d.CreatedAt))
	if d.IsEdited {
		header += s.BugMeta.Render(" (edited)")
	}
	if selected {
		header = s.HelpKey.Render("▶ ") + header
	}
	parts := []string{"", header, s.CommentBody.Width(width).Render(d.Content)}

	for _, r := range d.Replies {
		replyHeader := s.CommentAuthor.Render(authorName(r.Author)) + s.BugMeta.Render(" • "+formatTime(r.CreatedAt))
		if r.IsEdited {
			replyHeader += s.BugMeta.Render(" (edited)")
		}
		reply := lipgloss.JoinVertical(lipgloss.Left,
			replyHeader,
			s.CommentBody.Width(max(width-6, 10)).Render(r.Content),
		)
		parts = append(parts, s.Reply.Render(reply))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func authorName(u models.UserSummary) string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return "Unknown"
}

func formatTime(t models.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format(dateFormat)
}

// View renders the view
func (v *BugView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.contentTheme != v.styles.Theme.Name {
		v.rebuild()
	}

	s := v.styles
	var b strings.Builder

	b.WriteString(s.TitleMuted.Render("← Dashboard"))
	b.WriteString("\n\n")

	switch {
	case v.loading && v.bug == nil:
		b.WriteString(v.spinner.View() + " " + s.TitleMuted.Render("Loading bug report..."))
	case v.bug == nil:
		b.WriteString(s.TitleMuted.Render("Bug report unavailable. Press r to retry."))
	default:
		b.WriteString(v.viewport.View())
	}
	b.WriteString("\n")

	switch v.mode {
	case bugModeCategory, bugModePriority:
		b.WriteString(v.renderPicker())
		b.WriteString("\n")
	case bugModeVersions:
		b.WriteString(s.InputFocused.Render(v.versionsInput.View()))
		b.WriteString("\n")
	case bugModeComment:
		label := "New comment"
		if v.replyTo != 0 {
			label = "Reply"
		}
		b.WriteString(s.BugMeta.Render(label))
		b.WriteString("\n")
		b.WriteString(s.InputFocused.Render(v.commentInput.View()))
		b.WriteString("\n")
	}

	if v.saving {
		b.WriteString(v.spinner.View() + " " + s.TitleMuted.Render("Saving..."))
		b.WriteString("\n")
	} else if status := renderStatus(s, v.status, v.statusErr); status != "" {
		b.WriteString(status)
		b.WriteString("\n")
	}
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *BugView) renderPicker() string {
	s := v.styles
	var title string
	var options []string
	if v.mode == bugModeCategory {
		title = "Category"
		for _, l := range category.Labels[:len(category.Labels)-1] {
			options = append(options, string(l))
		}
	} else {
		title = "Priority"
		for _, p := range models.Priorities {
			options = append(options, string(p))
		}
	}

	items := []string{s.Title.Render(title)}
	for i, o := range options {
		if i == v.pickerCursor {
			items = append(items, s.ListSelected.Render(o))
		} else {
			items = append(items, s.ListItem.Render(o))
		}
	}
	return s.FilterBar.Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (v *BugView) renderHelp() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	switch v.mode {
	case bugModeComment:
		return s.Help.Render(fmt.Sprintf("%s post • %s keep draft",
			s.HelpKey.Render("ctrl+s"), s.HelpKey.Render("esc")))
	case bugModeCategory, bugModePriority, bugModeVersions:
		return s.Help.Render(fmt.Sprintf("%s save • %s cancel",
			s.HelpKey.Render("↵"), s.HelpKey.Render("esc")))
	}
	if contentWidth > 0 && contentWidth < 60 {
		return s.Help.Render(s.HelpKey.Render("?") + " help")
	}
	return s.Help.Render(fmt.Sprintf("%s back • %s category • %s priority • %s versions • %s comment • %s reply • %s help",
		s.HelpKey.Render("esc"),
		s.HelpKey.Render("c"),
		s.HelpKey.Render("p"),
		s.HelpKey.Render("v"),
		s.HelpKey.Render("n"),
		s.HelpKey.Render("a"),
		s.HelpKey.Render("?"),
	))
}

func (v *BugView) renderHelpPopup() string {
	s := v.styles
	items := []string{
		s.HelpKey.Render("↑/↓") + "    scroll",
		s.HelpKey.Render("tab") + "    select discussion",
		s.HelpKey.Render("c") + "      change category",
		s.HelpKey.Render("p") + "      change priority",
		s.HelpKey.Render("v") + "      edit affected versions",
		s.HelpKey.Render("n") + "      new comment",
		s.HelpKey.Render("a") + "      reply to selected discussion",
		s.HelpKey.Render("y") + "      copy link",
		s.HelpKey.Render("r") + "      reload",
		s.HelpKey.Render("T") + "      toggle theme",
		s.HelpKey.Render("esc") + "    back to dashboard",
	}
	return renderPopup(s, "Keyboard Shortcuts", items, v.width, v.height)
}
