package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/category"
	"github.com/tgienger/bugtrack/internal/db"
	"github.com/tgienger/bugtrack/internal/models"
	"github.com/tgienger/bugtrack/internal/ui/keys"
	"github.com/tgienger/bugtrack/internal/ui/styles"
)

const (
	searchDebounce    = 500 * time.Millisecond
	minSearchLength   = 3
	autocompleteLimit = 100
	recentLimit       = 10
)

type dashTab int

const (
	tabOverview dashTab = iota
	tabExplore
	tabSearch
	tabRecent
)

var tabNames = []string{"Overview", "Explore", "Search Results", "Recent"}

type rowKind int

const (
	rowHeading rowKind = iota
	rowBug
	rowLoadMore
)

type listRow struct {
	kind       rowKind
	categoryID int
	bugID      int64
	title      string
	detail     string
}

// DashboardView shows one tenant: totals, charts, AI summary, search and the
// category explorer
type DashboardView struct {
	client  DashboardClient
	tenants Tenants
	recent  RecentBugs
	log     *zap.Logger
	styles  *styles.Styles
	keys    keys.KeyMap
	scope   *scope
	search  *scope
	width   int
	height  int
	user    models.User

	tenant    models.Dbms
	hasTenant bool
	loading   bool
	spinner   spinner.Model
	detail    *models.DbmsDetail
	trend     []int
	summary   string
	overview  viewport.Model

	// Rendered summary, cached per width and theme
	summaryCache string
	summaryKey   string

	tab           dashTab
	explore       *category.Explore
	searchBuckets []category.Bucket
	searched      bool
	recentBugs    []db.RecentBug
	cursor        int
	scrollY       int

	searchInput    textinput.Model
	searchFocused  bool
	debounceSeq    int
	lastSearched   string
	acReports      []models.BugReport
	autocomplete   category.Autocomplete
	acCursor       int
	acOpen         bool
	fetchingSearch bool

	filters        category.FilterSettings
	pendingFilters category.FilterSettings
	filterOpen     bool
	filterField    int

	tenantOpen   bool
	tenantCursor int

	showHelpPopup bool
	status        string
	statusErr     bool
}

type dashboardLoadedMsg struct {
	gen     int
	detail  *models.DbmsDetail
	trend   []int
	summary string
	explore []models.BugReport
}

type dashboardFailedMsg struct {
	gen int
	err error
}

type searchDebounceMsg struct {
	seq   int
	query string
}

type searchResultMsg struct {
	gen      int
	query    string
	populate bool
	reports  []models.BugReport
	err      error
}

type loadMoreMsg struct {
	gen        int
	categoryID int
	resp       *models.BugSearchCategoryResponse
	err        error
}

type recentLoadedMsg struct {
	dbmsID int64
	bugs   []db.RecentBug
	err    error
}

type tenantsRefreshedMsg struct {
	err error
}

func NewDashboardView(client DashboardClient, tenants Tenants, recent RecentBugs, user models.User, s *styles.Styles, logger *zap.Logger) *DashboardView {
	if logger == nil {
		logger = zap.NewNop()
	}

	search := textinput.New()
	search.Placeholder = "Search bug reports..."
	search.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &DashboardView{
		client:      client,
		tenants:     tenants,
		recent:      recent,
		log:         logger,
		styles:      s,
		keys:        keys.DefaultKeyMap(),
		scope:       newScope(),
		search:      newScope(),
		user:        user,
		spinner:     sp,
		overview:    viewport.New(0, 0),
		explore:     category.NewExplore(category.Labels),
		searchInput: search,
		acCursor:    -1,
		filters:     category.DefaultFilters(),
	}
}

func (v *DashboardView) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, v.reload())
}

// Close cancels every in-flight fetch
func (v *DashboardView) Close() {
	v.scope.close()
	v.search.close()
}

// RefreshRecent reloads the recently viewed list
func (v *DashboardView) RefreshRecent() tea.Cmd {
	if !v.hasTenant {
		return nil
	}
	return v.loadRecent(v.tenant.ID)
}

// Tenant returns the tenant on screen
func (v *DashboardView) Tenant() (models.Dbms, bool) {
	return v.tenant, v.hasTenant
}

// reload cancels whatever the dashboard was fetching and loads the current
// tenant from scratch
func (v *DashboardView) reload() tea.Cmd {
	ctx, gen := v.scope.reset()
	v.search.reset()

	v.tenant, v.hasTenant = v.tenants.Current()
	v.detail = nil
	v.trend = nil
	v.summary = ""
	v.summaryKey = ""
	v.explore = category.NewExplore(category.Labels)
	v.searchBuckets = nil
	v.searched = false
	v.acReports = nil
	v.acOpen = false
	v.lastSearched = ""
	v.cursor, v.scrollY = 0, 0

	if !v.hasTenant {
		v.loading = false
		v.setStatus("No DBMS available", true)
		return nil
	}

	v.loading = true
	v.status = ""
	return tea.Batch(v.loadDashboard(ctx, gen, v.tenant.ID), v.loadRecent(v.tenant.ID))
}

func (v *DashboardView) loadDashboard(ctx context.Context, gen int, dbmsID int64) tea.Cmd {
	client := v.client
	return func() tea.Msg {
		msg := dashboardLoadedMsg{gen: gen}
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			detail, err := client.GetDbms(ctx, dbmsID)
			msg.detail = detail
			return err
		})
		g.Go(func() error {
			trend, err := client.BugTrend(ctx, dbmsID, api.DefaultTrendDays)
			msg.trend = trend
			return err
		})
		g.Go(func() error {
			summary, err := client.DbmsAiSummary(ctx, dbmsID)
			if err != nil {
				return err
			}
			msg.summary = summary.Summary
			return nil
		})
		g.Go(func() error {
			res, err := client.SearchBugReports(ctx, dbmsID, api.SearchParams{Limit: api.DefaultSearchLimit})
			if err != nil {
				return err
			}
			msg.explore = res.BugReports
			return nil
		})
		if err := g.Wait(); err != nil {
			return dashboardFailedMsg{gen: gen, err: err}
		}
		return msg
	}
}

func (v *DashboardView) loadRecent(dbmsID int64) tea.Cmd {
	if v.recent == nil {
		return nil
	}
	recent := v.recent
	return func() tea.Msg {
		bugs, err := recent.ListRecentBugs(dbmsID, recentLimit)
		return recentLoadedMsg{dbmsID: dbmsID, bugs: bugs, err: err}
	}
}

func (v *DashboardView) runSearch(query string, populate bool) tea.Cmd {
	if !v.hasTenant {
		return nil
	}
	ctx, gen := v.search.reset()
	v.fetchingSearch = populate

	client := v.client
	dbmsID := v.tenant.ID
	params := api.SearchParams{Search: query, Limit: autocompleteLimit, CategoryID: v.filters.CategoryID()}
	return func() tea.Msg {
		res, err := client.SearchBugReports(ctx, dbmsID, params)
		msg := searchResultMsg{gen: gen, query: query, populate: populate, err: err}
		if err == nil {
			msg.reports = res.BugReports
		}
		return msg
	}
}

func (v *DashboardView) loadMore(categoryID int) tea.Cmd {
	if !v.hasTenant {
		return nil
	}
	client := v.client
	ctx, gen := v.scope.ctx, v.scope.gen
	dbmsID := v.tenant.ID
	distribution := v.explore.Distribution()
	return func() tea.Msg {
		resp, err := client.LoadMoreBugsByCategory(ctx, dbmsID, categoryID, distribution, api.DefaultLoadMoreCount)
		return loadMoreMsg{gen: gen, categoryID: categoryID, resp: resp, err: err}
	}
}

func (v *DashboardView) refreshTenants() tea.Cmd {
	tenants := v.tenants
	ctx := v.scope.ctx
	return func() tea.Msg {
		return tenantsRefreshedMsg{err: tenants.Refresh(ctx)}
	}
}

func (v *DashboardView) setStatus(text string, isErr bool) {
	v.status = text
	v.statusErr = isErr
}

func (v *DashboardView) fail(err error) tea.Cmd {
	if api.IsAuthError(err) {
		return sessionExpired(err)
	}
	v.log.Warn("dashboard request failed", zap.Error(err))
	v.setStatus(errorText(err), true)
	return nil
}

func (v *DashboardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.overview.Width = styles.ContentWidth(msg.Width) - 2
		v.overview.Height = v.listHeight()
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case dashboardLoadedMsg:
		if msg.gen != v.scope.gen {
			return v, nil
		}
		v.loading = false
		v.detail = msg.detail
		v.trend = msg.trend
		v.summary = msg.summary
		v.summaryKey = ""
		v.explore.Replace(msg.explore)
		v.overview.GotoTop()
		return v, nil

	case dashboardFailedMsg:
		if msg.gen != v.scope.gen {
			return v, nil
		}
		v.loading = false
		return v, v.fail(msg.err)

	case recentLoadedMsg:
		if !v.hasTenant || msg.dbmsID != v.tenant.ID {
			return v, nil
		}
		if msg.err != nil {
			v.log.Warn("failed to load recent bugs", zap.Error(msg.err))
			return v, nil
		}
		v.recentBugs = msg.bugs
		return v, nil

	case searchDebounceMsg:
		if msg.seq != v.debounceSeq {
			return v, nil
		}
		if len([]rune(msg.query)) < minSearchLength {
			v.acOpen = false
			return v, nil
		}
		return v, v.runSearch(msg.query, false)

	case searchResultMsg:
		if msg.gen != v.search.gen {
			return v, nil
		}
		v.fetchingSearch = false
		if msg.err != nil {
			return v, v.fail(msg.err)
		}
		v.acReports = msg.reports
		v.lastSearched = msg.query
		if msg.populate {
			v.showSearchResults(msg.reports)
			return v, nil
		}
		v.autocomplete = category.Categorise(msg.reports, category.Labels)
		v.acOpen = v.searchFocused && v.autocomplete.Len() > 0
		v.acCursor = -1
		return v, nil

	case loadMoreMsg:
		if msg.gen != v.scope.gen {
			return v, nil
		}
		if msg.err != nil {
			return v, v.fail(msg.err)
		}
		v.explore.LoadMore(msg.categoryID, msg.resp.BugReportsDelta, msg.resp.NewBugDistr)
		if len(msg.resp.BugReportsDelta) == 0 {
			label, _ := category.LabelOf(msg.categoryID)
			v.setStatus(fmt.Sprintf("No more bugs in %s", label), false)
		}
		return v, nil

	case tenantsRefreshedMsg:
		if msg.err != nil {
			return v, v.fail(msg.err)
		}
		return v, v.reload()

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.tenantOpen {
			return v.updateTenantDropdown(msg)
		}
		if v.filterOpen {
			return v.updateFilters(msg)
		}
		if v.searchFocused {
			return v.updateSearch(msg)
		}
		return v.updateNormal(msg)
	}

	if v.tab == tabOverview {
		var cmd tea.Cmd
		v.overview, cmd = v.overview.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *DashboardView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil

	case key.Matches(msg, v.keys.Search):
		v.searchFocused = true
		v.searchInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Tab):
		v.switchTab(1)
		return v, nil

	case key.Matches(msg, v.keys.ShiftTab):
		v.switchTab(-1)
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.tab == tabOverview {
			v.overview.ScrollUp(1)
			return v, nil
		}
		v.moveCursor(-1)
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.tab == tabOverview {
			v.overview.ScrollDown(1)
			return v, nil
		}
		v.moveCursor(1)
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		return v, v.activateRow()

	case key.Matches(msg, v.keys.LoadMore):
		if v.tab != tabExplore {
			return v, nil
		}
		rows := v.rows()
		if v.cursor < len(rows) {
			return v, v.loadMore(rows[v.cursor].categoryID)
		}
		return v, nil

	case key.Matches(msg, v.keys.Filter):
		v.filterOpen = true
		v.filterField = 0
		v.pendingFilters = v.filters
		return v, nil

	case key.Matches(msg, v.keys.Tenant):
		list := v.tenants.Tenants()
		if len(list) == 0 {
			return v, nil
		}
		v.tenantOpen = true
		v.tenantCursor = 0
		for i, t := range list {
			if t.ID == v.tenant.ID {
				v.tenantCursor = i
			}
		}
		return v, nil

	case key.Matches(msg, v.keys.Refresh):
		v.setStatus("Refreshing...", false)
		return v, v.refreshTenants()

	case key.Matches(msg, v.keys.Theme):
		v.summaryKey = ""
		return v, func() tea.Msg { return ToggleTheme{} }

	case key.Matches(msg, v.keys.Logout):
		return v, func() tea.Msg { return LogoutRequested{} }
	}
	return v, nil
}

func (v *DashboardView) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		v.searchFocused = false
		v.acOpen = false
		v.searchInput.Blur()
		return v, nil

	case msg.String() == "up":
		if v.acOpen {
			v.acCursor = clamp(v.acCursor-1, -1, v.autocomplete.Len()-1)
		}
		return v, nil

	case msg.String() == "down":
		if v.acOpen {
			v.acCursor = clamp(v.acCursor+1, -1, v.autocomplete.Len()-1)
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.acOpen && v.acCursor >= 0 {
			if opt, ok := v.selectedOption(); ok {
				v.acOpen = false
				return v, func() tea.Msg { return OpenBug{BugID: opt.BugReportID} }
			}
		}
		return v, v.populateSearch()
	}

	before := v.searchInput.Value()
	var cmd tea.Cmd
	v.searchInput, cmd = v.searchInput.Update(msg)
	query := v.searchInput.Value()
	if query == before {
		return v, cmd
	}

	v.debounceSeq++
	seq := v.debounceSeq
	v.acCursor = -1
	debounce := tea.Tick(searchDebounce, func(time.Time) tea.Msg {
		return searchDebounceMsg{seq: seq, query: query}
	})
	return v, tea.Batch(cmd, debounce)
}

// populateSearch fills the search results tab, fetching again only when the
// input changed since the last search
func (v *DashboardView) populateSearch() tea.Cmd {
	v.acOpen = false
	query := strings.TrimSpace(v.searchInput.Value())
	if query != "" && query != v.lastSearched {
		return v.runSearch(query, true)
	}
	v.showSearchResults(v.acReports)
	return nil
}

func (v *DashboardView) showSearchResults(reports []models.BugReport) {
	filtered := make([]models.BugReport, 0, len(reports))
	for _, r := range reports {
		if v.filters.MatchesPriority(r) {
			filtered = append(filtered, r)
		}
	}
	v.searchBuckets = category.GroupSearchResults(filtered, category.Labels).Ordered()
	v.searched = true
	v.acOpen = false
	v.tab = tabSearch
	v.cursor, v.scrollY = 0, 0
	v.moveCursor(0)
}

func (v *DashboardView) selectedOption() (category.Option, bool) {
	i := 0
	for _, g := range v.autocomplete.Categories {
		for _, opt := range g.Options {
			if i == v.acCursor {
				return opt, true
			}
			i++
		}
	}
	return category.Option{}, false
}

func (v *DashboardView) updateFilters(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.filterOpen = false
		return v, nil

	case key.Matches(msg, v.keys.Up), key.Matches(msg, v.keys.Down), key.Matches(msg, v.keys.Tab):
		v.filterField = 1 - v.filterField
		return v, nil

	case key.Matches(msg, v.keys.Left):
		v.cycleFilter(-1)
		return v, nil

	case key.Matches(msg, v.keys.Right):
		v.cycleFilter(1)
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		v.filters = v.pendingFilters
		v.filterOpen = false
		return v, v.runSearch(v.lastSearched, true)
	}
	return v, nil
}

func (v *DashboardView) cycleFilter(dir int) {
	if v.filterField == 0 {
		idx, _ := category.IDOf(v.pendingFilters.Category)
		n := len(category.Labels)
		v.pendingFilters.Category = category.Labels[(idx+dir+n)%n]
		return
	}
	idx := 0
	for i, p := range category.PriorityFilters {
		if p == v.pendingFilters.Priority {
			idx = i
		}
	}
	n := len(category.PriorityFilters)
	v.pendingFilters.Priority = category.PriorityFilters[(idx+dir+n)%n]
}

func (v *DashboardView) updateTenantDropdown(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := v.tenants.Tenants()
	switch {
	case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Tenant):
		v.tenantOpen = false
		return v, nil

	case key.Matches(msg, v.keys.Up):
		v.tenantCursor = clamp(v.tenantCursor-1, 0, len(list)-1)
		return v, nil

	case key.Matches(msg, v.keys.Down):
		v.tenantCursor = clamp(v.tenantCursor+1, 0, len(list)-1)
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		v.tenantOpen = false
		if v.tenantCursor >= len(list) {
			return v, nil
		}
		chosen := list[v.tenantCursor]
		if chosen.ID == v.tenant.ID {
			return v, nil
		}
		if err := v.tenants.SetCurrent(chosen.ID); err != nil {
			return v, v.fail(err)
		}
		return v, v.reload()
	}
	return v, nil
}

func (v *DashboardView) switchTab(dir int) {
	n := len(tabNames)
	v.tab = dashTab((int(v.tab) + dir + n) % n)
	v.cursor, v.scrollY = 0, 0
	v.moveCursor(0)
}

// moveCursor steps over headings so only bugs and "load more" rows can be
// selected
func (v *DashboardView) moveCursor(dir int) {
	rows := v.rows()
	if len(rows) == 0 {
		v.cursor = 0
		return
	}
	step := dir
	if step == 0 {
		step = 1
	}
	next := v.cursor + dir
	for next >= 0 && next < len(rows) && rows[next].kind == rowHeading {
		next += step
	}
	if next < 0 || next >= len(rows) {
		return
	}
	v.cursor = next
	v.ensureVisible()
}

func (v *DashboardView) ensureVisible() {
	visible := v.listHeight()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
	// Keep a heading above the first bug in view
	if v.scrollY > 0 && v.cursor == v.scrollY {
		v.scrollY--
	}
}

func (v *DashboardView) listHeight() int {
	return max(v.height-14, 3)
}

func (v *DashboardView) activateRow() tea.Cmd {
	rows := v.rows()
	if v.cursor >= len(rows) {
		return nil
	}
	row := rows[v.cursor]
	switch row.kind {
	case rowBug:
		id := row.bugID
		return func() tea.Msg { return OpenBug{BugID: id} }
	case rowLoadMore:
		return v.loadMore(row.categoryID)
	}
	return nil
}

func (v *DashboardView) rows() []listRow {
	switch v.tab {
	case tabExplore:
		return v.exploreRows()
	case tabSearch:
		return bucketRows(v.searchBuckets, nil)
	case tabRecent:
		rows := make([]listRow, 0, len(v.recentBugs))
		for _, b := range v.recentBugs {
			rows = append(rows, listRow{
				kind:   rowBug,
				bugID:  b.BugID,
				title:  b.Title,
				detail: "viewed " + b.ViewedAt.Local().Format("Jan 2 15:04"),
			})
		}
		return rows
	}
	return nil
}

// exploreRows lists every category the tenant has bugs in, with a "load
// more" row while the server holds more than is loaded
func (v *DashboardView) exploreRows() []listRow {
	totals := map[int]int{}
	var buckets []category.Bucket
	if v.detail != nil {
		for _, c := range v.detail.BugCategories {
			if c.Count == 0 {
				continue
			}
			totals[c.ID] = c.Count
			b, ok := v.explore.Bucket(c.ID)
			if !ok {
				label, known := category.LabelOf(c.ID)
				if !known {
					continue
				}
				b = category.Bucket{CategoryID: c.ID, Title: label}
			}
			buckets = append(buckets, b)
		}
	} else {
		buckets = v.explore.Categories()
	}
	return bucketRows(buckets, totals)
}

func bucketRows(buckets []category.Bucket, totals map[int]int) []listRow {
	var rows []listRow
	for _, b := range buckets {
		heading := string(b.Title)
		if total, ok := totals[b.CategoryID]; ok {
			heading = fmt.Sprintf("%s (%d/%d)", b.Title, len(b.Bugs), total)
		}
		rows = append(rows, listRow{kind: rowHeading, categoryID: b.CategoryID, title: heading})
		for _, bug := range b.Bugs {
			rows = append(rows, listRow{
				kind:       rowBug,
				categoryID: b.CategoryID,
				bugID:      bug.BugReportID,
				title:      bug.Display,
				detail:     firstLine(bug.Description),
			})
		}
		if total, ok := totals[b.CategoryID]; ok && total > len(b.Bugs) {
			rows = append(rows, listRow{kind: rowLoadMore, categoryID: b.CategoryID, title: "Load more..."})
		}
	}
	return rows
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// View renders the view
func (v *DashboardView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n")

	switch {
	case v.tenantOpen:
		b.WriteString(v.renderTenantDropdown())
		b.WriteString("\n")
	case v.filterOpen:
		b.WriteString(v.renderFilters())
		b.WriteString("\n")
	case v.acOpen:
		b.WriteString(v.renderAutocomplete())
		b.WriteString("\n")
	}

	b.WriteString(v.renderTabs())
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.spinner.View() + " " + v.styles.TitleMuted.Render("Loading dashboard..."))
	case v.fetchingSearch:
		b.WriteString(v.spinner.View() + " " + v.styles.TitleMuted.Render("Searching..."))
	case v.tab == tabOverview:
		b.WriteString(v.renderOverview())
	default:
		b.WriteString(v.renderList())
	}

	b.WriteString("\n")
	if status := renderStatus(v.styles, v.status, v.statusErr); status != "" {
		b.WriteString(status)
		b.WriteString("\n")
	}
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *DashboardView) renderHeader() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	tenantLabel := "No DBMS"
	if v.hasTenant {
		tenantLabel = v.tenant.Name
	}
	tenantStyle := s.Button
	if v.tenantOpen {
		tenantStyle = s.ButtonFocused
	}
	tenantBtn := tenantStyle.Render(tenantLabel + " ▼")

	searchStyle := s.Input
	if v.searchFocused {
		searchStyle = s.InputFocused
	}
	searchWidth := clamp(contentWidth-lipgloss.Width(tenantBtn)-18, 10, 40)
	searchBox := searchStyle.Width(searchWidth).Render(v.searchInput.View())

	filterLabel := "Filters"
	if v.filters.CategoryID() != nil || v.filters.Priority != category.PriorityNoneSelected {
		filterLabel = "Filters •"
	}
	filterStyle := s.Button
	if v.filterOpen {
		filterStyle = s.ButtonFocused
	}
	filterBtn := filterStyle.Render(filterLabel)

	title := s.Title.Render("Bug Track")
	if v.user.Name != "" {
		title += s.TitleMuted.Render("  signed in as " + v.user.Name)
	}

	row := lipgloss.JoinHorizontal(lipgloss.Center, tenantBtn, " ", searchBox, " ", filterBtn)
	return lipgloss.JoinVertical(lipgloss.Left, title, row)
}

func (v *DashboardView) renderTabs() string {
	s := v.styles
	var tabs []string
	for i, name := range tabNames {
		if dashTab(i) == v.tab {
			tabs = append(tabs, s.TabActive.Render(name))
		} else {
			tabs = append(tabs, s.Tab.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (v *DashboardView) renderOverview() string {
	s := v.styles
	width := styles.ContentWidth(v.width) - 2
	if v.detail == nil {
		return s.TitleMuted.Render("Nothing loaded yet.")
	}

	var parts []string
	parts = append(parts,
		s.Title.Render(fmt.Sprintf("%s • %d bugs tracked", v.detail.Name, v.detail.BugCount)),
		"",
		s.ListHeading.Render("Bug distribution"),
		distributionBars(s, v.detail.BugCategories, width),
		"",
		s.ListHeading.Render(fmt.Sprintf("Last %d days", len(v.trend))),
		s.Sparkline.Render(sparkline(v.trend))+s.TitleMuted.Render(fmt.Sprintf("  %d new", sum(v.trend))),
		"",
		s.ListHeading.Render("AI summary"),
		v.renderSummary(width),
	)

	v.overview.Width = width
	v.overview.Height = v.listHeight()
	v.overview.SetContent(lipgloss.JoinVertical(lipgloss.Left, parts...))
	return v.overview.View()
}

func (v *DashboardView) renderSummary(width int) string {
	if strings.TrimSpace(v.summary) == "" {
		return v.styles.TitleMuted.Render("No summary available.")
	}
	cacheKey := fmt.Sprintf("%d/%s", width, v.styles.Theme.Name)
	if v.summaryKey != cacheKey {
		v.summaryCache = renderMarkdown(v.summary, v.styles.Theme, width)
		v.summaryKey = cacheKey
	}
	return v.summaryCache
}

func sum(values []int) int {
	total := 0
	for _, n := range values {
		total += n
	}
	return total
}

func (v *DashboardView) renderList() string {
	s := v.styles
	rows := v.rows()
	if len(rows) == 0 {
		switch v.tab {
		case tabSearch:
			if v.searched {
				return s.TitleMuted.Render("No bug reports match your search.")
			}
			return s.TitleMuted.Render("Press / to search, then Enter to list the results.")
		case tabRecent:
			return s.TitleMuted.Render("Bugs you open will show up here.")
		}
		return s.TitleMuted.Render("No bug reports yet.")
	}

	width := styles.ContentWidth(v.width) - 2
	end := min(v.scrollY+v.listHeight(), len(rows))
	var lines []string
	for i := v.scrollY; i < end; i++ {
		lines = append(lines, v.renderRow(rows[i], i == v.cursor, width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *DashboardView) renderRow(row listRow, selected bool, width int) string {
	s := v.styles
	var line string
	switch row.kind {
	case rowHeading:
		return ansi.Truncate(s.BugCategory.Bold(true).Render(row.title), width, "…")
	case rowLoadMore:
		line = s.HelpKey.Render("  " + row.title)
	default:
		line = s.BugMeta.Render(fmt.Sprintf("  #%d ", row.bugID)) + s.BugTitle.Render(row.title)
		if row.detail != "" {
			line += s.BugMeta.Render("  " + row.detail)
		}
	}
	line = ansi.Truncate(line, width-2, "…")
	if selected {
		return s.ListSelected.Padding(0, 0).Render(ansi.Strip(line))
	}
	return line
}

func (v *DashboardView) renderAutocomplete() string {
	s := v.styles
	width := styles.ContentWidth(v.width) - 6
	var lines []string
	i := 0
	for _, g := range v.autocomplete.Categories {
		lines = append(lines, s.BugCategory.Render(string(g.Title)))
		for _, opt := range g.Options {
			text := "  " + category.Truncate(opt.Display, width-6)
			if i == v.acCursor {
				lines = append(lines, s.ListSelected.Padding(0, 0).Render(text))
			} else {
				lines = append(lines, s.ListItem.Padding(0, 0).Render(text))
			}
			i++
		}
	}

	// Keep the dropdown short; scroll it around the cursor
	const maxLines = 10
	if len(lines) > maxLines {
		start := clamp(v.acCursor, 0, len(lines)-maxLines)
		lines = lines[start : start+maxLines]
	}
	return s.FilterBar.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (v *DashboardView) renderTenantDropdown() string {
	s := v.styles
	var items []string
	for i, t := range v.tenants.Tenants() {
		style := s.ListItem
		if i == v.tenantCursor {
			style = s.ListSelected
		}
		marker := "  "
		if t.ID == v.tenant.ID {
			marker = "● "
		}
		items = append(items, style.Render(marker+t.Name))
	}
	return s.FilterBar.Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (v *DashboardView) renderFilters() string {
	s := v.styles
	field := func(idx int, name, value string) string {
		style := s.ListItem
		if v.filterField == idx {
			style = s.ListSelected
		}
		return style.Render(fmt.Sprintf("%-10s ‹ %s ›", name, value))
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Filters"),
		field(0, "Category:", string(v.pendingFilters.Category)),
		field(1, "Priority:", string(v.pendingFilters.Priority)),
		s.TitleMuted.Render("←/→ change • ↵ apply • esc cancel"),
	)
	return s.FilterBar.Render(content)
}

func (v *DashboardView) renderHelp() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 60 {
		return s.Help.Render(s.HelpKey.Render("?") + " help")
	}
	if v.searchFocused {
		return s.Help.Render(fmt.Sprintf("%s list results • %s pick • %s done",
			s.HelpKey.Render("↵"),
			s.HelpKey.Render("↑/↓"),
			s.HelpKey.Render("esc"),
		))
	}
	return s.Help.Render(fmt.Sprintf("%s search • %s view • %s open • %s more • %s filters • %s dbms • %s help",
		s.HelpKey.Render("/"),
		s.HelpKey.Render("tab"),
		s.HelpKey.Render("↵"),
		s.HelpKey.Render("m"),
		s.HelpKey.Render("f"),
		s.HelpKey.Render("d"),
		s.HelpKey.Render("?"),
	))
}

func (v *DashboardView) renderHelpPopup() string {
	s := v.styles
	items := []string{
		s.HelpKey.Render("/") + "      search bug reports",
		s.HelpKey.Render("tab") + "    next view",
		s.HelpKey.Render("↵") + "      open bug / load more",
		s.HelpKey.Render("m") + "      load more of this category",
		s.HelpKey.Render("f") + "      filters",
		s.HelpKey.Render("d") + "      switch DBMS",
		s.HelpKey.Render("r") + "      refresh",
		s.HelpKey.Render("T") + "      toggle theme",
		s.HelpKey.Render("L") + "      log out",
		s.HelpKey.Render("q") + "      quit",
	}
	return renderPopup(s, "Keyboard Shortcuts", items, v.width, v.height)
}
