package views

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/category"
	"github.com/tgienger/bugtrack/internal/models"
)

var (
	sqlite = models.Dbms{ID: 1, Name: "SQLite"}
	duckdb = models.Dbms{ID: 2, Name: "DuckDB"}
)

func newTestDashboard(client *fakeClient, tenants *fakeTenants) *DashboardView {
	v := NewDashboardView(client, tenants, newFakeStore(), models.User{ID: 1, Name: "Alice"}, testStyles(), nil)
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return v
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDashboardWithoutTenant(t *testing.T) {
	v := newTestDashboard(&fakeClient{}, &fakeTenants{})

	cmd := v.reload()

	assert.Nil(t, cmd)
	assert.False(t, v.loading)
	assert.Equal(t, "No DBMS available", v.status)
}

func TestLoadDashboardCollectsEverything(t *testing.T) {
	client := &fakeClient{
		detail:  &models.DbmsDetail{ID: 1, Name: "SQLite", BugCount: 3},
		trend:   []int{0, 1, 2},
		summary: "Mostly crashes.",
		search:  []models.BugReport{bugIn(1, 0, models.PriorityHigh)},
	}
	v := newTestDashboard(client, &fakeTenants{list: []models.Dbms{sqlite}})

	msg := v.loadDashboard(context.Background(), 3, 1)()

	loaded, ok := msg.(dashboardLoadedMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, 3, loaded.gen)
	assert.Equal(t, "SQLite", loaded.detail.Name)
	assert.Equal(t, []int{0, 1, 2}, loaded.trend)
	assert.Equal(t, "Mostly crashes.", loaded.summary)
	assert.Len(t, loaded.explore, 1)
	require.Len(t, client.searches, 1)
	assert.Equal(t, api.DefaultSearchLimit, client.searches[0].Limit)
	assert.Empty(t, client.searches[0].Search)
}

func TestLoadDashboardFailsAsAGroup(t *testing.T) {
	client := &fakeClient{
		detail:     &models.DbmsDetail{ID: 1},
		summaryErr: errors.New("summary service down"),
	}
	v := newTestDashboard(client, &fakeTenants{list: []models.Dbms{sqlite}})

	msg := v.loadDashboard(context.Background(), 1, 1)()

	failed, ok := msg.(dashboardFailedMsg)
	require.True(t, ok, "got %T", msg)
	assert.EqualError(t, failed.err, "summary service down")
}

func TestDashboardDropsStaleLoad(t *testing.T) {
	v := newTestDashboard(&fakeClient{}, &fakeTenants{list: []models.Dbms{sqlite}})
	require.NotNil(t, v.reload())
	gen := v.scope.gen

	v.Update(dashboardLoadedMsg{gen: gen - 1, detail: &models.DbmsDetail{Name: "old"}})
	assert.Nil(t, v.detail)
	assert.True(t, v.loading)

	v.Update(dashboardLoadedMsg{gen: gen, detail: &models.DbmsDetail{Name: "SQLite"}})
	require.NotNil(t, v.detail)
	assert.Equal(t, "SQLite", v.detail.Name)
	assert.False(t, v.loading)
}

func TestDashboardAuthFailureExpiresSession(t *testing.T) {
	v := newTestDashboard(&fakeClient{}, &fakeTenants{list: []models.Dbms{sqlite}})
	v.reload()

	_, cmd := v.Update(dashboardFailedMsg{gen: v.scope.gen, err: api.NewError(api.CodeUnauthenticated, "expired")})

	require.NotNil(t, cmd)
	_, ok := cmd().(SessionExpired)
	assert.True(t, ok)
}

func loadedDashboard(t *testing.T) *DashboardView {
	t.Helper()
	v := newTestDashboard(&fakeClient{}, &fakeTenants{list: []models.Dbms{sqlite, duckdb}})
	v.reload()
	v.Update(dashboardLoadedMsg{
		gen: v.scope.gen,
		detail: &models.DbmsDetail{
			ID:       1,
			Name:     "SQLite",
			BugCount: 4,
			BugCategories: []models.BugCategory{
				{ID: 0, Name: string(category.Crash), Count: 3},
				{ID: 1, Name: string(category.AssertionFailure), Count: 0},
				{ID: 3, Name: string(category.IncorrectQueryResult), Count: 1},
			},
		},
		explore: []models.BugReport{
			bugIn(10, 0, models.PriorityHigh),
			bugIn(11, 0, models.PriorityLow),
		},
	})
	return v
}

func kinds(rows []listRow) []rowKind {
	out := make([]rowKind, len(rows))
	for i, r := range rows {
		out[i] = r.kind
	}
	return out
}

func TestExploreRowsOfferLoadMore(t *testing.T) {
	v := loadedDashboard(t)
	v.tab = tabExplore

	rows := v.rows()

	assert.Equal(t, []rowKind{rowHeading, rowBug, rowBug, rowLoadMore, rowHeading, rowLoadMore}, kinds(rows))
	assert.Equal(t, "Crash / Segmentation Fault (2/3)", rows[0].title)
	assert.Equal(t, "Incorrect Query Result (0/1)", rows[4].title)
	assert.Equal(t, 3, rows[5].categoryID)
}

func TestLoadMoreFillsCategory(t *testing.T) {
	v := loadedDashboard(t)
	v.tab = tabExplore

	v.Update(loadMoreMsg{
		gen:        v.scope.gen,
		categoryID: 0,
		resp: &models.BugSearchCategoryResponse{
			BugReportsDelta: []models.BugReport{bugIn(12, 0, models.PriorityMedium)},
		},
	})

	rows := v.rows()
	assert.Equal(t, []rowKind{rowHeading, rowBug, rowBug, rowBug, rowHeading, rowLoadMore}, kinds(rows))
	assert.Equal(t, "Crash / Segmentation Fault (3/3)", rows[0].title)
	assert.Equal(t, []int{3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, v.explore.Distribution())
}

func TestLoadMoreEmptyDeltaSaysSo(t *testing.T) {
	v := loadedDashboard(t)

	v.Update(loadMoreMsg{gen: v.scope.gen, categoryID: 3, resp: &models.BugSearchCategoryResponse{}})

	assert.Equal(t, "No more bugs in Incorrect Query Result", v.status)
	assert.False(t, v.statusErr)
}

func TestCursorSkipsHeadings(t *testing.T) {
	v := loadedDashboard(t)
	v.switchTab(1)
	require.Equal(t, tabExplore, v.tab)
	assert.Equal(t, 1, v.cursor)

	v.moveCursor(1)
	v.moveCursor(1)
	assert.Equal(t, 3, v.cursor)

	// Heading at 4 is skipped
	v.moveCursor(1)
	assert.Equal(t, 5, v.cursor)

	// Nothing below the last row
	v.moveCursor(1)
	assert.Equal(t, 5, v.cursor)
}

func TestEnterOnBugOpensIt(t *testing.T) {
	v := loadedDashboard(t)
	v.switchTab(1)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, OpenBug{BugID: 10}, cmd())
}

func TestSearchDebounce(t *testing.T) {
	client := &fakeClient{search: []models.BugReport{bugIn(5, 2, models.PriorityLow)}}
	v := newTestDashboard(client, &fakeTenants{list: []models.Dbms{sqlite}})
	v.reload()
	v.searchFocused = true
	v.debounceSeq = 2

	_, cmd := v.Update(searchDebounceMsg{seq: 1, query: "crash"})
	assert.Nil(t, cmd, "superseded keystroke")

	_, cmd = v.Update(searchDebounceMsg{seq: 2, query: "cr"})
	assert.Nil(t, cmd, "too short")

	_, cmd = v.Update(searchDebounceMsg{seq: 2, query: "crash"})
	require.NotNil(t, cmd)
	v.Update(cmd())

	require.Len(t, client.searches, 1)
	assert.Equal(t, "crash", client.searches[0].Search)
	assert.Equal(t, autocompleteLimit, client.searches[0].Limit)
	assert.True(t, v.acOpen)
	assert.Equal(t, 1, v.autocomplete.Len())
	assert.Equal(t, "crash", v.lastSearched)
}

func TestTypingSchedulesDebounce(t *testing.T) {
	v := newTestDashboard(&fakeClient{}, &fakeTenants{list: []models.Dbms{sqlite}})
	v.reload()
	v.Update(runeKey("/"))
	require.True(t, v.searchFocused)

	_, cmd := v.Update(runeKey("x"))

	assert.NotNil(t, cmd)
	assert.Equal(t, 1, v.debounceSeq)
	assert.Equal(t, "x", v.searchInput.Value())
}

func TestSearchUsesCategoryFilter(t *testing.T) {
	client := &fakeClient{}
	v := newTestDashboard(client, &fakeTenants{list: []models.Dbms{sqlite}})
	v.reload()
	v.filters.Category = category.Deadlock

	v.runSearch("lock", true)()

	require.Len(t, client.searches, 1)
	require.NotNil(t, client.searches[0].CategoryID)
	assert.Equal(t, 8, *client.searches[0].CategoryID)
}

func TestSearchResultsApplyPriorityFilter(t *testing.T) {
	v := newTestDashboard(&fakeClient{}, &fakeTenants{list: []models.Dbms{sqlite}})
	v.filters.Priority = category.PriorityFilter(models.PriorityHigh)

	v.showSearchResults([]models.BugReport{
		bugIn(1, 3, models.PriorityHigh),
		bugIn(2, 0, models.PriorityLow),
		bugIn(3, 0, models.PriorityHigh),
	})

	assert.Equal(t, tabSearch, v.tab)
	require.Len(t, v.searchBuckets, 2)
	assert.Equal(t, category.Crash, v.searchBuckets[0].Title)
	assert.Equal(t, int64(3), v.searchBuckets[0].Bugs[0].BugReportID)
	assert.Equal(t, category.IncorrectQueryResult, v.searchBuckets[1].Title)
	assert.Equal(t, 1, v.cursor)
}

func TestSearchResultDropsStaleGeneration(t *testing.T) {
	v := newTestDashboard(&fakeClient{}, &fakeTenants{list: []models.Dbms{sqlite}})
	v.reload()
	v.runSearch("first", false)
	v.runSearch("second", false)

	v.Update(searchResultMsg{gen: v.search.gen - 1, query: "first", reports: []models.BugReport{bugIn(1, 0, models.PriorityLow)}})

	assert.Empty(t, v.lastSearched)
	assert.Nil(t, v.acReports)
}

func TestTenantSwitchReloads(t *testing.T) {
	tenants := &fakeTenants{list: []models.Dbms{sqlite, duckdb}}
	v := newTestDashboard(&fakeClient{}, tenants)
	v.reload()
	gen := v.scope.gen

	v.Update(runeKey("d"))
	require.True(t, v.tenantOpen)
	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.NotNil(t, cmd)
	assert.False(t, v.tenantOpen)
	assert.Equal(t, []int64{2}, tenants.setIDs)
	assert.Equal(t, duckdb, v.tenant)
	assert.Equal(t, gen+1, v.scope.gen)
}

func TestFilterPopupAppliesOnEnter(t *testing.T) {
	client := &fakeClient{}
	v := newTestDashboard(client, &fakeTenants{list: []models.Dbms{sqlite}})
	v.reload()

	v.Update(runeKey("f"))
	require.True(t, v.filterOpen)
	v.Update(tea.KeyMsg{Type: tea.KeyRight})
	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	v.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, category.DefaultFilters(), v.filters, "not applied yet")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, v.filterOpen)
	assert.Equal(t, category.Crash, v.filters.Category)
	assert.Equal(t, category.PriorityFilter(models.PriorityLow), v.filters.Priority)
	require.NotNil(t, cmd)
}

func TestDashboardRendersOverview(t *testing.T) {
	v := loadedDashboard(t)

	out := v.View()

	assert.Contains(t, out, "SQLite")
	assert.Contains(t, out, "Bug distribution")
	assert.Contains(t, out, "No summary available.")
}
