package views

import (
	"context"
	"errors"
	"sync"

	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/db"
	"github.com/tgienger/bugtrack/internal/models"
	"github.com/tgienger/bugtrack/internal/ui/styles"
)

func testStyles() *styles.Styles {
	return styles.NewStyles(styles.Dark)
}

func intPtr(i int) *int { return &i }

func bugIn(id int64, categoryID int, priority models.Priority) models.BugReport {
	return models.BugReport{
		ID:         id,
		DbmsID:     1,
		CategoryID: intPtr(categoryID),
		Title:      "bug",
		Priority:   priority,
		URL:        "https://bugs.example.com/issues",
	}
}

type fakeAuth struct {
	user   *models.User
	err    error
	logins int
	signup []string
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*models.User, error) {
	f.logins++
	return f.user, f.err
}

func (f *fakeAuth) Signup(_ context.Context, name, email, password string) (*models.User, error) {
	f.signup = append(f.signup, name)
	return f.user, f.err
}

type fakeTenants struct {
	list    []models.Dbms
	current int
	setIDs  []int64
	loadErr error
}

func (f *fakeTenants) Tenants() []models.Dbms { return f.list }

func (f *fakeTenants) Current() (models.Dbms, bool) {
	if f.current < 0 || f.current >= len(f.list) {
		return models.Dbms{}, false
	}
	return f.list[f.current], true
}

func (f *fakeTenants) SetCurrent(id int64) error {
	f.setIDs = append(f.setIDs, id)
	for i, t := range f.list {
		if t.ID == id {
			f.current = i
			return nil
		}
	}
	return errors.New("tenant not found")
}

func (f *fakeTenants) Load(context.Context) error    { return f.loadErr }
func (f *fakeTenants) Refresh(context.Context) error { return f.loadErr }

// fakeClient serves both the dashboard and the bug page
type fakeClient struct {
	mu sync.Mutex

	detail     *models.DbmsDetail
	trend      []int
	summary    string
	summaryErr error
	search     []models.BugReport
	searchErr  error
	searches   []api.SearchParams

	bug         *models.BugReport
	bugErr      error
	discussions []models.Discussion
	posted      *models.Discussion
	comments    []string
	replies     []int64
	categories  []int
}

func (f *fakeClient) GetDbms(context.Context, int64) (*models.DbmsDetail, error) {
	return f.detail, nil
}

func (f *fakeClient) DbmsAiSummary(context.Context, int64) (*models.AiSummary, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return &models.AiSummary{Summary: f.summary}, nil
}

func (f *fakeClient) BugTrend(context.Context, int64, int) ([]int, error) {
	return f.trend, nil
}

func (f *fakeClient) SearchBugReports(_ context.Context, _ int64, p api.SearchParams) (*models.BugSearchResponse, error) {
	f.mu.Lock()
	f.searches = append(f.searches, p)
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &models.BugSearchResponse{BugReports: f.search}, nil
}

func (f *fakeClient) LoadMoreBugsByCategory(context.Context, int64, int, []int, int) (*models.BugSearchCategoryResponse, error) {
	return &models.BugSearchCategoryResponse{}, nil
}

func (f *fakeClient) GetBugReport(context.Context, int64) (*models.BugReport, error) {
	return f.bug, f.bugErr
}

func (f *fakeClient) BugAiSummary(context.Context, int64) (*models.AiSummary, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return &models.AiSummary{Summary: f.summary}, nil
}

func (f *fakeClient) UpdateBugCategory(_ context.Context, _ int64, categoryID int) (*models.BugReport, error) {
	f.categories = append(f.categories, categoryID)
	updated := *f.bug
	updated.CategoryID = intPtr(categoryID)
	return &updated, nil
}

func (f *fakeClient) UpdateBugPriority(_ context.Context, _ int64, p models.Priority) (*models.BugReport, error) {
	updated := *f.bug
	updated.Priority = p
	return &updated, nil
}

func (f *fakeClient) UpdateBugVersionsAffected(_ context.Context, _ int64, versions string) (*models.BugReport, error) {
	updated := *f.bug
	updated.VersionsAffected = versions
	return &updated, nil
}

func (f *fakeClient) ListDiscussions(context.Context, int64) ([]models.Discussion, error) {
	return f.discussions, nil
}

func (f *fakeClient) AddComment(_ context.Context, _, _ int64, content string) (*models.Discussion, error) {
	f.comments = append(f.comments, content)
	return f.posted, nil
}

func (f *fakeClient) AddReply(_ context.Context, discussionID, _ int64, content string) (*models.Discussion, error) {
	f.replies = append(f.replies, discussionID)
	return f.posted, nil
}

type draftKey struct {
	bugID, discussionID int64
}

// fakeStore is an in-memory recent list and draft store
type fakeStore struct {
	recorded []int64
	recent   []db.RecentBug
	pruned   int
	drafts   map[draftKey]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{drafts: map[draftKey]string{}}
}

func (f *fakeStore) RecordRecentBug(bug models.BugReport) error {
	f.recorded = append(f.recorded, bug.ID)
	return nil
}

func (f *fakeStore) ListRecentBugs(int64, int) ([]db.RecentBug, error) {
	return f.recent, nil
}

func (f *fakeStore) PruneRecentBugs(keep int) error {
	f.pruned = keep
	return nil
}

func (f *fakeStore) SaveDraft(bugID, discussionID int64, content string) error {
	f.drafts[draftKey{bugID, discussionID}] = content
	return nil
}

func (f *fakeStore) GetDraft(bugID, discussionID int64) (string, error) {
	return f.drafts[draftKey{bugID, discussionID}], nil
}

func (f *fakeStore) DeleteDraft(bugID, discussionID int64) error {
	delete(f.drafts, draftKey{bugID, discussionID})
	return nil
}
