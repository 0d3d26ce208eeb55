package views

import (
	"context"

	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/db"
	"github.com/tgienger/bugtrack/internal/models"
)

// Authenticator signs users in
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Signup(ctx context.Context, name, email, password string) (*models.User, error)
}

// Tenants is the session's tenant selection
type Tenants interface {
	Tenants() []models.Dbms
	Current() (models.Dbms, bool)
	SetCurrent(id int64) error
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// DashboardClient is the part of the API the dashboard reads
type DashboardClient interface {
	GetDbms(ctx context.Context, dbmsID int64) (*models.DbmsDetail, error)
	DbmsAiSummary(ctx context.Context, dbmsID int64) (*models.AiSummary, error)
	BugTrend(ctx context.Context, dbmsID int64, days int) ([]int, error)
	SearchBugReports(ctx context.Context, dbmsID int64, p api.SearchParams) (*models.BugSearchResponse, error)
	LoadMoreBugsByCategory(ctx context.Context, dbmsID int64, categoryID int, distribution []int, amount int) (*models.BugSearchCategoryResponse, error)
}

// BugClient is the part of the API the bug page uses
type BugClient interface {
	GetBugReport(ctx context.Context, bugID int64) (*models.BugReport, error)
	BugAiSummary(ctx context.Context, bugID int64) (*models.AiSummary, error)
	UpdateBugCategory(ctx context.Context, bugID int64, categoryID int) (*models.BugReport, error)
	UpdateBugPriority(ctx context.Context, bugID int64, priority models.Priority) (*models.BugReport, error)
	UpdateBugVersionsAffected(ctx context.Context, bugID int64, versions string) (*models.BugReport, error)
	ListDiscussions(ctx context.Context, bugReportID int64) ([]models.Discussion, error)
	AddComment(ctx context.Context, bugReportID, authorID int64, content string) (*models.Discussion, error)
	AddReply(ctx context.Context, discussionID, authorID int64, content string) (*models.Discussion, error)
}

// RecentBugs remembers which bugs were opened
type RecentBugs interface {
	RecordRecentBug(bug models.BugReport) error
	ListRecentBugs(dbmsID int64, limit int) ([]db.RecentBug, error)
	PruneRecentBugs(keep int) error
}

// Drafts keeps unsent comments
type Drafts interface {
	SaveDraft(bugID, discussionID int64, content string) error
	GetDraft(bugID, discussionID int64) (string, error)
	DeleteDraft(bugID, discussionID int64) error
}
