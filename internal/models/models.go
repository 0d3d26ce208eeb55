package models

import "time"

// Priority is the triage level assigned to a bug report
type Priority string

const (
	PriorityLow        Priority = "Low"
	PriorityMedium     Priority = "Medium"
	PriorityHigh       Priority = "High"
	PriorityUnassigned Priority = "Unassigned"
)

// Priorities lists every priority in display order
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUnassigned}

// Dbms is a tracked database system (tenant) as it appears in the tenant list
type Dbms struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BugCategory is a category with the number of bugs filed under it
type BugCategory struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DbmsDetail is a tenant with its bug totals
type DbmsDetail struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	BugCount      int           `json:"bug_count"`
	BugCategories []BugCategory `json:"bug_categories"`
}

// AiSummary is a generated prose summary of a tenant or a single bug
type AiSummary struct {
	Summary string `json:"summary"`
}

// BugReport is a single issue fetched from a tracked DBMS
type BugReport struct {
	ID               int64    `json:"id"`
	DbmsID           int64    `json:"dbms_id"`
	Dbms             string   `json:"dbms"`
	CategoryID       *int     `json:"category_id"`
	Category         *string  `json:"category"`
	Title            string   `json:"title"`
	Description      *string  `json:"description"`
	URL              string   `json:"url"`
	Priority         Priority `json:"priority"`
	VersionsAffected string   `json:"versions_affected,omitempty"`
	IssueCreatedAt   Time     `json:"issue_created_at"`
	IssueUpdatedAt   *Time    `json:"issue_updated_at"`
	IssueClosedAt    *Time    `json:"issue_closed_at"`
	IsClosed         bool     `json:"is_closed"`
}

// DescriptionText returns the description or an empty string when absent
func (b BugReport) DescriptionText() string {
	if b.Description == nil {
		return ""
	}
	return *b.Description
}

// CategoryName returns the category label or an empty string when unclassified
func (b BugReport) CategoryName() string {
	if b.Category == nil {
		return ""
	}
	return *b.Category
}

// BugSearchResponse is the result of a bug search
type BugSearchResponse struct {
	BugReports []BugReport `json:"bug_reports"`
}

// BugSearchCategoryResponse is one "load more" page for a single category.
// NewBugDistr holds the per-category offsets after the delta was applied.
type BugSearchCategoryResponse struct {
	NewBugDistr     []int       `json:"new_bug_distr"`
	BugReportsDelta []BugReport `json:"bug_reports_delta"`
}

// UserSummary identifies the author of a discussion entry
type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DiscussionReply is a reply inside a discussion thread
type DiscussionReply struct {
	ID        int64       `json:"id"`
	Author    UserSummary `json:"author"`
	Content   string      `json:"content"`
	CreatedAt Time        `json:"created_at"`
	UpdatedAt Time        `json:"updated_at"`
	IsEdited  bool        `json:"is_edited"`
}

// Discussion is a top-level comment on a bug report with its replies
type Discussion struct {
	ID        int64             `json:"id"`
	IsThread  bool              `json:"is_thread"`
	Author    UserSummary       `json:"author"`
	Content   string            `json:"content"`
	Replies   []DiscussionReply `json:"replies"`
	CreatedAt Time              `json:"created_at"`
	UpdatedAt Time              `json:"updated_at"`
	IsEdited  bool              `json:"is_edited"`
}

// LoginRequest carries credentials for the public login endpoint
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest carries the details for a new account
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the token pair issued on login, signup or refresh
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	UserID       int64  `json:"user_id,omitempty"`
}

// User is the signed-in account as described by its access token
type User struct {
	ID        int64
	Name      string
	Email     string
	ExpiresAt time.Time
}
