package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/tgienger/bugtrack/internal/models"
)

// Defaults used by the dashboard when paging through bugs.
const (
	DefaultSearchLimit   = 10
	DefaultLoadMoreCount = 5
	DefaultTrendDays     = 30
)

// SearchParams narrows a bug search
type SearchParams struct {
	Search     string
	Start      int
	Limit      int
	CategoryID *int
}

// ListDbms returns every tracked DBMS
func (c *Client) ListDbms(ctx context.Context) ([]models.Dbms, error) {
	var out []models.Dbms
	if err := c.call(ctx, NewRequest(http.MethodGet, "/api/v1/dbms/"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDbms returns a DBMS with its bug totals
func (c *Client) GetDbms(ctx context.Context, dbmsID int64) (*models.DbmsDetail, error) {
	var out models.DbmsDetail
	if err := c.call(ctx, NewRequest(http.MethodGet, "/api/v1/dbms/{dbms_id}", dbmsID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DbmsAiSummary returns the generated summary for a DBMS
func (c *Client) DbmsAiSummary(ctx context.Context, dbmsID int64) (*models.AiSummary, error) {
	var out models.AiSummary
	if err := c.call(ctx, NewRequest(http.MethodGet, "/api/v1/dbms/{dbms_id}/ai_summary", dbmsID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchBugReports searches a DBMS's bugs by text
func (c *Client) SearchBugReports(ctx context.Context, dbmsID int64, p SearchParams) (*models.BugSearchResponse, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultSearchLimit
	}
	req := NewRequest(http.MethodGet, "/api/v1/dbms/{dbms_id}/bug_search", dbmsID)
	req.Query.Set("search", p.Search)
	req.Query.Set("start", strconv.Itoa(p.Start))
	req.Query.Set("limit", strconv.Itoa(p.Limit))
	if p.CategoryID != nil {
		req.Query.Set("category_id", strconv.Itoa(*p.CategoryID))
	}

	var out models.BugSearchResponse
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadMoreBugsByCategory fetches the next amount bugs of one category.
// distribution holds how many bugs of each category are already loaded.
func (c *Client) LoadMoreBugsByCategory(ctx context.Context, dbmsID int64, categoryID int, distribution []int, amount int) (*models.BugSearchCategoryResponse, error) {
	if amount <= 0 {
		amount = DefaultLoadMoreCount
	}
	req := NewRequest(http.MethodGet, "/api/v1/dbms/{dbms_id}/bug_search_category", dbmsID)
	req.Query.Set("category_id", strconv.Itoa(categoryID))
	req.Query.Set("amount", strconv.Itoa(amount))
	req.Query.Set("distribution", joinInts(distribution))

	var out models.BugSearchCategoryResponse
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BugTrend returns the number of bugs opened per day over the last days,
// oldest first.
func (c *Client) BugTrend(ctx context.Context, dbmsID int64, days int) ([]int, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	req := NewRequest(http.MethodGet, "/api/v1/dbms/{dbms_id}/bug_trend", dbmsID)
	req.Query.Set("days", strconv.Itoa(days))

	var out []int
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCategories returns the server's bug categories
func (c *Client) ListCategories(ctx context.Context) ([]models.BugCategory, error) {
	var out []models.BugCategory
	if err := c.call(ctx, NewRequest(http.MethodGet, "/api/v1/categories/"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
