package api

import (
	"context"
	"net/http"

	"github.com/tgienger/bugtrack/internal/models"
)

// GetBugReport returns a single bug report
func (c *Client) GetBugReport(ctx context.Context, bugID int64) (*models.BugReport, error) {
	var out models.BugReport
	if err := c.call(ctx, NewRequest(http.MethodGet, "/api/v1/bug_reports/{bug_id}", bugID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBugCategory moves a bug to another category
func (c *Client) UpdateBugCategory(ctx context.Context, bugID int64, categoryID int) (*models.BugReport, error) {
	return c.patchBug(ctx, "/api/v1/bug_reports/{bug_id}/category", bugID, map[string]any{"category_id": categoryID})
}

// UpdateBugPriority sets a bug's priority
func (c *Client) UpdateBugPriority(ctx context.Context, bugID int64, priority models.Priority) (*models.BugReport, error) {
	return c.patchBug(ctx, "/api/v1/bug_reports/{bug_id}/priority", bugID, map[string]any{"priority_level": priority})
}

// UpdateBugVersionsAffected replaces the affected versions string
func (c *Client) UpdateBugVersionsAffected(ctx context.Context, bugID int64, versions string) (*models.BugReport, error) {
	return c.patchBug(ctx, "/api/v1/bug_reports/{bug_id}/versions_affected", bugID, map[string]any{"updated_versions": versions})
}

func (c *Client) patchBug(ctx context.Context, route string, bugID int64, body map[string]any) (*models.BugReport, error) {
	req, err := NewRequest(http.MethodPatch, route, bugID).WithJSON(body)
	if err != nil {
		return nil, err
	}
	var out models.BugReport
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BugAiSummary returns the generated summary for one bug
func (c *Client) BugAiSummary(ctx context.Context, bugID int64) (*models.AiSummary, error) {
	var out models.AiSummary
	if err := c.call(ctx, NewRequest(http.MethodGet, "/api/v1/bug_reports/{bug_id}/ai_summary", bugID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
