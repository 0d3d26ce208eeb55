package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tgienger/bugtrack/internal/models"
)

type createDiscussion struct {
	BugReportID int64  `json:"bug_report_id"`
	Content     string `json:"content"`
	AuthorID    int64  `json:"author_id"`
}

type createReply struct {
	Content  string `json:"content"`
	AuthorID int64  `json:"author_id"`
}

// ListDiscussions returns the threads on a bug report
func (c *Client) ListDiscussions(ctx context.Context, bugReportID int64) ([]models.Discussion, error) {
	req := NewRequest(http.MethodGet, "/api/v1/discussions/")
	req.Query.Set("bug_report_id", strconv.FormatInt(bugReportID, 10))

	var out []models.Discussion
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDiscussion returns one thread with its replies
func (c *Client) GetDiscussion(ctx context.Context, id int64) (*models.Discussion, error) {
	var out models.Discussion
	if err := c.call(ctx, NewRequest(http.MethodGet, "/api/v1/discussions/{id}", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddComment starts a new thread on a bug report
func (c *Client) AddComment(ctx context.Context, bugReportID, authorID int64, content string) (*models.Discussion, error) {
	req, err := NewRequest(http.MethodPost, "/api/v1/discussions/").WithJSON(createDiscussion{
		BugReportID: bugReportID,
		Content:     content,
		AuthorID:    authorID,
	})
	if err != nil {
		return nil, err
	}
	var out models.Discussion
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddReply appends a reply to a thread
func (c *Client) AddReply(ctx context.Context, discussionID, authorID int64, content string) (*models.Discussion, error) {
	req, err := NewRequest(http.MethodPost, "/api/v1/discussions/{id}/reply", discussionID).WithJSON(createReply{
		Content:  content,
		AuthorID: authorID,
	})
	if err != nil {
		return nil, err
	}
	var out models.Discussion
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
