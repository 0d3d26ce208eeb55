package db

import (
	"database/sql"
	"strings"
)

// SaveDraft stores unsent comment text. discussionID is 0 for a new thread.
// Blank content removes the draft.
func (db *DB) SaveDraft(bugID, discussionID int64, content string) error {
	if strings.TrimSpace(content) == "" {
		return db.DeleteDraft(bugID, discussionID)
	}
	_, err := db.Exec(`
		INSERT INTO comment_drafts (bug_id, discussion_id, content) VALUES (?, ?, ?)
		ON CONFLICT(bug_id, discussion_id) DO UPDATE SET
			content = excluded.content,
			updated_at = CURRENT_TIMESTAMP
	`, bugID, discussionID, content)
	return err
}

// GetDraft returns the saved draft or "" when there is none
func (db *DB) GetDraft(bugID, discussionID int64) (string, error) {
	var content string
	err := db.QueryRow(`
		SELECT content FROM comment_drafts WHERE bug_id = ? AND discussion_id = ?
	`, bugID, discussionID).Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return content, err
}

// DeleteDraft removes a draft once it has been posted
func (db *DB) DeleteDraft(bugID, discussionID int64) error {
	_, err := db.Exec(`
		DELETE FROM comment_drafts WHERE bug_id = ? AND discussion_id = ?
	`, bugID, discussionID)
	return err
}
