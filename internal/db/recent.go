package db

import (
	"time"

	"github.com/tgienger/bugtrack/internal/models"
)

// RecentBug is a bug report the user opened, kept for the dashboard's
// "recently viewed" list
type RecentBug struct {
	BugID    int64
	DbmsID   int64
	Title    string
	URL      string
	ViewedAt time.Time
}

// RecordRecentBug marks a bug as just viewed
func (db *DB) RecordRecentBug(bug models.BugReport) error {
	_, err := db.Exec(`
		INSERT INTO recent_bugs (bug_id, dbms_id, title, url, seq, viewed_at)
		VALUES (?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM recent_bugs),
			strftime('%Y-%m-%d %H:%M:%f', 'now'))
		ON CONFLICT(bug_id) DO UPDATE SET
			dbms_id = excluded.dbms_id,
			title = excluded.title,
			url = excluded.url,
			seq = excluded.seq,
			viewed_at = excluded.viewed_at
	`, bug.ID, bug.DbmsID, bug.Title, bug.URL)
	return err
}

// ListRecentBugs returns the most recently viewed bugs of a DBMS, newest first
func (db *DB) ListRecentBugs(dbmsID int64, limit int) ([]RecentBug, error) {
	rows, err := db.Query(`
		SELECT bug_id, dbms_id, title, url, viewed_at
		FROM recent_bugs
		WHERE dbms_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, dbmsID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bugs []RecentBug
	for rows.Next() {
		var b RecentBug
		if err := rows.Scan(&b.BugID, &b.DbmsID, &b.Title, &b.URL, &b.ViewedAt); err != nil {
			return nil, err
		}
		bugs = append(bugs, b)
	}
	return bugs, rows.Err()
}

// PruneRecentBugs keeps only the keep newest entries per DBMS
func (db *DB) PruneRecentBugs(keep int) error {
	_, err := db.Exec(`
		DELETE FROM recent_bugs WHERE bug_id IN (
			SELECT bug_id FROM (
				SELECT bug_id, ROW_NUMBER() OVER (
					PARTITION BY dbms_id ORDER BY seq DESC
				) AS rn
				FROM recent_bugs
			) WHERE rn > ?
		)
	`, keep)
	return err
}
