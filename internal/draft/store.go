// Package draft persists the in-progress, uncommitted decision record.
// One draft exists per (user, workspace); it survives restarts in local
// SQLite and is deleted on successful submission. Nothing else in the
// client cache is persisted.
package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"decidelog/internal/domain"
)

const dbName = "decidelog.db"

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	user_id      TEXT NOT NULL,
	workspace_id TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	saved_at     TEXT NOT NULL,
	PRIMARY KEY (user_id, workspace_id)
)`

// Store is the durable local draft store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the draft database under stateDir.
func Open(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.Join(stateDir, dbName))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create drafts table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put upserts the draft for (user, workspace).
func (s *Store) Put(ctx context.Context, userID, workspaceID string, d domain.Draft) error {
	if d.SavedAt.IsZero() {
		d.SavedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts(user_id, workspace_id, payload_json, saved_at) VALUES (?,?,?,?)
		ON CONFLICT(user_id, workspace_id) DO UPDATE SET payload_json=excluded.payload_json, saved_at=excluded.saved_at`,
		userID, workspaceID, string(payload), d.SavedAt.Format(time.RFC3339))
	return err
}

// Get returns the stored draft and whether one exists.
func (s *Store) Get(ctx context.Context, userID, workspaceID string) (domain.Draft, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM drafts WHERE user_id=? AND workspace_id=?`,
		userID, workspaceID).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.Draft{}, false, nil
	}
	if err != nil {
		return domain.Draft{}, false, err
	}
	var d domain.Draft
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return domain.Draft{}, false, fmt.Errorf("unmarshal draft: %w", err)
	}
	return d, true, nil
}

// Delete removes the draft, typically after a successful submit.
func (s *Store) Delete(ctx context.Context, userID, workspaceID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE user_id=? AND workspace_id=?`, userID, workspaceID)
	return err
}
