// Package history persists sessions, transcripts, and prompt history to
// the app database, so conversations survive restarts and can be resumed
// or replayed later.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"toolview/config"
	"toolview/pkg/migration"
)

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=10000")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	runner := migration.NewRunner(db)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenDefault opens the database at the standard config path.
func OpenDefault() (*Store, error) {
	path, err := config.GetDatabasePath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

func (s *Store) Close() error { return s.db.Close() }

// SessionRecord mirrors one sessions row.
type SessionRecord struct {
	ID               string
	Backend          string
	BackendSessionID string
	Title            string
	Cwd              string
	Model            string
	CreatedAt        int64
	UpdatedAt        int64
}

// SaveSession upserts a session row; created_at is kept on update.
func (s *Store) SaveSession(ctx context.Context, rec SessionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	now := time.Now().Unix()
	if rec.CreatedAt == 0 {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt == 0 {
		rec.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, backend, backend_session_id, title, cwd, model, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   backend = excluded.backend,
		   backend_session_id = excluded.backend_session_id,
		   title = excluded.title,
		   cwd = excluded.cwd,
		   model = excluded.model,
		   updated_at = excluded.updated_at`,
		rec.ID, rec.Backend, rec.BackendSessionID, rec.Title, rec.Cwd, rec.Model, rec.CreatedAt, rec.UpdatedAt)
	return err
}

// ListSessions returns all sessions, most recently touched first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, backend, backend_session_id, title, cwd, model, created_at, updated_at
		 FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.Backend, &rec.BackendSessionID, &rec.Title,
			&rec.Cwd, &rec.Model, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetSession returns one session row.
func (s *Store) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, backend, backend_session_id, title, cwd, model, created_at, updated_at
		 FROM sessions WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Backend, &rec.BackendSessionID, &rec.Title,
			&rec.Cwd, &rec.Model, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// DeleteSession removes a session with its messages and prompt history.
// The cascade is explicit so it never depends on driver pragma support.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM input_history WHERE session_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// MessageRecord mirrors one messages row. CallJSON holds the serialized
// tool call for tool entries, refreshed as the call progresses.
type MessageRecord struct {
	ID        string
	SessionID string
	Seq       int
	Role      string
	Text      string
	CallID    string
	CallJSON  string
	CreatedAt int64
}

// UpsertMessage inserts the message or refreshes its mutable fields.
func (s *Store) UpsertMessage(ctx context.Context, rec MessageRecord) error {
	if rec.ID == "" || rec.SessionID == "" {
		return fmt.Errorf("message id and session id cannot be empty")
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages(id, session_id, seq, role, text, call_id, call_json, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   seq = excluded.seq,
		   text = excluded.text,
		   call_json = excluded.call_json`,
		rec.ID, rec.SessionID, rec.Seq, rec.Role, rec.Text, rec.CallID, rec.CallJSON, rec.CreatedAt)
	return err
}

// SetCallJSON refreshes the stored call payload for a tool message.
func (s *Store) SetCallJSON(ctx context.Context, sessionID, callID, callJSON string) error {
	if callID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET call_json = ? WHERE session_id = ? AND call_id = ?`,
		callJSON, sessionID, callID)
	return err
}

// Messages returns a session's transcript in sequence order.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, seq, role, text, call_id, call_json, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var rec MessageRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Seq, &rec.Role,
			&rec.Text, &rec.CallID, &rec.CallJSON, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AddInput records one submitted prompt for up-arrow recall.
func (s *Store) AddInput(ctx context.Context, sessionID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO input_history(session_id, text, created_at) VALUES(?, ?, ?)`,
		sessionID, text, time.Now().Unix(),
	)
	return err
}

// ListInputs returns a session's prompts, oldest first.
func (s *Store) ListInputs(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text FROM input_history WHERE session_id = ? ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
