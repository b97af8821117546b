package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/shapegrid/game/service"
)

// SQLitePersistence implements SessionPersistence on a SQLite database.
type SQLitePersistence struct {
	db            *sql.DB
	configManager service.ConfigManager
	timeout       time.Duration
}

// NewSQLitePersistence opens (or creates) the database at path and ensures
// the sessions table exists.
func NewSQLitePersistence(ctx context.Context, path string, configManager service.ConfigManager) (*SQLitePersistence, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single connection to avoid SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			config_id TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	return &SQLitePersistence{db: db, configManager: configManager, timeout: 5 * time.Second}, nil
}

func (s *SQLitePersistence) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Save upserts a session row
func (s *SQLitePersistence) Save(session *service.Session) error {
	payload, err := encodeSession(session)
	if err != nil {
		return err
	}

	ctx, cancel := s.ctx()
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, config_id, updated_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_id = excluded.config_id,
			updated_at = excluded.updated_at,
			payload = excluded.payload
	`, strings.ToLower(session.ID), session.ConfigID, time.Now().UnixNano(), payload)
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

// Load retrieves a session row
func (s *SQLitePersistence) Load(id string) (*service.Session, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE id = ?`, strings.ToLower(id)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	return decodeSession(payload, s.configManager)
}

// Delete removes a session row
func (s *SQLitePersistence) Delete(id string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, strings.ToLower(id))
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns stored ids, oldest update first
func (s *SQLitePersistence) ListAll() ([]string, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY updated_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks if a session row exists
func (s *SQLitePersistence) Exists(id string) bool {
	ctx, cancel := s.ctx()
	defer cancel()

	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, strings.ToLower(id)).Scan(&one)
	return err == nil
}

// Close closes the database.
func (s *SQLitePersistence) Close() error {
	return s.db.Close()
}
