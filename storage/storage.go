package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"youshu-bot/model"
)

// Storage persists bot settings and the append-only lookup log. Novel
// records themselves are never stored.
type Storage struct {
	db *sql.DB
}

// New returns a new Storage instance.
func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Init creates database tables if they do not exist.
func (s *Storage) Init(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS lookups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			keyword TEXT NOT NULL,
			novel_id INTEGER NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lookups_keyword ON lookups(keyword);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// SetSetting stores a key-value setting.
func (s *Storage) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// GetSetting fetches a setting value; ok is false when it was never set.
func (s *Storage) GetSetting(ctx context.Context, key string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// AddLookup appends one entry to the lookup log. novelID 0 means the lookup
// ended in a list view or a miss.
func (s *Storage) AddLookup(ctx context.Context, kind, keyword string, novelID int64) error {
	var id sql.NullInt64
	if novelID > 0 {
		id = sql.NullInt64{Int64: novelID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookups (kind, keyword, novel_id, created_at) VALUES (?, ?, ?, ?)
	`, kind, keyword, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add lookup: %w", err)
	}
	return nil
}

// CountLookups returns the total number of logged lookups.
func (s *Storage) CountLookups(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lookups`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count lookups: %w", err)
	}
	return count, nil
}

// TopKeywords returns the most-searched keywords, most frequent first.
func (s *Storage) TopKeywords(ctx context.Context, limit int) ([]model.KeywordCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT keyword, COUNT(*) AS n FROM lookups
		WHERE keyword != ''
		GROUP BY keyword
		ORDER BY n DESC, keyword ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top keywords: %w", err)
	}
	defer rows.Close()

	var out []model.KeywordCount
	for rows.Next() {
		var kc model.KeywordCount
		if err := rows.Scan(&kc.Keyword, &kc.Count); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		out = append(out, kc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keywords: %w", err)
	}
	return out, nil
}
