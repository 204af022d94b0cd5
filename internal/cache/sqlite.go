package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS responses (
	url           TEXT PRIMARY KEY,
	body          BLOB NOT NULL,
	etag          TEXT NOT NULL DEFAULT '',
	last_modified TEXT NOT NULL DEFAULT '',
	content_type  TEXT NOT NULL DEFAULT '',
	hash          TEXT NOT NULL DEFAULT '',
	stored_at     INTEGER NOT NULL
)`

// SQLiteStore keeps responses in a single SQLite file so the cache survives
// restarts of the media server.
type SQLiteStore struct {
	db     *sql.DB
	maxAge time.Duration
}

// OpenSQLite opens (creating if needed) the cache database at path and drops
// entries older than maxAge. maxAge <= 0 disables the startup purge.
func OpenSQLite(ctx context.Context, path string, maxAge time.Duration) (*SQLiteStore, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite cache: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite cache: open %s: %w", path, err)
	}
	// One writer; avoids SQLITE_BUSY between concurrent navigation requests.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite cache: schema: %w", err)
	}
	s := &SQLiteStore{db: db, maxAge: maxAge}
	if maxAge > 0 {
		if _, err := s.Purge(ctx, time.Now().Add(-maxAge)); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	var (
		e      Entry
		stored int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, etag, last_modified, content_type, hash, stored_at FROM responses WHERE url = ?`, key,
	).Scan(&e.Body, &e.ETag, &e.LastModified, &e.ContentType, &e.Hash, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite cache: get: %w", err)
	}
	e.StoredAt = time.Unix(0, stored)
	if s.maxAge > 0 && time.Since(e.StoredAt) >= s.maxAge {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, e *Entry) error {
	body := e.Body
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO responses (url, body, etag, last_modified, content_type, hash, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			body = excluded.body,
			etag = excluded.etag,
			last_modified = excluded.last_modified,
			content_type = excluded.content_type,
			hash = excluded.hash,
			stored_at = excluded.stored_at`,
		key, body, e.ETag, e.LastModified, e.ContentType, e.Hash, e.StoredAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite cache: put: %w", err)
	}
	return nil
}

// Touch updates the validators and storage time of key, leaving the body.
func (s *SQLiteStore) Touch(ctx context.Context, key, etag, lastModified string, storedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE responses SET etag = ?, last_modified = ?, stored_at = ? WHERE url = ?`,
		etag, lastModified, storedAt.UnixNano(), key)
	if err != nil {
		return fmt.Errorf("sqlite cache: touch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE url = ?`, key); err != nil {
		return fmt.Errorf("sqlite cache: delete: %w", err)
	}
	return nil
}

// Purge removes entries stored before cutoff and returns how many went.
func (s *SQLiteStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE stored_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite cache: purge: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
