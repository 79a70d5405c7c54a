// Package cache implements pankat's render cache: a store keyed by source
// path whose single entry per path holds previously rendered HTML plus a hash
// of the post-plugin body (and render-affecting options), so the expensive
// external renderer is only invoked when that hash changes.
package cache

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/inful/mdfp"

	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
)

// Entry is a single cached render, keyed by source path.
type Entry struct {
	SrcRelPath string
	Hash       string
	HTML       string
}

// Store is a SQLite-backed render cache. Writes are serialized by mu;
// modernc.org/sqlite's own connection handles concurrent reads, matching the
// discipline internal/eventstore.SQLiteStore uses for its append-only store.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open creates or opens the SQLite database at path and ensures the cache
// table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "opening render cache database").
			WithContext("path", path).Build()
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			src_rel_path TEXT PRIMARY KEY,
			hash TEXT NOT NULL,
			html TEXT NOT NULL
		)
	`)
	if err != nil {
		return perrors.WrapError(err, perrors.CategoryIndex, "initializing render cache schema").Build()
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the cache entry for srcRelPath, if any.
func (s *Store) Lookup(srcRelPath string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT src_rel_path, hash, html FROM cache WHERE src_rel_path = ?`, srcRelPath)
	var e Entry
	if err := row.Scan(&e.SrcRelPath, &e.Hash, &e.HTML); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "looking up cache entry").
			WithContext("src_rel_path", srcRelPath).Build()
	}
	return &e, nil
}

// Store upserts the cache entry for srcRelPath, atomically replacing any
// previous entry for that path.
func (s *Store) Store(srcRelPath, hash, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO cache (src_rel_path, hash, html) VALUES (?, ?, ?)
		ON CONFLICT(src_rel_path) DO UPDATE SET hash = excluded.hash, html = excluded.html
	`, srcRelPath, hash, html)
	if err != nil {
		return perrors.WrapError(err, perrors.CategoryIndex, "storing cache entry").
			WithContext("src_rel_path", srcRelPath).Build()
	}
	return nil
}

// Delete removes the cache entry for srcRelPath, if present.
func (s *Store) Delete(srcRelPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM cache WHERE src_rel_path = ?`, srcRelPath)
	if err != nil {
		return perrors.WrapError(err, perrors.CategoryIndex, "deleting cache entry").
			WithContext("src_rel_path", srcRelPath).Build()
	}
	return nil
}

// ListSrcPaths returns every src_rel_path with a cache entry, used by the
// garbage collector's cache pass.
func (s *Store) ListSrcPaths() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT src_rel_path FROM cache`)
	if err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "listing cache src paths").Build()
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, perrors.WrapError(err, perrors.CategoryIndex, "scanning cache src path").Build()
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// RenderOptions are the flags that influence the renderer's output and thus
// must be folded into the content hash.
type RenderOptions struct {
	AnchorJS bool
}

// String is the deterministic, stable-across-runs encoding of opts folded
// into Hash's second input.
func (o RenderOptions) String() string {
	return fmt.Sprintf("anchorjs=%t", o.AnchorJS)
}

// Hash computes the deterministic fingerprint of a post-plugin document body
// and its render options.
func Hash(postPluginBody string, opts RenderOptions) string {
	return mdfp.CalculateFingerprintFromParts(opts.String(), postPluginBody)
}
