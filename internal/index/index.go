// Package index implements pankat's article index: a relational store of
// articles, interned tags, and article↔tag links, serving the
// ordered-neighbor and visibility queries the compile pipeline and output
// writer need.
package index

import (
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/nixcloud/pankat/internal/article"
	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
)

// Store is a SQLite-backed article index. All mutations run inside
// transactions; writes are additionally serialized by mu so that upsert's
// read-pre-image-then-write stays atomic with respect to other writers in
// this process.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the SQLite database at path and ensures the schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "opening article index database").
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
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			src_rel_path TEXT NOT NULL UNIQUE,
			dst_rel_path TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			modification_date INTEGER,
			summary TEXT NOT NULL DEFAULT '',
			series TEXT NOT NULL DEFAULT '',
			draft INTEGER NOT NULL DEFAULT 0,
			special_page INTEGER NOT NULL DEFAULT 0,
			timeline INTEGER NOT NULL DEFAULT 0,
			anchorjs INTEGER NOT NULL DEFAULT 0,
			tocify INTEGER NOT NULL DEFAULT 0,
			live_updates INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS article_tags (
			article_id INTEGER NOT NULL REFERENCES articles(id),
			tag_id INTEGER NOT NULL REFERENCES tags(id),
			position INTEGER NOT NULL,
			UNIQUE(article_id, tag_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return perrors.WrapError(err, perrors.CategoryIndex, "initializing article index schema").Build()
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const orderByNeighborClause = `
	ORDER BY
		CASE WHEN modification_date IS NULL THEN 1 ELSE 0 END ASC,
		modification_date DESC,
		id ASC
`

// ByID returns the article with the given id, or nil if not found.
func (s *Store) ByID(id int64) (*article.Record, error) {
	return s.queryOne(`SELECT id, src_rel_path, dst_rel_path, title, modification_date, summary, series,
		draft, special_page, timeline, anchorjs, tocify, live_updates FROM articles WHERE id = ?`, id)
}

// ByPath returns the article with the given src_rel_path, or nil if not found.
func (s *Store) ByPath(srcRelPath string) (*article.Record, error) {
	return s.queryOne(`SELECT id, src_rel_path, dst_rel_path, title, modification_date, summary, series,
		draft, special_page, timeline, anchorjs, tocify, live_updates FROM articles WHERE src_rel_path = ?`, srcRelPath)
}

// All returns every article, ordered by modification_date descending
// (nulls last), tie-broken by id ascending.
func (s *Store) All() ([]*article.Record, error) {
	return s.queryMany(`SELECT id, src_rel_path, dst_rel_path, title, modification_date, summary, series,
		draft, special_page, timeline, anchorjs, tocify, live_updates FROM articles` + orderByNeighborClause)
}

// Visible returns every non-draft, non-special-page article.
func (s *Store) Visible() ([]*article.Record, error) {
	return s.queryMany(`SELECT id, src_rel_path, dst_rel_path, title, modification_date, summary, series,
		draft, special_page, timeline, anchorjs, tocify, live_updates FROM articles
		WHERE draft = 0 AND special_page = 0` + orderByNeighborClause)
}

// VisibleBySeries returns every visible article in the given series.
func (s *Store) VisibleBySeries(series string) ([]*article.Record, error) {
	return s.queryMany(`SELECT id, src_rel_path, dst_rel_path, title, modification_date, summary, series,
		draft, special_page, timeline, anchorjs, tocify, live_updates FROM articles
		WHERE draft = 0 AND special_page = 0 AND series = ?`+orderByNeighborClause, series)
}

// VisibleByTag returns every visible article carrying the given tag.
func (s *Store) VisibleByTag(name string) ([]*article.Record, error) {
	return s.queryMany(`SELECT a.id, a.src_rel_path, a.dst_rel_path, a.title, a.modification_date, a.summary, a.series,
		a.draft, a.special_page, a.timeline, a.anchorjs, a.tocify, a.live_updates
		FROM articles a
		JOIN article_tags at ON at.article_id = a.id
		JOIN tags t ON t.id = at.tag_id
		WHERE a.draft = 0 AND a.special_page = 0 AND t.name = ?
		`+orderByNeighborClause, name)
}

// Drafts returns every article with draft=true.
func (s *Store) Drafts() ([]*article.Record, error) {
	return s.queryMany(`SELECT id, src_rel_path, dst_rel_path, title, modification_date, summary, series,
		draft, special_page, timeline, anchorjs, tocify, live_updates FROM articles
		WHERE draft = 1` + orderByNeighborClause)
}

// SpecialPages returns every article with special_page=true.
func (s *Store) SpecialPages() ([]*article.Record, error) {
	return s.queryMany(`SELECT id, src_rel_path, dst_rel_path, title, modification_date, summary, series,
		draft, special_page, timeline, anchorjs, tocify, live_updates FROM articles
		WHERE special_page = 1` + orderByNeighborClause)
}

// MostRecentVisible returns the most recently dated visible article, or nil
// if there are none.
func (s *Store) MostRecentVisible() (*article.Record, error) {
	recs, err := s.queryMany(`SELECT id, src_rel_path, dst_rel_path, title, modification_date, summary, series,
		draft, special_page, timeline, anchorjs, tocify, live_updates FROM articles
		WHERE draft = 0 AND special_page = 0` + orderByNeighborClause + ` LIMIT 1`)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// Neighbors returns the visible articles immediately before (prev, older)
// and after (next, newer) id in modification-date order; either may be nil.
func (s *Store) Neighbors(id int64) (prev, next *article.Record, err error) {
	return neighborsWithin(s, id, func(r *article.Record) bool { return r.Visible() })
}

// NeighborsInSeries is Neighbors restricted to a single series.
func (s *Store) NeighborsInSeries(id int64, series string) (prev, next *article.Record, err error) {
	return neighborsWithin(s, id, func(r *article.Record) bool { return r.Visible() && r.Series == series })
}

// neighborsWithin finds the article preceding and following id within the
// ordering produced by orderByNeighborClause, restricted to records passing
// include.
func neighborsWithin(s *Store, id int64, include func(*article.Record) bool) (prev, next *article.Record, err error) {
	all, err := s.All()
	if err != nil {
		return nil, nil, err
	}

	filtered := all[:0:0]
	pos := -1
	for _, r := range all {
		if !include(r) && r.ID != id {
			continue
		}
		filtered = append(filtered, r)
		if r.ID == id {
			pos = len(filtered) - 1
		}
	}
	if pos < 0 {
		return nil, nil, nil
	}
	// filtered is newest first, so the older neighbor follows pos and the
	// newer one precedes it.
	if pos < len(filtered)-1 {
		prev = filtered[pos+1]
	}
	if pos > 0 {
		next = filtered[pos-1]
	}
	return prev, next, nil
}

// AllTags returns every interned tag name.
func (s *Store) AllTags() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "listing tags").Build()
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, perrors.WrapError(err, perrors.CategoryIndex, "scanning tag").Build()
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// AllSeriesOfVisible returns every distinct, non-empty series name among
// visible articles.
func (s *Store) AllSeriesOfVisible() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT series FROM articles
		WHERE draft = 0 AND special_page = 0 AND series != '' ORDER BY series ASC`)
	if err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "listing series").Build()
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, perrors.WrapError(err, perrors.CategoryIndex, "scanning series").Build()
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *Store) queryOne(query string, args ...any) (*article.Record, error) {
	recs, err := s.queryMany(query, args...)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

func (s *Store) queryMany(query string, args ...any) ([]*article.Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "querying articles").Build()
	}
	defer rows.Close()

	var out []*article.Record
	for rows.Next() {
		r, err := scanArticleRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "iterating article rows").Build()
	}

	for _, r := range out {
		tags, err := s.tagsForArticle(r.ID)
		if err != nil {
			return nil, err
		}
		r.Tags = tags
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticleRow(row scanner) (*article.Record, error) {
	var (
		r            article.Record
		modDateNanos sql.NullInt64
		draft        int
		specialPage  int
		timeline     int
		anchorJS     int
		tocify       int
		liveUpdates  int
	)
	err := row.Scan(&r.ID, &r.SrcRelPath, &r.DstRelPath, &r.Title, &modDateNanos, &r.Summary, &r.Series,
		&draft, &specialPage, &timeline, &anchorJS, &tocify, &liveUpdates)
	if err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "scanning article row").Build()
	}
	if modDateNanos.Valid {
		t := time.Unix(0, modDateNanos.Int64).UTC()
		r.ModificationDate = &t
	}
	r.Draft = draft != 0
	r.SpecialPage = specialPage != 0
	r.Timeline = timeline != 0
	r.AnchorJS = anchorJS != 0
	r.Tocify = tocify != 0
	r.LiveUpdates = liveUpdates != 0
	return &r, nil
}

func (s *Store) tagsForArticle(articleID int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT t.name FROM article_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE at.article_id = ? ORDER BY at.position ASC`, articleID)
	if err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "querying article tags").Build()
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, perrors.WrapError(err, perrors.CategoryIndex, "scanning article tag").Build()
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}
