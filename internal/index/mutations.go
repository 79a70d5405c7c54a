package index

import (
	"database/sql"
	"time"

	"git.home.luguber.info/nixcloud/pankat/internal/article"
	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
)

// Upsert inserts or updates the article row by src_rel_path, reconciles its
// tag rows, and replaces its article↔tag links to exactly match rec.Tags —
// all inside one transaction. It returns the stored record (with its
// assigned id) and the set of attributes that changed relative to the
// pre-image; an insert reports every field as changed.
func (s *Store) Upsert(rec *article.Record) (*article.Record, article.ChangedFields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, perrors.WrapError(err, perrors.CategoryIndex, "beginning upsert transaction").Build()
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	before, err := queryOneTx(tx, `SELECT id, src_rel_path, dst_rel_path, title, modification_date, summary, series,
		draft, special_page, timeline, anchorjs, tocify, live_updates FROM articles WHERE src_rel_path = ?`, rec.SrcRelPath)
	if err != nil {
		return nil, nil, err
	}
	if before != nil {
		before.Tags, err = tagsForArticleTx(tx, before.ID)
		if err != nil {
			return nil, nil, err
		}
	}

	var modDate any
	if rec.ModificationDate != nil {
		modDate = rec.ModificationDate.UnixNano()
	}

	res, err := tx.Exec(`
		INSERT INTO articles (src_rel_path, dst_rel_path, title, modification_date, summary, series,
			draft, special_page, timeline, anchorjs, tocify, live_updates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(src_rel_path) DO UPDATE SET
			dst_rel_path = excluded.dst_rel_path,
			title = excluded.title,
			modification_date = excluded.modification_date,
			summary = excluded.summary,
			series = excluded.series,
			draft = excluded.draft,
			special_page = excluded.special_page,
			timeline = excluded.timeline,
			anchorjs = excluded.anchorjs,
			tocify = excluded.tocify,
			live_updates = excluded.live_updates
	`, rec.SrcRelPath, rec.DstRelPath, rec.Title, modDate, rec.Summary, rec.Series,
		boolToInt(rec.Draft), boolToInt(rec.SpecialPage), boolToInt(rec.Timeline),
		boolToInt(rec.AnchorJS), boolToInt(rec.Tocify), boolToInt(rec.LiveUpdates))
	if err != nil {
		return nil, nil, perrors.WrapError(err, perrors.CategoryIndex, "upserting article row").
			WithContext("src_rel_path", rec.SrcRelPath).Build()
	}

	articleID := int64(0)
	if before != nil {
		articleID = before.ID
	} else {
		articleID, err = res.LastInsertId()
		if err != nil {
			return nil, nil, perrors.WrapError(err, perrors.CategoryIndex, "reading inserted article id").Build()
		}
	}

	if err := reconcileTagsTx(tx, articleID, rec.Tags); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, perrors.WrapError(err, perrors.CategoryIndex, "committing upsert transaction").Build()
	}

	rec.ID = articleID
	changed := diffChangedFields(before, rec)
	return rec, changed, nil
}

func reconcileTagsTx(tx *sql.Tx, articleID int64, tags []string) error {
	for _, name := range tags {
		if _, err := tx.Exec(`INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return perrors.WrapError(err, perrors.CategoryIndex, "interning tag").
				WithContext("tag", name).Build()
		}
	}

	if _, err := tx.Exec(`DELETE FROM article_tags WHERE article_id = ?`, articleID); err != nil {
		return perrors.WrapError(err, perrors.CategoryIndex, "clearing article tag links").Build()
	}

	for i, name := range tags {
		var tagID int64
		if err := tx.QueryRow(`SELECT id FROM tags WHERE name = ?`, name).Scan(&tagID); err != nil {
			return perrors.WrapError(err, perrors.CategoryIndex, "resolving tag id").
				WithContext("tag", name).Build()
		}
		if _, err := tx.Exec(`INSERT INTO article_tags (article_id, tag_id, position) VALUES (?, ?, ?)`,
			articleID, tagID, i); err != nil {
			return perrors.WrapError(err, perrors.CategoryIndex, "linking article tag").
				WithContext("tag", name).Build()
		}
	}
	return nil
}

// DeleteBySrc removes the article at srcRelPath and its tag links. It is a
// no-op (no error) if no such article exists.
func (s *Store) DeleteBySrc(srcRelPath string) error {
	rec, err := s.ByPath(srcRelPath)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	return s.DeleteByID(rec.ID)
}

// DeleteByID removes the article by id and its tag links.
func (s *Store) DeleteByID(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return perrors.WrapError(err, perrors.CategoryIndex, "beginning delete transaction").Build()
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM article_tags WHERE article_id = ?`, id); err != nil {
		return perrors.WrapError(err, perrors.CategoryIndex, "deleting article tag links").Build()
	}
	if _, err := tx.Exec(`DELETE FROM articles WHERE id = ?`, id); err != nil {
		return perrors.WrapError(err, perrors.CategoryIndex, "deleting article row").Build()
	}

	if err := tx.Commit(); err != nil {
		return perrors.WrapError(err, perrors.CategoryIndex, "committing delete transaction").Build()
	}
	return nil
}

// PruneOrphanTags deletes tag rows referenced by no article_tags link and
// returns the names removed. Tag rows otherwise persist across article
// deletes; this backs the gc subcommand's opt-in --prune-orphan-tags flag.
func (s *Store) PruneOrphanTags() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT name FROM tags WHERE id NOT IN (SELECT DISTINCT tag_id FROM article_tags)`)
	if err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "finding orphan tags").Build()
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, perrors.WrapError(err, perrors.CategoryIndex, "scanning orphan tag").Build()
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "iterating orphan tags").Build()
	}
	rows.Close()

	if _, err := s.db.Exec(`DELETE FROM tags WHERE id NOT IN (SELECT DISTINCT tag_id FROM article_tags)`); err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryIndex, "deleting orphan tags").Build()
	}
	return names, nil
}

func queryOneTx(tx *sql.Tx, query string, args ...any) (*article.Record, error) {
	row := tx.QueryRow(query, args...)
	rec, err := scanArticleRow(row)
	if err != nil {
		if err2, ok := perrors.AsClassified(err); ok && err2.Cause() == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func tagsForArticleTx(tx *sql.Tx, articleID int64) ([]string, error) {
	rows, err := tx.Query(`SELECT t.name FROM article_tags at
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// diffChangedFields computes the set of attributes whose value in after
// differs from before's (or all fields, if before is nil — a fresh insert).
func diffChangedFields(before, after *article.Record) article.ChangedFields {
	changed := article.ChangedFields{}
	set := func(name string) { changed[name] = true }

	if before == nil {
		set(article.FieldTitle)
		set(article.FieldDstRelPath)
		set(article.FieldModificationDate)
		set(article.FieldSummary)
		set(article.FieldSeries)
		set(article.FieldTags)
		set(article.FieldDraft)
		set(article.FieldSpecialPage)
		set(article.FieldTimeline)
		set(article.FieldAnchorJS)
		set(article.FieldTocify)
		set(article.FieldLiveUpdates)
		return changed
	}

	if before.Title != after.Title {
		set(article.FieldTitle)
	}
	if before.DstRelPath != after.DstRelPath {
		set(article.FieldDstRelPath)
	}
	if !sameModDate(before.ModificationDate, after.ModificationDate) {
		set(article.FieldModificationDate)
	}
	if before.Summary != after.Summary {
		set(article.FieldSummary)
	}
	if before.Series != after.Series {
		set(article.FieldSeries)
	}
	if !sameTags(before.Tags, after.Tags) {
		set(article.FieldTags)
	}
	if before.Draft != after.Draft {
		set(article.FieldDraft)
	}
	if before.SpecialPage != after.SpecialPage {
		set(article.FieldSpecialPage)
	}
	if before.Timeline != after.Timeline {
		set(article.FieldTimeline)
	}
	if before.AnchorJS != after.AnchorJS {
		set(article.FieldAnchorJS)
	}
	if before.Tocify != after.Tocify {
		set(article.FieldTocify)
	}
	if before.LiveUpdates != after.LiveUpdates {
		set(article.FieldLiveUpdates)
	}
	return changed
}

func sameModDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
