package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/nixcloud/pankat/internal/article"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustUpsert(t *testing.T, s *Store, rec *article.Record) *article.Record {
	t.Helper()
	stored, _, err := s.Upsert(rec)
	require.NoError(t, err)
	return stored
}

func TestUpsert_InsertReportsAllFieldsChanged(t *testing.T) {
	s := openTestStore(t)
	rec := article.NewDefault("a.mdwn", "a.html")
	rec.Title = "Hello"

	stored, changed, err := s.Upsert(rec)
	require.NoError(t, err)
	assert.NotZero(t, stored.ID)
	assert.True(t, changed.Has(article.FieldTitle))
	assert.True(t, changed.Any())
}

func TestUpsert_UpdateReportsOnlyChangedFields(t *testing.T) {
	s := openTestStore(t)
	rec := article.NewDefault("a.mdwn", "a.html")
	rec.Title = "Hello"
	stored := mustUpsert(t, s, rec)

	stored.Summary = "new summary"
	_, changed, err := s.Upsert(stored)
	require.NoError(t, err)
	assert.True(t, changed.Has(article.FieldSummary))
	assert.False(t, changed.Has(article.FieldTitle))
}

func TestUpsert_S1(t *testing.T) {
	s := openTestStore(t)
	rec := article.NewDefault("a.mdwn", "a.html")
	rec.Title = "Hello"
	rec.AddTag("x")
	rec.AddTag("y")

	stored := mustUpsert(t, s, rec)
	assert.Equal(t, "Hello", stored.Title)
	assert.Equal(t, []string{"x", "y"}, stored.Tags)

	fetched, err := s.ByPath("a.mdwn")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "a.html", fetched.DstRelPath)
}

func TestVisible_ExcludesDraftsAndSpecialPages(t *testing.T) {
	s := openTestStore(t)
	visible := article.NewDefault("a.mdwn", "a.html")
	mustUpsert(t, s, visible)

	draft := article.NewDefault("b.mdwn", "b.html")
	draft.Draft = true
	mustUpsert(t, s, draft)

	special := article.NewDefault("c.mdwn", "c.html")
	special.SpecialPage = true
	mustUpsert(t, s, special)

	vis, err := s.Visible()
	require.NoError(t, err)
	require.Len(t, vis, 1)
	assert.Equal(t, "a.mdwn", vis[0].SrcRelPath)
}

func dateAt(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestNeighbors_S3(t *testing.T) {
	s := openTestStore(t)

	a := article.NewDefault("a.mdwn", "a.html")
	a.ModificationDate = dateAt(2024, 1, 1)
	a = mustUpsert(t, s, a)

	b := article.NewDefault("b.mdwn", "b.html")
	b.ModificationDate = dateAt(2024, 2, 1)
	b = mustUpsert(t, s, b)

	c := article.NewDefault("c.mdwn", "c.html")
	c.ModificationDate = dateAt(2024, 3, 1)
	c = mustUpsert(t, s, c)

	mostRecent, err := s.MostRecentVisible()
	require.NoError(t, err)
	assert.Equal(t, c.ID, mostRecent.ID)

	prev, next, err := s.Neighbors(b.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.NotNil(t, next)
	assert.Equal(t, a.ID, prev.ID)
	assert.Equal(t, c.ID, next.ID)

	prev, next, err = s.Neighbors(a.ID)
	require.NoError(t, err)
	assert.Nil(t, prev)
	require.NotNil(t, next)
	assert.Equal(t, b.ID, next.ID)

	prev, next, err = s.Neighbors(c.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, b.ID, prev.ID)
	assert.Nil(t, next)
}

func TestNeighborSymmetry(t *testing.T) {
	s := openTestStore(t)
	a := mustUpsert(t, s, func() *article.Record {
		r := article.NewDefault("a.mdwn", "a.html")
		r.ModificationDate = dateAt(2024, 1, 1)
		return r
	}())
	b := mustUpsert(t, s, func() *article.Record {
		r := article.NewDefault("b.mdwn", "b.html")
		r.ModificationDate = dateAt(2024, 2, 1)
		return r
	}())

	_, next, err := s.Neighbors(a.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, b.ID, next.ID)

	prev, _, err := s.Neighbors(b.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, a.ID, prev.ID)
}

func TestNeighborsInSeries_S6(t *testing.T) {
	s := openTestStore(t)

	a1 := article.NewDefault("a1.mdwn", "a1.html")
	a1.Series = "S"
	a1.ModificationDate = dateAt(2024, 1, 1)
	a1 = mustUpsert(t, s, a1)

	between := article.NewDefault("between.mdwn", "between.html")
	between.ModificationDate = dateAt(2024, 1, 15)
	mustUpsert(t, s, between)

	a2 := article.NewDefault("a2.mdwn", "a2.html")
	a2.Series = "S"
	a2.ModificationDate = dateAt(2024, 2, 1)
	a2 = mustUpsert(t, s, a2)

	prev, next, err := s.NeighborsInSeries(a2.ID, "S")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, a1.ID, prev.ID)
	assert.Nil(t, next)
}

func TestDeleteBySrc_CascadesTagLinks(t *testing.T) {
	s := openTestStore(t)
	rec := article.NewDefault("a.mdwn", "a.html")
	rec.AddTag("x")
	mustUpsert(t, s, rec)

	require.NoError(t, s.DeleteBySrc("a.mdwn"))

	fetched, err := s.ByPath("a.mdwn")
	require.NoError(t, err)
	assert.Nil(t, fetched)

	byTag, err := s.VisibleByTag("x")
	require.NoError(t, err)
	assert.Empty(t, byTag)
}

func TestPruneOrphanTags(t *testing.T) {
	s := openTestStore(t)
	rec := article.NewDefault("a.mdwn", "a.html")
	rec.AddTag("x")
	rec.AddTag("y")
	stored := mustUpsert(t, s, rec)

	stored.Tags = []string{"x"}
	mustUpsert(t, s, stored)

	removed, err := s.PruneOrphanTags()
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, removed)

	tags, err := s.AllTags()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, tags)
}

func TestAllTagsAndSeries(t *testing.T) {
	s := openTestStore(t)
	rec := article.NewDefault("a.mdwn", "a.html")
	rec.Series = "S"
	rec.AddTag("x")
	rec.AddTag("y")
	mustUpsert(t, s, rec)

	tags, err := s.AllTags()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, tags)

	series, err := s.AllSeriesOfVisible()
	require.NoError(t, err)
	assert.Equal(t, []string{"S"}, series)
}
