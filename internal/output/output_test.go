package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/nixcloud/pankat/internal/article"
	"git.home.luguber.info/nixcloud/pankat/internal/templates"
)

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	tpl := templates.NewDefault()
	return New(dir, tpl.Content, tpl.Standalone), dir
}

func TestEnsureSentinel_CreatesOnEmptyDir(t *testing.T) {
	w, dir := newTestWriter(t)
	require.NoError(t, w.EnsureSentinel())
	_, err := os.Stat(filepath.Join(dir, SentinelName))
	require.NoError(t, err)
}

func TestEnsureSentinel_RefusesNonEmptyDirWithoutSentinel(t *testing.T) {
	w, dir := newTestWriter(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))

	err := w.EnsureSentinel()
	require.Error(t, err)
}

func TestEnsureSentinel_IdempotentWhenAlreadyPresent(t *testing.T) {
	w, _ := newTestWriter(t)
	require.NoError(t, w.EnsureSentinel())
	require.NoError(t, w.EnsureSentinel())
}

func TestWriteAtomic_CreatesParentDirsAndContent(t *testing.T) {
	w, dir := newTestWriter(t)
	require.NoError(t, w.WriteAtomic("a/b/c.html", []byte("hi")))

	got, err := os.ReadFile(filepath.Join(dir, "a", "b", "c.html"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestWriteAtomic_OverwritesExisting(t *testing.T) {
	w, dir := newTestWriter(t)
	require.NoError(t, w.WriteAtomic("x.html", []byte("first")))
	require.NoError(t, w.WriteAtomic("x.html", []byte("second")))

	got, err := os.ReadFile(filepath.Join(dir, "x.html"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestRemove_NoopWhenAbsent(t *testing.T) {
	w, _ := newTestWriter(t)
	require.NoError(t, w.Remove("nope.html"))
}

func TestWriteArticle_WritesWithNeighbors(t *testing.T) {
	w, dir := newTestWriter(t)
	rec := &article.Record{SrcRelPath: "a.mdwn", DstRelPath: "a.html", Title: "A"}
	nb := Neighbors{Next: &article.Record{Title: "B", DstRelPath: "b.html"}}

	require.NoError(t, w.WriteArticle(rec, "<p>body</p>", nb))

	got, err := os.ReadFile(filepath.Join(dir, "a.html"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "<p>body</p>")
	assert.Contains(t, string(got), "b.html")
}

func TestWriteIndex_EmptyWhenNoArticles(t *testing.T) {
	w, dir := newTestWriter(t)
	require.NoError(t, w.WriteIndex(nil))
	got, err := os.ReadFile(filepath.Join(dir, IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(got), "No articles yet")
}

func TestWriteIndex_RedirectsToMostRecent(t *testing.T) {
	w, dir := newTestWriter(t)
	rec := &article.Record{Title: "Latest", DstRelPath: "latest.html"}
	require.NoError(t, w.WriteIndex(rec))
	got, err := os.ReadFile(filepath.Join(dir, IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(got), "latest.html")
}

func TestWriteTimeline_ListsArticles(t *testing.T) {
	w, dir := newTestWriter(t)
	articles := []*article.Record{
		{Title: "One", DstRelPath: "one.html"},
		{Title: "Two", DstRelPath: "two.html"},
	}
	require.NoError(t, w.WriteTimeline(articles))
	got, err := os.ReadFile(filepath.Join(dir, TimelineFile))
	require.NoError(t, err)
	assert.Contains(t, string(got), "one.html")
	assert.Contains(t, string(got), "two.html")
}

func TestWriteTagPage_Slugified(t *testing.T) {
	w, dir := newTestWriter(t)
	require.NoError(t, w.WriteTagPage("Go Lang!", nil))
	_, err := os.ReadFile(filepath.Join(dir, "tags", "go-lang.html"))
	require.NoError(t, err)
}

func TestSortByModDateDesc_UndatedLast(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	a := &article.Record{ID: 1, Title: "no date"}
	b := &article.Record{ID: 2, Title: "earlier", ModificationDate: &earlier}
	c := &article.Record{ID: 3, Title: "now", ModificationDate: &now}

	records := []*article.Record{a, b, c}
	SortByModDateDesc(records)

	require.Equal(t, []string{"now", "earlier", "no date"}, titles(records))
}

func titles(records []*article.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}
