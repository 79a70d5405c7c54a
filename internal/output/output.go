// Package output implements pankat's output writer: a pure materializer
// that composes an article's templated HTML and writes it under the output
// tree, plus the derived index, timeline, tag, and series pages.
package output

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/nixcloud/pankat/internal/article"
	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
	"git.home.luguber.info/nixcloud/pankat/internal/templates"
)

// SentinelName marks an output directory as owned by pankat.
const SentinelName = ".pankat_maintained_output_folder"

const (
	IndexFile    = "index.html"
	TimelineFile = "timeline.html"
)

// Writer materializes article pages and derived index pages under an output
// root directory.
type Writer struct {
	root    string
	content templates.ContentFunc
	page    templates.StandaloneFunc
}

// New builds a Writer rooted at outputDir, using contentFn and pageFn as the
// external content/standalone template functions.
func New(outputDir string, contentFn templates.ContentFunc, pageFn templates.StandaloneFunc) *Writer {
	return &Writer{root: outputDir, content: contentFn, page: pageFn}
}

// Root returns the writer's output directory.
func (w *Writer) Root() string { return w.root }

// EnsureSentinel creates the sentinel marker file if the output directory is
// empty, and returns an error if the directory is non-empty and lacks it.
// This guards against pointing pankat at an unrelated directory and having
// the garbage collector's output pass start deleting someone else's files.
func (w *Writer) EnsureSentinel() error {
	sentinel := filepath.Join(w.root, SentinelName)
	if _, err := os.Stat(sentinel); err == nil {
		return nil
	}

	entries, err := os.ReadDir(w.root)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(w.root, 0o755); mkErr != nil {
				return perrors.WrapError(mkErr, perrors.CategoryOutput, "creating output directory").Build()
			}
			entries = nil
		} else {
			return perrors.WrapError(err, perrors.CategoryOutput, "reading output directory").Build()
		}
	}

	if len(entries) > 0 {
		return perrors.SentinelError("output directory is non-empty and lacks the pankat sentinel file").
			WithContext("output_dir", w.root).Build()
	}

	return os.WriteFile(sentinel, []byte{}, 0o644)
}

// WriteAtomic writes content to <root>/relPath via a temp-file-then-rename
// so readers never observe a partial write, creating parent directories as
// needed.
func (w *Writer) WriteAtomic(relPath string, content []byte) error {
	fullPath := filepath.Join(w.root, relPath)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perrors.WrapError(err, perrors.CategoryOutput, "creating output parent directory").
			WithContext("path", fullPath).Build()
	}

	tmp, err := os.CreateTemp(dir, ".pankat-*.tmp")
	if err != nil {
		return perrors.WrapError(err, perrors.CategoryOutput, "creating temp output file").
			WithContext("path", fullPath).Build()
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return perrors.WrapError(err, perrors.CategoryOutput, "writing temp output file").
			WithContext("path", fullPath).Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return perrors.WrapError(err, perrors.CategoryOutput, "closing temp output file").
			WithContext("path", fullPath).Build()
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return perrors.WrapError(err, perrors.CategoryOutput, "renaming temp output file into place").
			WithContext("path", fullPath).Build()
	}
	return nil
}

// Remove deletes the output file at relPath, if present. It is a no-op if
// the file does not exist.
func (w *Writer) Remove(relPath string) error {
	fullPath := filepath.Join(w.root, relPath)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return perrors.WrapError(err, perrors.CategoryOutput, "removing output file").
			WithContext("path", fullPath).Build()
	}
	return nil
}

// Neighbors is the general and series-scoped neighbor pair for an article,
// supplied by the index.
type Neighbors struct {
	Prev, Next             *article.Record
	SeriesPrev, SeriesNext *article.Record
}

func neighborRef(rec *article.Record) *templates.NeighborRef {
	if rec == nil {
		return nil
	}
	return &templates.NeighborRef{Title: rec.Title, DstRelPath: rec.DstRelPath}
}

// WriteArticle composes an article's content and standalone HTML via the
// external template functions and writes it at its dst_rel_path.
func (w *Writer) WriteArticle(rec *article.Record, bodyHTML string, nb Neighbors) error {
	prev, next := nb.Prev, nb.Next
	if rec.Series != "" {
		prev, next = nb.SeriesPrev, nb.SeriesNext
	}

	contentHTML, err := w.content(templates.ContentData{
		SrcRelPath: rec.SrcRelPath,
		Title:      rec.Title,
		Series:     rec.Series,
		Tags:       rec.Tags,
		BodyHTML:   bodyHTML,
		Prev:       neighborRef(prev),
		Next:       neighborRef(next),
	})
	if err != nil {
		return err
	}

	pageHTML, err := w.page(templates.StandaloneData{Title: rec.Title, ContentHTML: contentHTML})
	if err != nil {
		return err
	}

	return w.WriteAtomic(rec.DstRelPath, []byte(pageHTML))
}

// WriteIndex regenerates index.html as a redirect-equivalent page pointing
// at the most-recent visible article.
func (w *Writer) WriteIndex(mostRecent *article.Record) error {
	if mostRecent == nil {
		return w.WriteAtomic(IndexFile, []byte(emptyIndexHTML))
	}
	html := `<!DOCTYPE html><html><head><meta charset="utf-8">` +
		`<meta http-equiv="refresh" content="0; url=` + mostRecent.DstRelPath + `">` +
		`<title>` + mostRecent.Title + `</title></head><body>` +
		`<p>Redirecting to <a href="` + mostRecent.DstRelPath + `">` + mostRecent.Title + `</a>.</p>` +
		`</body></html>`
	return w.WriteAtomic(IndexFile, []byte(html))
}

const emptyIndexHTML = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>Empty</title></head>` +
	`<body><p>No articles yet.</p></body></html>`

// WriteTimeline regenerates the timeline page: every visible article in
// descending modification-date order.
func (w *Writer) WriteTimeline(visible []*article.Record) error {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>Timeline</title></head><body><ul>`)
	for _, rec := range visible {
		b.WriteString(`<li><a href="`)
		b.WriteString(rec.DstRelPath)
		b.WriteString(`">`)
		b.WriteString(rec.Title)
		b.WriteString(`</a></li>`)
	}
	b.WriteString(`</ul></body></html>`)
	return w.WriteAtomic(TimelineFile, []byte(b.String()))
}

// TagPagePath and SeriesPagePath give the derived-page relative path for a
// tag or series name.
func TagPagePath(name string) string    { return filepath.Join("tags", slugify(name)+".html") }
func SeriesPagePath(name string) string { return filepath.Join("series", slugify(name)+".html") }

// WriteTagPage regenerates the per-tag index page listing every visible
// article carrying that tag.
func (w *Writer) WriteTagPage(tag string, articles []*article.Record) error {
	return w.writeListPage(TagPagePath(tag), "Tag: "+tag, articles)
}

// WriteSeriesPage regenerates the per-series index page listing every
// visible article in that series, in display order.
func (w *Writer) WriteSeriesPage(series string, articles []*article.Record) error {
	return w.writeListPage(SeriesPagePath(series), "Series: "+series, articles)
}

func (w *Writer) writeListPage(relPath, heading string, articles []*article.Record) error {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
	b.WriteString(heading)
	b.WriteString(`</title></head><body><h1>`)
	b.WriteString(heading)
	b.WriteString(`</h1><ul>`)
	for _, rec := range articles {
		b.WriteString(`<li><a href="`)
		b.WriteString(rec.DstRelPath)
		b.WriteString(`">`)
		b.WriteString(rec.Title)
		b.WriteString(`</a></li>`)
	}
	b.WriteString(`</ul></body></html>`)
	return w.WriteAtomic(relPath, []byte(b.String()))
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// SortByModDateDesc orders records the same way the index does: most
// recently modified first, undated records last, ties broken by ID
// ascending (mirrors internal/index's orderByNeighborClause).
func SortByModDateDesc(records []*article.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if (a.ModificationDate == nil) != (b.ModificationDate == nil) {
			return a.ModificationDate != nil
		}
		if a.ModificationDate != nil && b.ModificationDate != nil && !a.ModificationDate.Equal(*b.ModificationDate) {
			return a.ModificationDate.After(*b.ModificationDate)
		}
		return a.ID < b.ID
	})
}
