// Package article defines the shared Article record threaded between the
// plugin evaluator, render cache, article index, compile pipeline, and
// output writer.
package article

import (
	"strings"
	"time"
)

// Record is the mutable article record built up over one compile-pipeline
// pass: seeded by the parser, mutated by the plugin evaluator, then
// persisted by the index.
type Record struct {
	ID int64

	// SrcRelPath is the primary natural key, relative to the input root.
	SrcRelPath string
	// DstRelPath is relative to the output root.
	DstRelPath string

	Title            string
	ModificationDate *time.Time
	Summary          string
	Series           string

	// Tags preserves first-seen display order; membership is still a set
	// (duplicate tag names collapse).
	Tags []string

	Draft       bool
	SpecialPage bool
	Timeline    bool
	AnchorJS    bool
	Tocify      bool
	LiveUpdates bool
}

// AddTag inserts name into Tags if not already present, preserving order.
func (r *Record) AddTag(name string) {
	for _, t := range r.Tags {
		if t == name {
			return
		}
	}
	r.Tags = append(r.Tags, name)
}

// Visible reports whether the article should appear in any query documented
// as "visible" — excludes drafts and special pages.
func (r *Record) Visible() bool {
	return !r.Draft && !r.SpecialPage
}

// ApplySpecialPageRule clears Tocify when SpecialPage is set: a page excluded
// from the normal article flow has no table of contents to generate either.
func (r *Record) ApplySpecialPageRule() {
	if r.SpecialPage {
		r.Tocify = false
	}
}

// NewDefault seeds a fresh record for a source file about to be parsed, with
// AnchorJS, Tocify and LiveUpdates defaulted to true. No directive sets these
// three; only ApplySpecialPageRule clears Tocify.
func NewDefault(srcRelPath, dstRelPath string) *Record {
	return &Record{
		SrcRelPath:  srcRelPath,
		DstRelPath:  dstRelPath,
		AnchorJS:    true,
		Tocify:      true,
		LiveUpdates: true,
	}
}

// DstRelPath derives an article's output path from its source path. In flat
// mode every path separator is replaced with "_" so the whole source tree
// lands in one output directory level; otherwise the source path is kept
// as-is. Either way the extension is changed to ".html".
func DstRelPath(srcRelPath string, flat bool) string {
	withoutExt := srcRelPath
	if i := lastDot(withoutExt); i > 0 {
		withoutExt = withoutExt[:i]
	}
	if !flat {
		return withoutExt + ".html"
	}
	flattened := strings.NewReplacer("/", "_", "\\", "_").Replace(withoutExt)
	return flattened + ".html"
}

// TitleFromFilename derives a default title from a source-relative path: the
// directory part and the extension are dropped, and '-', '_' and '.' in the
// remaining file name become spaces.
func TitleFromFilename(srcRelPath string) string {
	base := srcRelPath
	if i := lastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if i := lastDot(base); i > 0 {
		base = base[:i]
	}
	out := make([]rune, 0, len(base))
	for _, r := range base {
		switch r {
		case '-', '_', '.':
			out = append(out, ' ')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

func lastIndexAny(s, chars string) int {
	for i := len(s) - 1; i >= 0; i-- {
		for _, c := range chars {
			if rune(s[i]) == c {
				return i
			}
		}
	}
	return -1
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// ChangedFields is the set of attribute names whose value differs from an
// upsert's pre-image, as returned by the article index's Upsert.
type ChangedFields map[string]bool

// Any reports whether at least one field changed.
func (c ChangedFields) Any() bool {
	return len(c) > 0
}

// Has reports whether the named field changed.
func (c ChangedFields) Has(name string) bool {
	return c[name]
}

// Field name constants used as ChangedFields keys, matching the articles
// table's column names.
const (
	FieldTitle            = "title"
	FieldDstRelPath       = "dst_rel_path"
	FieldModificationDate = "modification_date"
	FieldSummary          = "summary"
	FieldSeries           = "series"
	FieldTags             = "tags"
	FieldDraft            = "draft"
	FieldSpecialPage      = "special_page"
	FieldTimeline         = "timeline"
	FieldAnchorJS         = "anchorjs"
	FieldTocify           = "tocify"
	FieldLiveUpdates      = "live_updates"
)
