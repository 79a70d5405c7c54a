package plugin

import (
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/nixcloud/pankat/internal/article"
)

// metaTimeLayout is the directive's wire format; timestamps are always
// parsed as UTC so ordering comparisons never depend on the host's locale.
const metaTimeLayout = "2006-01-02 15:04"

// Title sets the article's title. Replacement text is always empty.
func Title(arg string, rec *article.Record) (string, error) {
	rec.Title = arg
	return "", nil
}

// Summary sets the article's summary. Replacement text is always empty.
func Summary(arg string, rec *article.Record) (string, error) {
	rec.Summary = arg
	return "", nil
}

// Series sets the article's series. Replacement text is always empty.
func Series(arg string, rec *article.Record) (string, error) {
	rec.Series = arg
	return "", nil
}

// Tag adds each whitespace-separated word in arg to the article's tag set,
// preserving first-seen order. Replacement text is always empty.
func Tag(arg string, rec *article.Record) (string, error) {
	for _, word := range strings.Fields(arg) {
		rec.AddTag(word)
	}
	return "", nil
}

// Draft marks the article as a draft. Draft and special-page are distinct
// states — a draft is unfinished content that becomes visible later, while
// a special page is permanently excluded from the timeline — so this only
// ever sets Draft, never SpecialPage.
func Draft(_ string, rec *article.Record) (string, error) {
	rec.Draft = true
	return "", nil
}

// SpecialPage marks the article as a special page.
func SpecialPage(_ string, rec *article.Record) (string, error) {
	rec.SpecialPage = true
	return "", nil
}

// Meta parses arg as "YYYY-MM-DD HH:MM" and sets the article's modification
// date. A malformed date returns an error so the evaluator leaves the
// directive literally in place and logs a warning rather than silently
// dropping the timestamp.
func Meta(arg string, rec *article.Record) (string, error) {
	t, err := time.Parse(metaTimeLayout, arg)
	if err != nil {
		return "", fmt.Errorf("meta directive: invalid timestamp %q: %w", arg, err)
	}
	t = t.UTC()
	rec.ModificationDate = &t
	return "", nil
}

// Img renders an anchor-wrapped image from "<href> <src...>". It makes no
// change to the article record; its replacement text is the rendered HTML.
func Img(arg string, rec *article.Record) (string, error) {
	fields := strings.SplitN(arg, " ", 2)
	if len(fields) != 2 || fields[0] == "" || strings.TrimSpace(fields[1]) == "" {
		return "", fmt.Errorf("img directive: expected \"<href> <src>\", got %q", arg)
	}
	href := fields[0]
	src := strings.TrimSpace(fields[1])
	return fmt.Sprintf(`<a href="%s"><img src="%s"></a>`, href, src), nil
}
