// Package templates implements pankat's two pure templating functions: the
// content template (article body → article-page fragment) and the
// standalone template (fragment → full HTML document), both pure
// string-producing functions over opaque HTML strings.
package templates

import (
	"bytes"
	"embed"
	"text/template"

	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
)

//go:embed assets/*.tmpl
var assets embed.FS

// NeighborRef is the minimal view of a neighboring article a template needs
// to render a prev/next link.
type NeighborRef struct {
	Title      string
	DstRelPath string
}

// ContentData is everything the content template may reference. BodyHTML is
// already-rendered, trusted HTML (the output of the external renderer), so
// the templating layer deliberately uses text/template rather than
// html/template: re-escaping would corrupt it.
type ContentData struct {
	SrcRelPath string
	Title      string
	Series     string
	Tags       []string
	BodyHTML   string
	Prev       *NeighborRef
	Next       *NeighborRef
}

// StandaloneData is everything the standalone template may reference.
type StandaloneData struct {
	Title       string
	ContentHTML string
}

// ContentFunc composes an article's content-page HTML fragment.
type ContentFunc func(ContentData) (string, error)

// StandaloneFunc wraps a content fragment into a full standalone HTML page.
type StandaloneFunc func(StandaloneData) (string, error)

// Default loads pankat's built-in content and standalone templates.
type Default struct {
	content    *template.Template
	standalone *template.Template
}

// NewDefault parses the embedded default templates. It panics on failure
// since the embedded assets are a build-time invariant, never a runtime
// input.
func NewDefault() *Default {
	content := template.Must(template.New("content.html.tmpl").
		Option("missingkey=zero").
		ParseFS(assets, "assets/content.html.tmpl"))
	standalone := template.Must(template.New("standalone.html.tmpl").
		Option("missingkey=zero").
		ParseFS(assets, "assets/standalone.html.tmpl"))
	return &Default{content: content, standalone: standalone}
}

// Content renders the content template (ContentFunc).
func (d *Default) Content(data ContentData) (string, error) {
	var buf bytes.Buffer
	if err := d.content.Execute(&buf, data); err != nil {
		return "", perrors.WrapError(err, perrors.CategoryRender, "executing content template").
			WithContext("src_rel_path", data.SrcRelPath).Build()
	}
	return buf.String(), nil
}

// Standalone renders the standalone template (StandaloneFunc).
func (d *Default) Standalone(data StandaloneData) (string, error) {
	var buf bytes.Buffer
	if err := d.standalone.Execute(&buf, data); err != nil {
		return "", perrors.WrapError(err, perrors.CategoryRender, "executing standalone template").
			WithContext("title", data.Title).Build()
	}
	return buf.String(), nil
}
