// Package render implements pankat's external markup-to-HTML renderer: a
// pure function from a post-plugin Markdown body plus render options to an
// HTML string, invoked by the render cache on a miss.
package render

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/anchor"

	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
)

// Options selects the render-affecting flags carried on an article record.
// These are exactly the inputs that participate in the cache's fingerprint.
type Options struct {
	// AnchorJS enables heading-ID anchors, equivalent to the legacy
	// anchorjs directive/front-matter flag.
	AnchorJS bool
}

// Renderer converts a Markdown body into HTML. Implementations must be pure
// functions of (body, opts): same inputs, same output, every time, since the
// cache relies on that determinism (testable property 1, idempotence).
type Renderer interface {
	Render(ctx context.Context, body []byte, opts Options) (string, error)
}

// Goldmark is the default Renderer, backed by github.com/yuin/goldmark with
// GitHub-flavored-markdown extensions and an optional heading-anchor pass.
type Goldmark struct {
	plain  goldmark.Markdown
	anchor goldmark.Markdown
}

// NewGoldmark builds the default renderer. Two goldmark.Markdown instances
// are held — with and without the anchor extension — since goldmark's
// extension set is fixed at construction time and Options.AnchorJS varies
// per call.
func NewGoldmark() *Goldmark {
	return &Goldmark{
		plain: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				htmlrenderer.WithUnsafe(),
			),
		),
		anchor: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				&anchor.Extender{Position: anchor.After},
			),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(
				htmlrenderer.WithUnsafe(),
			),
		),
	}
}

// Render converts body to HTML. It never blocks on ctx directly — goldmark's
// Convert is synchronous CPU work — but honors an already-canceled context so
// callers racing a shutdown don't pay for a render that will be discarded.
func (g *Goldmark) Render(ctx context.Context, body []byte, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", perrors.WrapError(err, perrors.CategoryRender, "render canceled").Build()
	}

	md := g.plain
	if opts.AnchorJS {
		md = g.anchor
	}

	var buf bytes.Buffer
	if err := md.Convert(body, &buf); err != nil {
		return "", perrors.WrapError(err, perrors.CategoryRender, "converting markdown to html").
			Retryable().Build()
	}
	return buf.String(), nil
}
