// Package pipeline implements pankat's compile pipeline: the single-consumer
// orchestrator that turns one watcher event into parsed article state,
// cached or freshly rendered HTML, an index upsert, materialized output
// files, and a pub/sub notification.
package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/nixcloud/pankat/internal/article"
	"git.home.luguber.info/nixcloud/pankat/internal/cache"
	"git.home.luguber.info/nixcloud/pankat/internal/index"
	"git.home.luguber.info/nixcloud/pankat/internal/output"
	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
	"git.home.luguber.info/nixcloud/pankat/internal/plugin"
	"git.home.luguber.info/nixcloud/pankat/internal/pubsub"
	"git.home.luguber.info/nixcloud/pankat/internal/render"
	"git.home.luguber.info/nixcloud/pankat/internal/watcher"
)

// Logger is the minimal structured-logging surface the pipeline needs,
// satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Pipeline wires together every component a compile event touches.
type Pipeline struct {
	inputDir  string
	flat      bool
	directory *plugin.Registry
	renderer  render.Renderer
	cache     *cache.Store
	idx       *index.Store
	out       *output.Writer
	pub       *pubsub.Registry
	topic     string
	log       Logger
}

// New builds a Pipeline. topic is the pub/sub topic compiled events are
// published to. flat selects the filename-flattening dst_rel_path
// derivation.
func New(inputDir string, flat bool, reg *plugin.Registry, renderer render.Renderer, cch *cache.Store,
	idx *index.Store, out *output.Writer, pub *pubsub.Registry, topic string, log Logger) *Pipeline {
	return &Pipeline{
		inputDir:  inputDir,
		flat:      flat,
		directory: reg,
		renderer:  renderer,
		cache:     cch,
		idx:       idx,
		out:       out,
		pub:       pub,
		topic:     topic,
		log:       log,
	}
}

// Run drains events one at a time, processing each to completion before
// starting the next, mirroring the teacher's single-consumer rebuild
// worker. Events for distinct paths may be interleaved by the caller; Run
// itself just guarantees in-order, one-at-a-time processing of whatever is
// handed to it, which is sufficient since the watcher already serializes
// same-path events.
func (p *Pipeline) Run(ctx context.Context, events <-chan watcher.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.Handle(ctx, ev)
		}
	}
}

// Handle processes one watcher event to completion: parse, evaluate
// directives, render (via cache), upsert the index, materialize output,
// and publish.
func (p *Pipeline) Handle(ctx context.Context, ev watcher.Event) {
	if ev.Kind == watcher.Remove {
		p.handleRemove(ev.Path)
		return
	}
	if err := p.handleUpsert(ctx, ev.Path); err != nil {
		p.log.Error("compile failed", "src_rel_path", ev.Path, "error", err)
	}
}

// handleUpsert runs the full parse → plugin-evaluate → cache-or-render →
// index-upsert → materialize → publish sequence for one create/modify event.
func (p *Pipeline) handleUpsert(ctx context.Context, srcRelPath string) error {
	// 1. Parse.
	body, err := os.ReadFile(filepath.Join(p.inputDir, srcRelPath))
	if err != nil {
		return perrors.WrapError(err, perrors.CategoryOutput, "reading source file").
			WithContext("src_rel_path", srcRelPath).Build()
	}
	rec := article.NewDefault(srcRelPath, article.DstRelPath(srcRelPath, p.flat))

	// 2. Plugin-evaluate.
	postPluginBody, errs := plugin.Evaluate(p.directory, string(body), rec)
	for _, derr := range errs {
		p.log.Warn("directive error", "src_rel_path", srcRelPath, "error", derr)
	}

	// 3. Special-page rule.
	rec.ApplySpecialPageRule()

	// 4. Cache probe.
	html, err := p.renderOrReuse(ctx, srcRelPath, postPluginBody, rec)
	if err != nil {
		return err
	}

	// 5. Title default.
	if rec.Title == "" {
		rec.Title = article.TitleFromFilename(srcRelPath)
	}

	// 6. Index upsert.
	stored, changed, err := p.idx.Upsert(rec)
	if err != nil {
		return err
	}

	// 7. Output materialization.
	if err := p.materialize(stored, html, changed); err != nil {
		return err
	}

	// 8. Publish.
	return p.publish(stored, html)
}

func (p *Pipeline) renderOrReuse(ctx context.Context, srcRelPath, postPluginBody string, rec *article.Record) (string, error) {
	opts := cache.RenderOptions{AnchorJS: rec.AnchorJS}
	hash := cache.Hash(postPluginBody, opts)

	entry, err := p.cache.Lookup(srcRelPath)
	if err != nil {
		return "", err
	}
	if entry != nil && entry.Hash == hash {
		return entry.HTML, nil
	}

	html, err := p.renderer.Render(ctx, []byte(postPluginBody), render.Options{AnchorJS: rec.AnchorJS})
	if err != nil {
		return "", err
	}
	if err := p.cache.Store(srcRelPath, hash, html); err != nil {
		return "", err
	}
	return html, nil
}

func (p *Pipeline) materialize(rec *article.Record, html string, changed article.ChangedFields) error {
	if rec.Draft {
		if err := p.out.Remove(rec.DstRelPath); err != nil {
			return err
		}
		return nil
	}

	nb, err := p.neighbors(rec)
	if err != nil {
		return err
	}
	if err := p.out.WriteArticle(rec, html, nb); err != nil {
		return err
	}

	if changed.Has(article.FieldModificationDate) || changed.Has(article.FieldDraft) ||
		changed.Has(article.FieldSpecialPage) {
		if err := p.regenerateIndex(); err != nil {
			return err
		}
	}
	if err := p.regenerateTimeline(); err != nil {
		return err
	}
	return p.regenerateSpecialPages()
}

func (p *Pipeline) neighbors(rec *article.Record) (output.Neighbors, error) {
	prev, next, err := p.idx.Neighbors(rec.ID)
	if err != nil {
		return output.Neighbors{}, err
	}
	nb := output.Neighbors{Prev: prev, Next: next}
	if rec.Series != "" {
		sp, sn, err := p.idx.NeighborsInSeries(rec.ID, rec.Series)
		if err != nil {
			return output.Neighbors{}, err
		}
		nb.SeriesPrev, nb.SeriesNext = sp, sn
	}
	return nb, nil
}

func (p *Pipeline) regenerateIndex() error {
	mostRecent, err := p.idx.MostRecentVisible()
	if err != nil {
		return err
	}
	return p.out.WriteIndex(mostRecent)
}

func (p *Pipeline) regenerateTimeline() error {
	visible, err := p.idx.Visible()
	if err != nil {
		return err
	}
	return p.out.WriteTimeline(visible)
}

func (p *Pipeline) regenerateSpecialPages() error {
	pages, err := p.idx.SpecialPages()
	if err != nil {
		return err
	}
	for _, sp := range pages {
		entry, err := p.cache.Lookup(sp.SrcRelPath)
		if err != nil {
			return err
		}
		if entry == nil {
			continue
		}
		nb, err := p.neighbors(sp)
		if err != nil {
			return err
		}
		if err := p.out.WriteArticle(sp, entry.HTML, nb); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) publish(rec *article.Record, html string) error {
	if rec.Draft {
		p.pub.Publish(p.topic, pubsub.RedirectMessage("/draft?"+rec.DstRelPath))
		return nil
	}
	p.pub.Publish(p.topic, pubsub.UpdateMessage(html))
	return nil
}

// handleRemove implements the delete-event path: drop the article row, its
// cache entry, and its output file, then publish a redirect.
func (p *Pipeline) handleRemove(srcRelPath string) {
	rec, err := p.idx.ByPath(srcRelPath)
	if err != nil {
		p.log.Error("lookup before delete failed", "src_rel_path", srcRelPath, "error", err)
		return
	}
	if rec == nil {
		return
	}

	if err := p.idx.DeleteByID(rec.ID); err != nil {
		p.log.Error("index delete failed", "src_rel_path", srcRelPath, "error", err)
		return
	}
	if err := p.cache.Delete(srcRelPath); err != nil {
		p.log.Error("cache delete failed", "src_rel_path", srcRelPath, "error", err)
		return
	}
	if err := p.out.Remove(rec.DstRelPath); err != nil {
		p.log.Error("output removal failed", "src_rel_path", srcRelPath, "error", err)
		return
	}

	if err := p.regenerateTimeline(); err != nil {
		p.log.Warn("timeline regeneration failed after delete", "error", err)
	}
	if err := p.regenerateIndex(); err != nil {
		p.log.Warn("index regeneration failed after delete", "error", err)
	}

	// The removed page no longer exists anywhere, draft preview included, so
	// subscribers are sent home rather than to the draft-preview redirect
	// used when an article merely becomes a draft.
	p.pub.Publish(p.topic, pubsub.RedirectMessage("/"))
}
