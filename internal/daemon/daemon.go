// Package daemon assembles pankat's components into a runnable process:
// config → index → cache → renderer → templates → pipeline → watcher →
// pub/sub → (optional) HTTP skeleton, in the same order
// cmd/docbuilder/main.go wires its own daemon.
package daemon

import (
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/nixcloud/pankat/internal/cache"
	"git.home.luguber.info/nixcloud/pankat/internal/config"
	"git.home.luguber.info/nixcloud/pankat/internal/gc"
	"git.home.luguber.info/nixcloud/pankat/internal/index"
	"git.home.luguber.info/nixcloud/pankat/internal/metrics"
	"git.home.luguber.info/nixcloud/pankat/internal/output"
	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
	"git.home.luguber.info/nixcloud/pankat/internal/pipeline"
	"git.home.luguber.info/nixcloud/pankat/internal/plugin"
	"git.home.luguber.info/nixcloud/pankat/internal/pubsub"
	"git.home.luguber.info/nixcloud/pankat/internal/render"
	"git.home.luguber.info/nixcloud/pankat/internal/templates"
)

// Topic is the well-known pub/sub topic compiled events are published to.
const Topic = "updates"

// Options configures a Daemon. StateDir holds the article-index and
// render-cache SQLite files; it is deliberately outside Config.OutputDir so
// the garbage collector's output pass, which walks the entire output tree,
// never mistakes them for stray articles and deletes them.
type Options struct {
	Config   *config.Config
	StateDir string
	Logger   *slog.Logger
}

// Daemon holds every long-lived component wired together for one process
// lifetime. Config and pub/sub are single-instance-per-process state,
// threaded explicitly here rather than through package globals.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	Index    *index.Store
	Cache    *cache.Store
	Output   *output.Writer
	Pub      *pubsub.Registry
	Pipeline *pipeline.Pipeline
	GC       *gc.Collector
	Recorder metrics.Recorder
}

// New opens the index and cache stores, builds the default renderer and
// templates, and assembles the compile pipeline and GC collector. It
// refuses to start (CategorySentinel, fatal) if the output directory is
// non-empty and unmarked.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(opts.StateDir, 0o755); err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryConfig, "creating state directory").
			WithContext("state_dir", opts.StateDir).Build()
	}

	idx, err := index.Open(filepath.Join(opts.StateDir, "index.db"))
	if err != nil {
		return nil, err
	}
	cch, err := cache.Open(filepath.Join(opts.StateDir, "cache.db"))
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	tpl := templates.NewDefault()
	out := output.New(cfg.OutputDir, tpl.Content, tpl.Standalone)
	if err := out.EnsureSentinel(); err != nil {
		_ = idx.Close()
		_ = cch.Close()
		return nil, err
	}

	pub := pubsub.NewRegistry()
	renderer := render.NewGoldmark()
	reg := plugin.DefaultRegistry()

	p := pipeline.New(cfg.InputDir, cfg.Flat, reg, renderer, cch, idx, out, pub, Topic, logger)
	collector := gc.New(cfg.InputDir, idx, cch, out)

	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		Index:    idx,
		Cache:    cch,
		Output:   out,
		Pub:      pub,
		Pipeline: p,
		GC:       collector,
		Recorder: newRecorder(),
	}, nil
}

// Close releases the index and cache database handles. The caller is
// expected to have already stopped the watcher and worker before Close is
// reached; pub/sub is simply dropped, since it has no handles to release.
func (d *Daemon) Close() error {
	cacheErr := d.Cache.Close()
	indexErr := d.Index.Close()
	if indexErr != nil {
		return indexErr
	}
	return cacheErr
}

// Config returns the daemon's immutable configuration.
func (d *Daemon) Config() *config.Config { return d.cfg }
