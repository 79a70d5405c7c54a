// Command pankat is the blog-compiler CLI: "build" runs one cold-start
// compile pass and exits, "watch" primes the index then hands off to the
// filesystem watcher for steady-state incremental rebuilds, and "gc" runs
// the three-pass (plus optional orphan-tag) garbage collector. Wiring
// order and CLI shape are grounded on cmd/docbuilder/main.go's kong-based
// root CLI, generalized from a multi-repo documentation daemon to a
// single-input-tree blog daemon.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/nixcloud/pankat/internal/config"
	"git.home.luguber.info/nixcloud/pankat/internal/daemon"
	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
)

// Set at build time with: -ldflags "-X main.version=1.0.0"
var version = "dev"

// shutdownGrace bounds how long the HTTP preview server is given to drain
// in-flight /live connections when "watch" is interrupted.
const shutdownGrace = 5 * time.Second

// CLI is the root command definition and global flags.
type CLI struct {
	Config     string           `short:"c" help:"Configuration file path" default:"pankat.yaml"`
	Input      string           `short:"i" name:"input" help:"Input directory containing .mdwn articles (overrides config)"`
	Output     string           `short:"o" name:"output" help:"Output directory for the generated site (overrides config)"`
	StateDir   string           `name:"state-dir" help:"Directory holding the index and render-cache databases" default:"./.pankat-state"`
	Flat       bool             `name:"flat" help:"Flatten article paths into the output root instead of mirroring the input tree"`
	Listen     string           `name:"listen" help:"Address to serve live-preview and (optional) metrics HTTP on, e.g. :8080 (overrides config)"`
	Verbose    bool             `short:"v" help:"Enable verbose logging"`
	Version    kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Compile every article once and exit"`
	Watch WatchCmd `cmd:"" help:"Compile once, then watch the input tree for changes"`
	GC    GCCmd    `cmd:"" help:"Reconcile the index, output tree, and render cache against the input tree"`
}

// Global carries process-wide state shared across subcommands.
type Global struct {
	Logger *slog.Logger
}

// AfterApply configures the default logger before any subcommand runs,
// mirroring cmd/docbuilder/main.go's AfterApply.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func (c *CLI) overrides() config.Overrides {
	return config.Overrides{
		InputDir:   c.Input,
		OutputDir:  c.Output,
		Flat:       c.Flat,
		FlatSet:    c.Flat,
		ListenAddr: c.Listen,
	}
}

// BuildCmd implements the 'build' subcommand: a single cold-start compile
// pass over the whole input tree, then exit.
type BuildCmd struct{}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config, root.overrides())
	if err != nil {
		return err
	}

	d, err := daemon.New(daemon.Options{Config: cfg, StateDir: root.StateDir, Logger: slog.Default()})
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	ctx := context.Background()
	n, err := d.BulkBuild(ctx)
	if err != nil {
		return err
	}
	slog.Info("build complete", "articles", n)
	return nil
}

// WatchCmd implements the 'watch' subcommand: prime the index with one
// bulk build, then hand off to the filesystem watcher for incremental
// recompiles until interrupted.
type WatchCmd struct{}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config, root.overrides())
	if err != nil {
		return err
	}

	d, err := daemon.New(daemon.Options{Config: cfg, StateDir: root.StateDir, Logger: slog.Default()})
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	sigctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	n, err := d.BulkBuild(sigctx)
	if err != nil {
		return err
	}
	slog.Info("initial build complete", "articles", n)

	var httpServer *daemon.HTTPServer
	if cfg.ListenAddr != "" {
		httpServer = daemon.NewHTTPServer(cfg.ListenAddr, d)
		httpServer.Start()
		slog.Info("serving live preview", "addr", cfg.ListenAddr)
	}

	err = d.Watch(sigctx)

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}
	return err
}

// GCCmd implements the 'gc' subcommand: reconcile persisted state against
// the input tree.
type GCCmd struct {
	PruneOrphanTags bool `name:"prune-orphan-tags" help:"Also delete tag rows referenced by no article"`
}

func (g *GCCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config, root.overrides())
	if err != nil {
		return err
	}

	d, err := daemon.New(daemon.Options{Config: cfg, StateDir: root.StateDir, Logger: slog.Default()})
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	report, err := d.RunGC(g.PruneOrphanTags)
	if err != nil {
		return err
	}
	slog.Info("gc complete",
		"index_removed", len(report.IndexRemoved),
		"output_removed", len(report.OutputRemoved),
		"cache_removed", len(report.CacheRemoved),
		"tags_pruned", len(report.TagsPruned))
	return nil
}

func main() {
	cli := &CLI{}
	parser := kong.Parse(cli,
		kong.Description("pankat: incremental static-site compiler for a single markdown blog tree."),
		kong.Vars{"version": version},
	)

	logger := slog.Default()
	errorAdapter := perrors.NewCLIErrorAdapter(cli.Verbose, logger)
	globals := &Global{Logger: logger}

	if err := parser.Run(globals, cli); err != nil {
		errorAdapter.HandleError(err)
	}
}
