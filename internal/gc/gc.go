// Package gc implements pankat's garbage collector: the three-pass sweep
// over the article index, output tree, and render cache that reconciles
// persisted state with what the input tree actually contains.
package gc

import (
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/nixcloud/pankat/internal/cache"
	"git.home.luguber.info/nixcloud/pankat/internal/index"
	"git.home.luguber.info/nixcloud/pankat/internal/output"
	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
)

// Report summarizes one GC run.
type Report struct {
	IndexRemoved  []string // src_rel_path of removed article rows
	OutputRemoved []string // relative path of removed output files
	CacheRemoved  []string // src_rel_path of removed cache entries
	TagsPruned    []string // names of orphaned tag rows removed, if requested
}

// Collector runs the index/output/cache GC passes against one input tree.
type Collector struct {
	inputDir        string
	idx             *index.Store
	cch             *cache.Store
	out             *output.Writer
	pruneOrphanTags bool
}

// New builds a Collector over the given index, cache, and output writer,
// resolving source existence against inputDir.
func New(inputDir string, idx *index.Store, cch *cache.Store, out *output.Writer) *Collector {
	return &Collector{inputDir: inputDir, idx: idx, cch: cch, out: out}
}

// WithPruneOrphanTags enables the optional fourth pass that deletes tag rows
// referenced by no article. Off by default, so tag rows persist across
// runs unless a caller opts in.
func (c *Collector) WithPruneOrphanTags(prune bool) *Collector {
	c.pruneOrphanTags = prune
	return c
}

// Run executes the three mandatory passes in order, plus orphan-tag pruning
// if requested, and returns what was removed.
func (c *Collector) Run() (Report, error) {
	var report Report

	indexRemoved, err := c.indexPass()
	if err != nil {
		return report, err
	}
	report.IndexRemoved = indexRemoved

	outputRemoved, err := c.outputPass()
	if err != nil {
		return report, err
	}
	report.OutputRemoved = outputRemoved

	cacheRemoved, err := c.cachePass()
	if err != nil {
		return report, err
	}
	report.CacheRemoved = cacheRemoved

	if c.pruneOrphanTags {
		pruned, err := c.idx.PruneOrphanTags()
		if err != nil {
			return report, err
		}
		report.TagsPruned = pruned
	}

	return report, nil
}

// indexPass deletes article rows whose source file no longer exists.
func (c *Collector) indexPass() ([]string, error) {
	all, err := c.idx.All()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, rec := range all {
		if c.sourceExists(rec.SrcRelPath) {
			continue
		}
		if err := c.idx.DeleteByID(rec.ID); err != nil {
			return nil, err
		}
		removed = append(removed, rec.SrcRelPath)
	}
	return removed, nil
}

func (c *Collector) sourceExists(srcRelPath string) bool {
	_, err := os.Stat(filepath.Join(c.inputDir, srcRelPath))
	return err == nil
}

// outputPass ensures the sentinel is present (or the directory is empty),
// then removes every regular output file that is not the sentinel,
// index.html, the timeline, or a known article's dst_rel_path.
func (c *Collector) outputPass() ([]string, error) {
	if err := c.out.EnsureSentinel(); err != nil {
		return nil, err
	}

	known := map[string]bool{
		output.SentinelName: true,
		output.IndexFile:    true,
		output.TimelineFile: true,
	}
	all, err := c.idx.All()
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		known[filepath.ToSlash(rec.DstRelPath)] = true
	}

	root := c.out.Root()
	var removed []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if known[rel] || isDerivedPage(rel) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed = append(removed, rel)
		return nil
	})
	if walkErr != nil {
		return nil, perrors.WrapError(walkErr, perrors.CategoryOutput, "walking output directory during gc").
			WithContext("root", root).Build()
	}
	return removed, nil
}

// isDerivedPage reports whether rel is one of the per-tag/per-series pages
// written by the output writer's WriteTagPage/WriteSeriesPage. The GC's
// output pass leaves these in place rather than removing them.
func isDerivedPage(rel string) bool {
	dir := filepath.ToSlash(filepath.Dir(rel))
	return dir == "tags" || dir == "series"
}

// cachePass deletes cache entries whose source file no longer exists.
func (c *Collector) cachePass() ([]string, error) {
	paths, err := c.cch.ListSrcPaths()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, p := range paths {
		if c.sourceExists(p) {
			continue
		}
		if err := c.cch.Delete(p); err != nil {
			return nil, err
		}
		removed = append(removed, p)
	}
	return removed, nil
}
