package daemon

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
	"git.home.luguber.info/nixcloud/pankat/internal/watcher"
)

// BulkBuild walks the input tree and feeds every .mdwn file into the
// pipeline as a synthetic create event, for the one-shot "build" command
// and for priming the index before the watcher takes over in "watch" mode.
// A cold-start pass has no prior filesystem events to react to, so it
// walks the tree directly rather than going through the watcher.
func (d *Daemon) BulkBuild(ctx context.Context) (int, error) {
	var paths []string
	err := filepath.WalkDir(d.cfg.InputDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if !strings.HasSuffix(entry.Name(), ".mdwn") {
			return nil
		}
		rel, relErr := filepath.Rel(d.cfg.InputDir, path)
		if relErr != nil {
			return relErr
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return 0, perrors.WrapError(err, perrors.CategoryOutput, "walking input directory").
			WithContext("input_dir", d.cfg.InputDir).Build()
	}

	for _, rel := range paths {
		select {
		case <-ctx.Done():
			return len(paths), ctx.Err()
		default:
		}
		start := time.Now()
		d.Pipeline.Handle(ctx, watcher.Event{Kind: watcher.Create, Path: rel})
		d.Recorder.ObserveEventDuration(watcher.Create.String(), time.Since(start))
	}
	return len(paths), nil
}
