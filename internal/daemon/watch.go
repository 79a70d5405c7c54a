package daemon

import (
	"context"
	"time"

	"git.home.luguber.info/nixcloud/pankat/internal/watcher"
)

// Watch starts the recursive filesystem watcher over the input directory
// and drains its event stream into the compile pipeline, one event at a
// time, until ctx is canceled. Callers are expected to have already run
// BulkBuild once to prime the index. Watch blocks until both the watcher
// and the drain loop have stopped: the watcher is closed first, then the
// worker finishes draining whatever is already queued.
func (d *Daemon) Watch(ctx context.Context) error {
	w, err := watcher.New(d.cfg.InputDir, d.logger)
	if err != nil {
		return err
	}

	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		w.Run(ctx)
	}()

	events := w.Events()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for ev := range events {
			d.Recorder.SetWatcherPendingEvents(len(events))
			start := time.Now()
			d.Pipeline.Handle(ctx, ev)
			d.Recorder.ObserveEventDuration(ev.Kind.String(), time.Since(start))
		}
	}()

	<-ctx.Done()
	_ = w.Close()
	<-watcherDone
	<-workerDone
	return nil
}
