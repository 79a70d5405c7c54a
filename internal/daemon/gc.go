package daemon

import (
	"time"

	"git.home.luguber.info/nixcloud/pankat/internal/gc"
)

// RunGC executes the collector's passes and records their outcome on the
// daemon's metrics recorder: one timing observation for the whole run plus
// one counter increment per removed/pruned item, broken down by pass.
func (d *Daemon) RunGC(pruneOrphanTags bool) (gc.Report, error) {
	start := time.Now()
	report, err := d.GC.WithPruneOrphanTags(pruneOrphanTags).Run()
	d.Recorder.ObserveGCDuration(time.Since(start))
	if err != nil {
		return report, err
	}

	for range report.IndexRemoved {
		d.Recorder.IncGCRemoved("index")
	}
	for range report.OutputRemoved {
		d.Recorder.IncGCRemoved("output")
	}
	for range report.CacheRemoved {
		d.Recorder.IncGCRemoved("cache")
	}
	for range report.TagsPruned {
		d.Recorder.IncGCRemoved("tags")
	}

	return report, nil
}
