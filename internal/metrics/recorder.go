package metrics

import "time"

// EventOutcomeLabel categorizes the terminal state of one pipeline event.
type EventOutcomeLabel string

const (
	EventOutcomeWritten   EventOutcomeLabel = "written"
	EventOutcomeDraft     EventOutcomeLabel = "draft"
	EventOutcomeDeleted   EventOutcomeLabel = "deleted"
	EventOutcomeRenderErr EventOutcomeLabel = "render_error"
	EventOutcomeIndexErr  EventOutcomeLabel = "index_error"
)

// CacheResultLabel categorizes a render-cache probe.
type CacheResultLabel string

const (
	CacheResultHit  CacheResultLabel = "hit"
	CacheResultMiss CacheResultLabel = "miss"
)

// Recorder defines observability hooks for the compile pipeline, render
// cache, and garbage collector. Implementations must be safe for nil
// receivers (see NoopRecorder) so components can be constructed without a
// metrics backend configured.
type Recorder interface {
	ObserveEventDuration(kind string, d time.Duration)
	IncEventOutcome(outcome EventOutcomeLabel)
	IncCacheResult(result CacheResultLabel)
	ObserveRenderDuration(d time.Duration)
	SetSubscriberCount(topic string, n int)
	IncPublished(topic string)
	IncGCRemoved(pass string)
	ObserveGCDuration(d time.Duration)
	SetWatcherPendingEvents(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveEventDuration(string, time.Duration) {}
func (NoopRecorder) IncEventOutcome(EventOutcomeLabel)           {}
func (NoopRecorder) IncCacheResult(CacheResultLabel)             {}
func (NoopRecorder) ObserveRenderDuration(time.Duration)         {}
func (NoopRecorder) SetSubscriberCount(string, int)              {}
func (NoopRecorder) IncPublished(string)                         {}
func (NoopRecorder) IncGCRemoved(string)                         {}
func (NoopRecorder) ObserveGCDuration(time.Duration)             {}
func (NoopRecorder) SetWatcherPendingEvents(int)                 {}
