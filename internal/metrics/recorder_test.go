package metrics

import "time"

type testRecorder struct {
	eventDurations map[string]int
	eventOutcomes  map[EventOutcomeLabel]int
	cacheResults   map[CacheResultLabel]int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{
		eventDurations: map[string]int{},
		eventOutcomes:  map[EventOutcomeLabel]int{},
		cacheResults:   map[CacheResultLabel]int{},
	}
}

func (t *testRecorder) ObserveEventDuration(kind string, _ time.Duration) { t.eventDurations[kind]++ }
func (t *testRecorder) IncEventOutcome(outcome EventOutcomeLabel)         { t.eventOutcomes[outcome]++ }
func (t *testRecorder) IncCacheResult(result CacheResultLabel)            { t.cacheResults[result]++ }
func (t *testRecorder) ObserveRenderDuration(time.Duration)               {}
func (t *testRecorder) SetSubscriberCount(string, int)                   {}
func (t *testRecorder) IncPublished(string)                              {}
func (t *testRecorder) IncGCRemoved(string)                              {}
func (t *testRecorder) ObserveGCDuration(time.Duration)                  {}
func (t *testRecorder) SetWatcherPendingEvents(int)                      {}
