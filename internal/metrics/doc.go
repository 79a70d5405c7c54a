// Package metrics provides an observability framework for pankat's compile
// pipeline, render cache, and garbage collector.
//
// # Design Philosophy
//
// This package implements the Null Object pattern to enable metrics
// collection without requiring explicit nil checks throughout the codebase.
// By default, all components use NoopRecorder, which implements the Recorder
// interface with no-op methods.
//
// # Usage Pattern
//
// Components receive a Recorder through dependency injection:
//
//	type Pipeline struct {
//	    recorder metrics.Recorder
//	}
//
//	func New() *Pipeline {
//	    return &Pipeline{recorder: metrics.NoopRecorder{}}
//	}
//
// To enable metrics, swap NoopRecorder for a real implementation:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	p := New().WithRecorder(recorder)
package metrics
