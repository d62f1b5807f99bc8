// Package metrics records build and rebuild observations.
//
// Components take a Recorder through their options and default to
// NoopRecorder, so metrics stay optional for tests and one-shot builds.
package metrics

import "time"

// Rebuild sources.
const (
	SourceTemplate = "template"
	SourceData     = "data"
	SourceAsset    = "asset"
)

// Recorder receives build observations.
type Recorder interface {
	ObservePageBuild(kind string, d time.Duration, ok bool)
	IncRebuild(source string, pages int)
	IncRebuildFailure(source string)
	ObserveScan(d time.Duration, templates int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObservePageBuild(string, time.Duration, bool) {}
func (NoopRecorder) IncRebuild(string, int)                      {}
func (NoopRecorder) IncRebuildFailure(string)                    {}
func (NoopRecorder) ObserveScan(time.Duration, int)              {}
