// Package progress reports series ingestion and ordering progress to an observer.
package progress

import (
	"time"

	"github.com/charmbracelet/log"
)

// Observer receives progress events. OnSnapshotRead is called from the reading goroutines as files
// complete, in any order; the other events come from one goroutine.
type Observer interface {
	OnSeriesStart(total int)
	OnSnapshotRead(index int, path string)
	OnMeshAdapted(index int)
	OnSeriesDone(total int, elapsed time.Duration)
	OnOrderingStart(n, ncurve int)
	OnOrderingDone(n, ncurve int, elapsed time.Duration, cached bool)
}

// Noop ignores every event
type Noop struct{}

func (Noop) OnSeriesStart(int)                            {}
func (Noop) OnSnapshotRead(int, string)                   {}
func (Noop) OnMeshAdapted(int)                            {}
func (Noop) OnSeriesDone(int, time.Duration)              {}
func (Noop) OnOrderingStart(int, int)                     {}
func (Noop) OnOrderingDone(int, int, time.Duration, bool) {}

// LogObserver writes events to a charm logger, per snapshot events at debug level
type LogObserver struct {
	Logger *log.Logger
}

func NewLogObserver(l *log.Logger) *LogObserver {
	if l == nil {
		l = log.Default()
	}
	return &LogObserver{Logger: l}
}

func (o *LogObserver) OnSeriesStart(total int) {
	o.Logger.Info("reading snapshots", "count", total)
}

func (o *LogObserver) OnSnapshotRead(index int, path string) {
	o.Logger.Debug("read snapshot", "index", index, "path", path)
}

func (o *LogObserver) OnMeshAdapted(index int) {
	o.Logger.Info("mesh adapted", "snapshot", index)
}

func (o *LogObserver) OnSeriesDone(total int, elapsed time.Duration) {
	o.Logger.Info("read snapshots", "count", total, "duration", elapsed.Round(time.Millisecond))
}

func (o *LogObserver) OnOrderingStart(n, ncurve int) {
	o.Logger.Debug("computing orderings", "points", n, "curves", ncurve)
}

func (o *LogObserver) OnOrderingDone(n, ncurve int, elapsed time.Duration, cached bool) {
	o.Logger.Info("orderings ready", "points", n, "curves", ncurve,
		"cached", cached, "duration", elapsed.Round(time.Millisecond))
}
