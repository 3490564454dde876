// extsink.go — sink fan-out so other packages can mirror log lines, e.g.
// into the shared-storage extension-logs ring for the companion app.
package logging

import "sync"

// Sink receives every emitted log line. Implementations must not call back
// into this package.
type Sink interface {
	Consume(category Category, level, message string)
}

var (
	sinksMu sync.RWMutex
	sinks   []Sink
)

// RegisterSink attaches a sink to all category loggers.
func RegisterSink(s Sink) {
	sinksMu.Lock()
	sinks = append(sinks, s)
	sinksMu.Unlock()
}

// ResetSinks removes all registered sinks. Test helper.
func ResetSinks() {
	sinksMu.Lock()
	sinks = nil
	sinksMu.Unlock()
}

func notifySinks(category Category, level, message string) {
	sinksMu.RLock()
	defer sinksMu.RUnlock()
	for _, s := range sinks {
		s.Consume(category, level, message)
	}
}
