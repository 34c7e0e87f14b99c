package notifications

import (
	"sync"
)

var (
	globalMu   sync.RWMutex
	globalSink Sink = NewMemoryHub()
)

// SetSink replaces the shared sink instance and returns the previous
// sink. Passing nil restores the in-memory default.
func SetSink(s Sink) Sink {
	globalMu.Lock()
	defer globalMu.Unlock()
	prev := globalSink
	if s == nil {
		globalSink = NewMemoryHub()
	} else {
		globalSink = s
	}
	return prev
}

// GetSink returns the shared sink instance.
func GetSink() Sink {
	globalMu.RLock()
	s := globalSink
	globalMu.RUnlock()
	return s
}
