// Package event provides an ordered one-to-many notification primitive.
//
// An Event holds a list of listener registrations keyed by an owner value.
// Emissions invoke every registered callback in registration order. Owners
// deregister explicitly with RemoveListener; a listener that belongs to a
// torn-down owner must be removed by that owner's teardown path.
package event

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var (
	logMu sync.RWMutex
	log   = zerolog.Nop()
)

// SetLogger sets the package logger used to report recovered listener
// panics. The default logger discards everything.
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	log = l
	logMu.Unlock()
}

func logger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return log
}

type registration[D any] struct {
	owner    any
	callback func(D)
}

// Event is a one-to-many notification bus carrying payloads of type D.
//
// The zero value is ready to use. All methods are safe for concurrent use.
// Owners must be comparable values; pointers are the usual choice.
type Event[D any] struct {
	mu        sync.Mutex
	listeners []registration[D]
}

// AddListener registers callback to run on every subsequent emission.
// The owner value is only used as a removal key; the same owner may hold
// several registrations.
func (e *Event[D]) AddListener(owner any, callback func(D)) {
	if callback == nil {
		return
	}
	e.mu.Lock()
	e.listeners = append(e.listeners, registration[D]{owner: owner, callback: callback})
	e.mu.Unlock()
}

// RemoveListener removes every registration held by owner. It is
// idempotent and safe to call during an emission: the emission in flight
// works on its own snapshot of the list.
func (e *Event[D]) RemoveListener(owner any) {
	e.mu.Lock()
	kept := e.listeners[:0]
	for _, reg := range e.listeners {
		if reg.owner != owner {
			kept = append(kept, reg)
		}
	}
	for i := len(kept); i < len(e.listeners); i++ {
		e.listeners[i] = registration[D]{}
	}
	e.listeners = kept
	e.mu.Unlock()
}

// Emit invokes every registered callback with data, in registration
// order. A panicking callback is recovered and logged; the remaining
// listeners still run.
func (e *Event[D]) Emit(data D) {
	e.mu.Lock()
	snapshot := make([]registration[D], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, reg := range snapshot {
		invoke(reg.callback, data)
	}
}

func invoke[D any](callback func(D), data D) {
	defer func() {
		if r := recover(); r != nil {
			l := logger()
			l.Error().
				Str("panic", fmt.Sprint(r)).
				Msg("event listener panicked")
		}
	}()
	callback(data)
}

// ListenerCount returns the number of live registrations.
func (e *Event[D]) ListenerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// Reset drops all registrations.
func (e *Event[D]) Reset() {
	e.mu.Lock()
	e.listeners = nil
	e.mu.Unlock()
}
