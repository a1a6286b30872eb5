package visibility

import (
	"github.com/vanderheijden86/cardtree/pkg/debug"
)

// Multiplexer maps handles to visibility callbacks over one Observer.
// It is not safe for concurrent use; drive it from the UI event loop.
type Multiplexer struct {
	observer  Observer
	callbacks map[Handle]func(visible bool)
	closed    bool
}

// NewMultiplexer creates the single observer for root.
func NewMultiplexer(p Primitive, root Viewport, opts Options) *Multiplexer {
	m := &Multiplexer{callbacks: make(map[Handle]func(bool))}
	m.observer = p.NewObserver(root, opts, m.dispatch)
	return m
}

// Observe registers cb for h and starts observing it. Callbacks must be
// idempotent: the observer may report the same state more than once.
// Observing an already observed handle replaces its callback.
func (m *Multiplexer) Observe(h Handle, cb func(visible bool)) {
	if m.closed || cb == nil {
		return
	}
	_, exists := m.callbacks[h]
	m.callbacks[h] = cb
	if !exists {
		m.observer.Observe(h)
	}
}

// Unobserve stops observing h. Unknown handles are ignored.
func (m *Multiplexer) Unobserve(h Handle) {
	if _, ok := m.callbacks[h]; !ok {
		return
	}
	delete(m.callbacks, h)
	m.observer.Unobserve(h)
}

// ObservedCount returns the number of registered handles.
func (m *Multiplexer) ObservedCount() int {
	return len(m.callbacks)
}

// Close disconnects the observer and drops every callback.
func (m *Multiplexer) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.observer.Disconnect()
	m.callbacks = make(map[Handle]func(bool))
}

func (m *Multiplexer) dispatch(entries []Entry) {
	for _, e := range entries {
		cb, ok := m.callbacks[e.Handle]
		if !ok {
			// entry raced an unmount
			debug.Log("visibility: dropping entry for unobserved handle %d", e.Handle)
			continue
		}
		cb(e.Intersecting)
	}
}
