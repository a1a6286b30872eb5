// Package visibility multiplexes element visibility questions onto a single
// viewport-intersection observer.
//
// The board mounts a few dozen rows at a time and each one wants to know when
// it scrolls into view. Rather than one subscription per row, a Multiplexer
// owns exactly one Observer and fans its entries out to per-handle callbacks.
package visibility

// Handle identifies an observed element. Handles are allocated by the
// renderer and never reused while mounted.
type Handle uint64

// Entry reports the intersection state of one handle.
type Entry struct {
	Handle       Handle
	Intersecting bool
}

// Options configure an observer.
type Options struct {
	// Margin grows the viewport by this many lines on both edges, so rows
	// report slightly before they scroll in.
	Margin int
	// Threshold is the minimum visible fraction of an element's height for it
	// to count as intersecting. Zero means any overlap.
	Threshold float64
}

// DefaultOptions returns a two-line margin and any-overlap threshold.
func DefaultOptions() Options {
	return Options{Margin: 2, Threshold: 0}
}

// Viewport is the observation root, typically the scroll container.
type Viewport interface {
	// Visible returns the first visible line and the number of visible lines.
	Visible() (top, height int)
}

// Observer is a single intersection subscription.
type Observer interface {
	Observe(h Handle)
	Unobserve(h Handle)
	Disconnect()
}

// Primitive creates observers. deliver is invoked with batches of entries on
// the caller's event loop; it may contain redundant entries.
type Primitive interface {
	NewObserver(root Viewport, opts Options, deliver func([]Entry)) Observer
}
