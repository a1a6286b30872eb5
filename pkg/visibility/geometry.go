package visibility

import (
	"maps"
	"slices"
)

// Geometry reports the laid-out position of mounted elements in content
// lines.
type Geometry interface {
	Bounds(h Handle) (top, height int, ok bool)
}

// GeometryPrimitive is a polling Primitive for renderers that know their own
// layout. Call Check after every layout or scroll change; each observer then
// delivers the initial state of newly observed handles and any transitions
// since the previous check.
type GeometryPrimitive struct {
	geom      Geometry
	observers []*geometryObserver
}

// NewGeometryPrimitive returns a primitive that reads element bounds from g.
func NewGeometryPrimitive(g Geometry) *GeometryPrimitive {
	return &GeometryPrimitive{geom: g}
}

// NewObserver implements Primitive.
func (p *GeometryPrimitive) NewObserver(root Viewport, opts Options, deliver func([]Entry)) Observer {
	o := &geometryObserver{
		prim:    p,
		root:    root,
		opts:    opts,
		deliver: deliver,
		targets: make(map[Handle]*targetState),
	}
	p.observers = append(p.observers, o)
	return o
}

// Check evaluates every live observer once.
func (p *GeometryPrimitive) Check() {
	for _, o := range p.observers {
		o.check()
	}
}

// Observers returns the number of live observers.
func (p *GeometryPrimitive) Observers() int {
	return len(p.observers)
}

type targetState struct {
	reported bool
	last     bool
}

type geometryObserver struct {
	prim    *GeometryPrimitive
	root    Viewport
	opts    Options
	deliver func([]Entry)
	targets map[Handle]*targetState
}

func (o *geometryObserver) Observe(h Handle) {
	if _, ok := o.targets[h]; !ok {
		o.targets[h] = &targetState{}
	}
}

func (o *geometryObserver) Unobserve(h Handle) {
	delete(o.targets, h)
}

func (o *geometryObserver) Disconnect() {
	o.targets = make(map[Handle]*targetState)
	o.prim.observers = slices.DeleteFunc(o.prim.observers, func(x *geometryObserver) bool { return x == o })
}

func (o *geometryObserver) check() {
	if len(o.targets) == 0 {
		return
	}
	top, height := o.root.Visible()
	lo := top - o.opts.Margin
	hi := top + height + o.opts.Margin

	var entries []Entry
	for _, h := range slices.Sorted(maps.Keys(o.targets)) {
		st := o.targets[h]
		bt, bh, ok := o.prim.geom.Bounds(h)
		vis := ok && Intersects(bt, bh, lo, hi, o.opts.Threshold)
		if st.reported && st.last == vis {
			continue
		}
		st.reported = true
		st.last = vis
		entries = append(entries, Entry{Handle: h, Intersecting: vis})
	}
	if len(entries) > 0 {
		o.deliver(entries)
	}
}

// Intersects reports whether the element spanning [top, top+height) meets
// the window [lo, hi) at the given threshold.
func Intersects(top, height, lo, hi int, threshold float64) bool {
	if height <= 0 {
		return top >= lo && top < hi && threshold <= 0
	}
	overlap := min(top+height, hi) - max(top, lo)
	if overlap <= 0 {
		return false
	}
	if threshold <= 0 {
		return true
	}
	return float64(overlap)/float64(height) >= threshold
}
