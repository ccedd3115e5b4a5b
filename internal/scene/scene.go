// Package scene holds the value objects handed through the frame pipeline:
// viewport metrics coming in from the view host and the layer tree going out
// to the rendering backend. A LayerTree has exactly one owner at any point in
// its lifetime (producer, then controller, then backend); it is never shared.
package scene

import "time"

// ViewportMetrics describes the physical output surface. The controller
// replaces its copy wholesale on each invalidation that carries metrics.
type ViewportMetrics struct {
	PhysicalWidth    int
	PhysicalHeight   int
	DevicePixelRatio float64
}

// Size returns the physical frame size described by the metrics.
func (m ViewportMetrics) Size() Size {
	return Size{Width: m.PhysicalWidth, Height: m.PhysicalHeight}
}

// Size is a frame size in physical pixels.
type Size struct {
	Width  int
	Height int
}

// Layer is one node of a layer tree. The pipeline treats layer content as
// opaque; Label and Children exist so backends and tests can walk the tree.
type Layer struct {
	Label    string
	Children []*Layer
}

// LayerTree is the renderable output of one frame. The controller stamps
// ConstructionTime, FrameSize and SceneVersion before the backend hand-off.
type LayerTree struct {
	Root *Layer

	ConstructionTime time.Duration
	FrameSize        Size
	SceneVersion     uint64
}

// LayerCount walks the tree and returns the number of layers.
func (t *LayerTree) LayerCount() int {
	if t == nil || t.Root == nil {
		return 0
	}
	return countLayers(t.Root)
}

func countLayers(l *Layer) int {
	n := 1
	for _, child := range l.Children {
		n += countLayers(child)
	}
	return n
}
