package scene

import "testing"

func TestLayerCount(t *testing.T) {
	if got := (*LayerTree)(nil).LayerCount(); got != 0 {
		t.Fatalf("nil tree count got=%d", got)
	}
	tree := &LayerTree{Root: &Layer{
		Label: "root",
		Children: []*Layer{
			{Label: "background"},
			{Label: "content", Children: []*Layer{{Label: "text"}}},
		},
	}}
	if got := tree.LayerCount(); got != 4 {
		t.Fatalf("layer count got=%d want=4", got)
	}
}

func TestViewportMetricsSize(t *testing.T) {
	m := ViewportMetrics{PhysicalWidth: 1080, PhysicalHeight: 1920, DevicePixelRatio: 2.0}
	if s := m.Size(); s.Width != 1080 || s.Height != 1920 {
		t.Fatalf("size got=%+v", s)
	}
}
