package rasterizer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poitch/engine/internal/scene"
	"github.com/poitch/engine/internal/testutil/testlog"
)

func TestDrawPresentsAndCompletesInOrder(t *testing.T) {
	testlog.Start(t)
	var mu sync.Mutex
	var presented []uint64
	r, err := New(func(tree *scene.LayerTree) {
		mu.Lock()
		presented = append(presented, tree.SceneVersion)
		mu.Unlock()
	}, testlog.Logger(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer r.Close()

	var completions atomic.Int64
	for i := 1; i <= 3; i++ {
		tree := &scene.LayerTree{
			Root:         &scene.Layer{Label: "root", Children: []*scene.Layer{{Label: "child"}}},
			SceneVersion: uint64(i),
			FrameSize:    scene.Size{Width: 100, Height: 200},
		}
		r.Draw(tree, func() { completions.Add(1) })
	}

	deadline := time.Now().Add(2 * time.Second)
	for completions.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if completions.Load() != 3 {
		t.Fatalf("completions got=%d want=3", completions.Load())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(presented) != 3 || presented[0] != 1 || presented[2] != 3 {
		t.Fatalf("present order got=%v", presented)
	}

	st := r.Stats()
	if st.FramesPresented != 3 || st.LastSceneVersion != 3 || st.LastLayerCount != 2 {
		t.Fatalf("stats got=%+v", st)
	}
	if st.LastFrameSize != (scene.Size{Width: 100, Height: 200}) {
		t.Fatalf("frame size got=%+v", st.LastFrameSize)
	}
}

func TestDrawAfterCloseIsDropped(t *testing.T) {
	testlog.Start(t)
	r, err := New(nil, testlog.Logger(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	r.Close()
	r.Close() // idempotent

	var completed atomic.Bool
	r.Draw(&scene.LayerTree{SceneVersion: 9}, func() { completed.Store(true) })
	time.Sleep(10 * time.Millisecond)
	if completed.Load() {
		t.Fatalf("completion fired after teardown")
	}
	if st := r.Stats(); st.FramesPresented != 0 {
		t.Fatalf("stats mutated after teardown: %+v", st)
	}
}
