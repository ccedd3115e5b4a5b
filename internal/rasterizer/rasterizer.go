// Package rasterizer is the rendering backend. It consumes layer trees on a
// dedicated task loop so drawing never blocks the control context, and fires
// one completion per draw. The present step is pluggable; the default records
// the frame and returns, which is enough for hosts that only need pipeline
// behavior (tests, headless runs, the demo binary).
package rasterizer

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/poitch/engine/internal/observability"
	"github.com/poitch/engine/internal/scene"
	"github.com/poitch/engine/internal/taskrunner"
)

// Presenter pushes one stamped layer tree at the output surface.
type Presenter func(tree *scene.LayerTree)

// Stats is a snapshot of backend activity.
type Stats struct {
	FramesPresented  uint64
	LastFrameSize    scene.Size
	LastSceneVersion uint64
	LastLayerCount   int
}

// Rasterizer owns the backend execution context.
type Rasterizer struct {
	runner  *taskrunner.Runner
	log     zerolog.Logger
	present Presenter

	mu    sync.Mutex
	stats Stats

	closeOnce sync.Once
}

// New builds and starts a rasterizer. A nil presenter gets the recording
// default. Close stops the backend loop.
func New(present Presenter, log zerolog.Logger) (*Rasterizer, error) {
	r := &Rasterizer{
		runner: taskrunner.New("rasterizer"),
		log:    log,
	}
	if present == nil {
		present = func(*scene.LayerTree) {}
	}
	r.present = present
	if err := r.runner.Start(); err != nil {
		return nil, err
	}
	return r, nil
}

// Draw schedules one layer tree for presentation. The tree's ownership moves
// to the backend here; done fires on the backend context after the present
// step. Draws posted after Close are dropped and their completions never
// fire; by then nothing is left upstream to hear them.
func (r *Rasterizer) Draw(tree *scene.LayerTree, done func()) {
	posted := r.runner.Post(func() {
		start := time.Now()
		r.present(tree)

		r.mu.Lock()
		r.stats.FramesPresented++
		r.stats.LastFrameSize = tree.FrameSize
		r.stats.LastSceneVersion = tree.SceneVersion
		r.stats.LastLayerCount = tree.LayerCount()
		r.mu.Unlock()

		observability.RecordFramePresented(time.Since(start))
		r.log.Debug().
			Uint64("scene_version", tree.SceneVersion).
			Int("layers", tree.LayerCount()).
			Dur("construction", tree.ConstructionTime).
			Msg("frame presented")

		if done != nil {
			done()
		}
	})
	if !posted {
		r.log.Warn().Uint64("scene_version", tree.SceneVersion).Msg("draw after teardown dropped")
	}
}

// Stats returns a snapshot of backend activity.
func (r *Rasterizer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Close drains queued draws and stops the backend loop. Idempotent.
func (r *Rasterizer) Close() {
	r.closeOnce.Do(r.runner.Stop)
}
