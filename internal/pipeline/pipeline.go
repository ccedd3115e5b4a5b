// Package pipeline implements the frame pipeline controller: it turns view
// host invalidations into a bounded stream of frames while a producer builds
// layer trees and a backend draws them on its own execution context.
//
// The controller is an actor. All pipeline state (depth counter, deferred
// slot, ready-to-draw window, viewport metrics) is owned by a single control
// task loop; invalidations, frame completions and schedule requests are
// posted to it and handled strictly in arrival order. Backpressure works by
// withholding acknowledgement: once MaxPipelineDepth frames are in flight the
// next invalidation is parked unacknowledged, and an edge-triggered host will
// not send another until it is acked.
package pipeline

import (
	"errors"
	"time"

	"github.com/poitch/engine/internal/scene"
)

const (
	// MaxPipelineDepth is the number of frames that may be in flight at once.
	MaxPipelineDepth = 3

	// RecoveryPipelineDepth is the depth the pipeline must drain to, after
	// saturating, before the deferred invalidation is acknowledged and new
	// frames are scheduled. Draining below MaxPipelineDepth is deliberately
	// not enough; the gap keeps a slow backend from thrashing between
	// saturated and runnable.
	RecoveryPipelineDepth = 1
)

var (
	ErrClosed               = errors.New("pipeline: controller closed")
	ErrNilInvalidation      = errors.New("pipeline: nil invalidation or ack")
	ErrInvalidationOverflow = errors.New("pipeline: deferred invalidation slot occupied")
)

// Producer builds frame content. BeginFrame runs the producer's frame
// callback for the given timestamp; the producer submits at most one layer
// tree per BeginFrame by calling Controller.Render from inside that callback.
type Producer interface {
	BeginFrame(frameTime time.Time)
	SetViewportMetrics(m scene.ViewportMetrics)
}

// Backend consumes layer trees on its own execution context. Draw must not
// block the caller; done fires exactly once when the scene has been presented
// (or determined unchanged).
type Backend interface {
	Draw(tree *scene.LayerTree, done func())
}

// ViewHost receives the schedule-frame signal. RequestInvalidation asks the
// host to deliver a future invalidation; it is idempotent while one request
// is outstanding because the controller gates it on a pending flag.
type ViewHost interface {
	RequestInvalidation()
}
