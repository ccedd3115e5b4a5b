package pipeline

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/poitch/engine/internal/scene"
)

// AckToken is a consumable, one-shot acknowledgement. The first Ack wins;
// later calls are no-ops. This is what makes "exactly one ack per
// invalidation" a property of the type instead of a convention.
type AckToken struct {
	fn       func()
	consumed atomic.Bool
}

func NewAckToken(fn func()) *AckToken {
	return &AckToken{fn: fn}
}

// Ack consumes the token. Returns false when the token was already consumed
// (or is nil), in which case the underlying callback does not fire again.
func (t *AckToken) Ack() bool {
	if t == nil {
		return false
	}
	if !t.consumed.CompareAndSwap(false, true) {
		return false
	}
	if t.fn != nil {
		t.fn()
	}
	return true
}

// Consumed reports whether Ack has fired.
func (t *AckToken) Consumed() bool {
	return t != nil && t.consumed.Load()
}

// Invalidation is one redraw request from the view host. Metrics is optional;
// SceneVersion is monotonic and last-write-wins. The Ack token fires exactly
// once: immediately when the controller has capacity, later when the request
// had to be deferred, or during Close if the controller is torn down first.
type Invalidation struct {
	Metrics      *scene.ViewportMetrics
	SceneVersion uint64
	Ack          *AckToken

	// TraceID correlates an invalidation across log lines.
	TraceID string
}

// NewInvalidation builds a request with a fresh trace ID and a single-use
// ack token wrapping fn.
func NewInvalidation(metrics *scene.ViewportMetrics, version uint64, fn func()) *Invalidation {
	return &Invalidation{
		Metrics:      metrics,
		SceneVersion: version,
		Ack:          NewAckToken(fn),
		TraceID:      uuid.NewString(),
	}
}
