package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/poitch/engine/internal/observability"
	"github.com/poitch/engine/internal/scene"
	"github.com/poitch/engine/internal/taskrunner"
)

// Config wires a Controller to its collaborators.
type Config struct {
	Producer Producer
	Backend  Backend
	Host     ViewHost
	Logger   zerolog.Logger

	// Strict makes precondition violations panic instead of clamping.
	// Tests and debug builds set it; release embedders leave it off.
	Strict bool

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// handle is the weak back-reference the backend completion carries. The
// backend may finish a draw after the controller is gone; resolving a dead
// handle turns the completion into a no-op instead of a crash.
type handle struct {
	mu sync.Mutex
	c  *Controller
}

func (h *handle) resolve() *Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.c
}

func (h *handle) invalidate() {
	h.mu.Lock()
	h.c = nil
	h.mu.Unlock()
}

// Controller owns the pipeline state machine. All fields below the runner are
// control-context state: they are touched only from tasks running on ctl,
// except Render, which the producer must call from inside BeginFrame.
type Controller struct {
	producer Producer
	backend  Backend
	host     ViewHost
	log      zerolog.Logger
	strict   bool
	now      func() time.Time

	ctl  *taskrunner.Runner
	self *handle

	depth        int
	deferred     *Invalidation
	readyToDraw  bool
	viewport     scene.ViewportMetrics
	sceneVersion uint64
	pending      bool
	frameStart   time.Time
	closed       bool
	counters     counters

	closeOnce sync.Once
	finalMu   sync.Mutex
	final     Stats
}

// NewController builds and starts a controller. The control task loop is
// spawned here; Close stops it.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Producer == nil || cfg.Backend == nil || cfg.Host == nil {
		return nil, fmt.Errorf("pipeline: producer, backend and host are required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		producer: cfg.Producer,
		backend:  cfg.Backend,
		host:     cfg.Host,
		log:      cfg.Logger,
		strict:   cfg.Strict,
		now:      now,
		ctl:      taskrunner.New("pipeline-control"),
	}
	c.self = &handle{c: c}
	if err := c.ctl.Start(); err != nil {
		return nil, err
	}
	return c, nil
}

// OnInvalidation accepts one redraw request from the view host. The request's
// ack token fires exactly once: before this call's task finishes when there
// is capacity, or later once the pipeline drains to RecoveryPipelineDepth.
// Returns ErrClosed without accepting the request if the controller has been
// closed; the caller keeps ownership of the token in that case.
func (c *Controller) OnInvalidation(inv *Invalidation) error {
	if inv == nil || inv.Ack == nil {
		return ErrNilInvalidation
	}
	if !c.ctl.Post(func() { c.handleInvalidation(inv) }) {
		return ErrClosed
	}
	return nil
}

// ScheduleFrame requests a future invalidation cycle from the view host.
// No-op while a cycle is already pending or a deferred invalidation exists.
func (c *Controller) ScheduleFrame() {
	c.ctl.Post(c.scheduleFrame)
}

// Render accepts the layer tree for the frame currently being built. It must
// be called from inside the producer's BeginFrame callback; at most the first
// call per frame is honored and anything outside the ready-to-draw window is
// dropped silently.
func (c *Controller) Render(tree *scene.LayerTree) {
	if tree == nil {
		return
	}
	if !c.readyToDraw {
		c.counters.RendersDropped++
		observability.RecordRenderDropped()
		c.log.Debug().Uint64("scene_version", tree.SceneVersion).Msg("render outside frame window dropped")
		return
	}
	c.readyToDraw = false

	tree.ConstructionTime = c.now().Sub(c.frameStart)
	tree.FrameSize = c.viewport.Size()
	tree.SceneVersion = c.sceneVersion
	c.counters.FramesSubmitted++
	observability.RecordFrameConstruction(tree.ConstructionTime)

	// The backend runs on its own context and may outlive this controller;
	// the completion resolves the weak handle and gives up if it is dead.
	self := c.self
	c.backend.Draw(tree, func() {
		if ctrl := self.resolve(); ctrl != nil {
			ctrl.postFrameComplete()
		}
	})
}

// Close tears the controller down: any deferred invalidation is acknowledged
// (the host is still owed exactly one ack), the control loop is drained and
// stopped, and the weak handle is invalidated so in-flight draw completions
// become no-ops. Idempotent.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.ctl.Post(func() {
			c.closed = true
			if c.deferred != nil {
				inv := c.deferred
				c.deferred = nil
				inv.Ack.Ack()
				c.log.Debug().Str("trace_id", inv.TraceID).Msg("deferred invalidation acknowledged at close")
			}
			c.finalMu.Lock()
			c.final = c.snapshot()
			c.finalMu.Unlock()
		})
		c.ctl.Stop()
		c.self.invalidate()
	})
}

// Stats returns a snapshot of the pipeline state. It must not be called from
// producer callbacks (it round-trips through the control loop). After Close
// it returns the final pre-teardown snapshot.
func (c *Controller) Stats() Stats {
	out := make(chan Stats, 1)
	if c.ctl.Post(func() { out <- c.snapshot() }) {
		return <-out
	}
	c.finalMu.Lock()
	defer c.finalMu.Unlock()
	return c.final
}

// --- control-context handlers ---

func (c *Controller) handleInvalidation(inv *Invalidation) {
	c.pending = false

	if c.closed {
		// Raced with Close; ack so the single-use token is not stranded.
		inv.Ack.Ack()
		return
	}

	// The next frame must see current metrics even if this request ends up
	// deferred, so propagation is unconditional and happens first.
	if inv.Metrics != nil {
		c.viewport = *inv.Metrics
		c.producer.SetViewportMetrics(c.viewport)
	}
	c.sceneVersion = inv.SceneVersion

	if c.depth >= MaxPipelineDepth {
		if c.deferred != nil {
			c.violation(ErrInvalidationOverflow.Error())
			// Clamp: keep the occupant, release the intruder's token.
			inv.Ack.Ack()
			return
		}
		c.deferred = inv
		c.counters.InvalidationsDeferred++
		observability.RecordInvalidationDeferred()
		c.log.Debug().
			Str("trace_id", inv.TraceID).
			Int("depth", c.depth).
			Msg("pipeline saturated, invalidation deferred")
		return
	}

	c.depth++
	observability.SetPipelineDepth(c.depth)
	c.beginFrame()
	inv.Ack.Ack()
}

func (c *Controller) beginFrame() {
	if c.depth <= 0 || c.depth > MaxPipelineDepth {
		c.violation(fmt.Sprintf("begin frame with depth %d", c.depth))
		if c.depth <= 0 {
			c.depth = 1
		} else {
			c.depth = MaxPipelineDepth
		}
	}
	if c.readyToDraw {
		c.violation("begin frame while previous frame window still open")
	}

	c.readyToDraw = true
	c.frameStart = c.now()
	c.counters.FramesStarted++
	observability.RecordFrameStarted()

	c.producer.BeginFrame(c.frameStart)

	wasReady := c.readyToDraw
	c.readyToDraw = false
	// Still ready means the producer submitted nothing: no draw will reach
	// the backend, so no completion will ever arrive. Self-acknowledge.
	if wasReady {
		c.counters.FramesEmpty++
		observability.RecordFrameCompleted("empty")
		c.completeFrame()
	}
}

func (c *Controller) postFrameComplete() {
	c.ctl.Post(func() {
		observability.RecordFrameCompleted("submitted")
		c.completeFrame()
	})
}

func (c *Controller) completeFrame() {
	if c.depth <= 0 {
		c.violation("frame complete with empty pipeline")
		return
	}
	c.depth--
	c.counters.FramesCompleted++
	observability.SetPipelineDepth(c.depth)

	if c.deferred != nil && c.depth <= RecoveryPipelineDepth {
		inv := c.deferred
		c.deferred = nil
		c.counters.InvalidationsDrained++
		observability.RecordInvalidationDrained()
		// Schedule before acking: the ack can make the host issue a fresh
		// invalidation immediately, and the pending flag must already be
		// primed or that cycle could be spuriously dropped.
		c.scheduleFrame()
		inv.Ack.Ack()
		c.log.Debug().
			Str("trace_id", inv.TraceID).
			Int("depth", c.depth).
			Msg("pipeline recovered, deferred invalidation acknowledged")
	}
}

func (c *Controller) scheduleFrame() {
	if c.pending || c.deferred != nil {
		return
	}
	c.pending = true
	c.host.RequestInvalidation()
}

func (c *Controller) violation(msg string) {
	c.counters.Violations++
	observability.RecordPipelineViolation()
	if c.strict {
		panic("pipeline: " + msg)
	}
	c.log.Error().Msg("pipeline violation: " + msg)
}
