package main

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/poitch/engine/internal/input"
	"github.com/poitch/engine/internal/pipeline"
	"github.com/poitch/engine/internal/platformmsg"
	"github.com/poitch/engine/internal/scene"
)

// simProducer stands in for the script runtime. Every frame it hands the
// controller a small animated layer tree and immediately asks for the next
// frame, so the demo keeps a continuous stream of invalidations moving
// through the pipeline.
type simProducer struct {
	log zerolog.Logger

	mu      sync.Mutex
	ctrl    *pipeline.Controller
	metrics scene.ViewportMetrics
	frames  uint64
}

func (p *simProducer) attach(ctrl *pipeline.Controller) {
	p.mu.Lock()
	p.ctrl = ctrl
	p.mu.Unlock()
}

func (p *simProducer) BeginFrame(frameTime time.Time) {
	p.mu.Lock()
	ctrl := p.ctrl
	p.frames++
	n := p.frames
	p.mu.Unlock()
	if ctrl == nil {
		return
	}

	tree := &scene.LayerTree{
		Root: &scene.Layer{
			Label: "root",
			Children: []*scene.Layer{
				{Label: "background"},
				{Label: "spinner"},
			},
		},
	}
	// Every third frame stays empty to exercise the self-completing path.
	if n%3 != 0 {
		ctrl.Render(tree)
	}
	ctrl.ScheduleFrame()
}

func (p *simProducer) SetViewportMetrics(m scene.ViewportMetrics) {
	p.mu.Lock()
	p.metrics = m
	p.mu.Unlock()
	p.log.Debug().
		Int("width", m.PhysicalWidth).
		Int("height", m.PhysicalHeight).
		Float64("ratio", m.DevicePixelRatio).
		Msg("viewport metrics updated")
}

func (p *simProducer) DispatchPlatformMessage(msg *platformmsg.Message) {
	p.log.Debug().Str("channel", msg.Channel).Int("bytes", len(msg.Data)).Msg("platform message")
	msg.Response.CompleteEmpty()
}

func (p *simProducer) DispatchPointer(data input.PointerData) {
	p.log.Debug().Str("change", string(data.Change)).Msg("pointer event")
}

// simHost models the view host side of the invalidation protocol. The
// controller requests frames through RequestInvalidation; the host answers at
// its own cadence and never issues a second invalidation before the previous
// one was acknowledged.
type simHost struct {
	log      zerolog.Logger
	interval time.Duration
	metrics  scene.ViewportMetrics

	requested atomic.Bool
	inFlight  atomic.Bool
	version   atomic.Uint64

	mu   sync.Mutex
	sink func(*pipeline.Invalidation) error

	stop chan struct{}
	done chan struct{}
}

func newSimHost(metrics scene.ViewportMetrics, interval time.Duration, log zerolog.Logger) *simHost {
	h := &simHost{
		log:      log,
		interval: interval,
		metrics:  metrics,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	// Kick the first frame without waiting for a request.
	h.requested.Store(true)
	return h
}

func (h *simHost) RequestInvalidation() { h.requested.Store(true) }

// start begins delivering invalidations into sink on the host's cadence.
func (h *simHost) start(sink func(*pipeline.Invalidation) error) {
	h.mu.Lock()
	h.sink = sink
	h.mu.Unlock()
	go h.run()
}

func (h *simHost) run() {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *simHost) tick() {
	if h.inFlight.Load() || !h.requested.Load() {
		return
	}
	h.requested.Store(false)
	h.inFlight.Store(true)

	version := h.version.Add(1)
	metrics := h.metrics
	inv := pipeline.NewInvalidation(&metrics, version, func() {
		h.inFlight.Store(false)
	})

	h.mu.Lock()
	sink := h.sink
	h.mu.Unlock()
	if err := sink(inv); err != nil {
		h.log.Warn().Err(err).Msg("invalidation rejected")
		h.inFlight.Store(false)
	}
}

func (h *simHost) Close() {
	close(h.stop)
	<-h.done
}
