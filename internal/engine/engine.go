// Package engine assembles one view: the frame pipeline controller, the
// rasterizer backend, the platform message router with its asset and
// text-input handlers, and the input dispatcher. It is the piece the
// embedding layer talks to.
package engine

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/poitch/engine/internal/assets"
	"github.com/poitch/engine/internal/input"
	"github.com/poitch/engine/internal/pipeline"
	"github.com/poitch/engine/internal/platformmsg"
	"github.com/poitch/engine/internal/rasterizer"
	"github.com/poitch/engine/internal/textinput"
)

// Platform message channels forming the producer-facing contract.
const (
	AssetChannel     = "engine/assets"
	KeyEventChannel  = "engine/keyevent"
	TextInputChannel = "engine/textinput"
)

// Producer is the script runtime as the engine sees it: the pipeline's frame
// callbacks plus the inbound halves of the message and pointer bridges.
type Producer interface {
	pipeline.Producer
	DispatchPlatformMessage(msg *platformmsg.Message)
	DispatchPointer(data input.PointerData)
}

// Config wires one Engine.
type Config struct {
	Producer Producer
	Host     pipeline.ViewHost
	Logger   zerolog.Logger

	// Bundle is an optional zip asset bundle served on AssetChannel.
	Bundle []byte

	// Editors is the optional host IME surface behind TextInputChannel.
	Editors textinput.EditorProvider

	// Present overrides the rasterizer's present step (tests, embedders
	// with a real surface). Nil records frames without output.
	Present rasterizer.Presenter

	// Strict propagates to the pipeline controller.
	Strict bool
}

// Stats aggregates the per-component snapshots.
type Stats struct {
	App        string
	Pipeline   pipeline.Stats
	Rasterizer rasterizer.Stats
}

// Engine is one live view.
type Engine struct {
	log    zerolog.Logger
	ctrl   *pipeline.Controller
	raster *rasterizer.Rasterizer
	router *platformmsg.Router
	inputs *input.Dispatcher
	shim   *textinput.Shim

	closeOnce sync.Once
}

// New builds a view. InitRuntime must have run first.
func New(cfg Config) (*Engine, error) {
	if !RuntimeInitialized() {
		return nil, ErrRuntimeNotInitialized
	}
	if cfg.Producer == nil || cfg.Host == nil {
		return nil, fmt.Errorf("engine: producer and host are required")
	}

	raster, err := rasterizer.New(cfg.Present, cfg.Logger)
	if err != nil {
		return nil, err
	}
	ctrl, err := pipeline.NewController(pipeline.Config{
		Producer: cfg.Producer,
		Backend:  raster,
		Host:     cfg.Host,
		Logger:   cfg.Logger,
		Strict:   cfg.Strict,
	})
	if err != nil {
		raster.Close()
		return nil, err
	}

	e := &Engine{
		log:    cfg.Logger,
		ctrl:   ctrl,
		raster: raster,
		router: platformmsg.NewRouter(cfg.Logger),
	}

	emit := func(channel string, data []byte) {
		cfg.Producer.DispatchPlatformMessage(&platformmsg.Message{Channel: channel, Data: data})
	}
	e.inputs = input.NewDispatcher(KeyEventChannel, pointerSink{cfg.Producer}, emit, cfg.Logger)

	if len(cfg.Bundle) > 0 {
		store, err := assets.FromBytes(cfg.Bundle)
		if err != nil {
			ctrl.Close()
			raster.Close()
			return nil, err
		}
		e.router.Handle(AssetChannel, assets.MessageHandler(store))
	}
	if cfg.Editors != nil {
		e.shim = textinput.NewShim(TextInputChannel, cfg.Editors, emit, cfg.Logger)
		e.router.Handle(TextInputChannel, e.shim.HandleMessage)
	}

	return e, nil
}

type pointerSink struct{ p Producer }

func (s pointerSink) DispatchPointer(data input.PointerData) { s.p.DispatchPointer(data) }

// Controller exposes the pipeline controller; producers call Render and
// ScheduleFrame through it.
func (e *Engine) Controller() *pipeline.Controller { return e.ctrl }

// OnInvalidation forwards one view host invalidation into the pipeline.
func (e *Engine) OnInvalidation(inv *pipeline.Invalidation) error {
	return e.ctrl.OnInvalidation(inv)
}

// HandlePlatformMessage routes one producer-originated message to its
// channel handler; unhandled messages get the empty completion.
func (e *Engine) HandlePlatformMessage(msg *platformmsg.Message) {
	e.router.Dispatch(msg)
}

// OnPointerEvent routes one host pointer event toward the producer.
func (e *Engine) OnPointerEvent(ev input.PointerEvent) bool {
	return e.inputs.OnPointerEvent(ev)
}

// OnKeyEvent routes one host key event toward the producer.
func (e *Engine) OnKeyEvent(ev input.KeyEvent) bool {
	return e.inputs.OnKeyEvent(ev)
}

// NotifyEditingState reports a host-side edit to the producer. No-op without
// an editor surface.
func (e *Engine) NotifyEditingState(state textinput.EditingState) {
	if e.shim != nil {
		e.shim.NotifyStateUpdate(state)
	}
}

// NotifyEditorAction reports an editor action to the producer.
func (e *Engine) NotifyEditorAction(action string) {
	if e.shim != nil {
		e.shim.NotifyAction(action)
	}
}

// Stats snapshots the pipeline and backend.
func (e *Engine) Stats() Stats {
	return Stats{
		App:        RuntimeAppName(),
		Pipeline:   e.ctrl.Stats(),
		Rasterizer: e.raster.Stats(),
	}
}

// Close tears the view down: the controller first (any deferred invalidation
// is acknowledged and the weak handle dies), then the backend, which drains
// in-flight draws whose completions are now no-ops. Idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.ctrl.Close()
		e.raster.Close()
	})
}
