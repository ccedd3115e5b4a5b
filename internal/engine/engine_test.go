package engine

import (
	"archive/zip"
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poitch/engine/internal/input"
	"github.com/poitch/engine/internal/pipeline"
	"github.com/poitch/engine/internal/platformmsg"
	"github.com/poitch/engine/internal/scene"
	"github.com/poitch/engine/internal/testutil/testlog"
	"github.com/poitch/engine/internal/textinput"
)

type hostProducer struct {
	mu       sync.Mutex
	ctrl     *pipeline.Controller
	render   bool
	begins   int
	metrics  []scene.ViewportMetrics
	messages []*platformmsg.Message
	pointers []input.PointerData
}

func (p *hostProducer) BeginFrame(frameTime time.Time) {
	p.mu.Lock()
	p.begins++
	ctrl := p.ctrl
	render := p.render
	p.mu.Unlock()
	if render && ctrl != nil {
		ctrl.Render(&scene.LayerTree{Root: &scene.Layer{Label: "root"}})
	}
}

func (p *hostProducer) SetViewportMetrics(m scene.ViewportMetrics) {
	p.mu.Lock()
	p.metrics = append(p.metrics, m)
	p.mu.Unlock()
}

func (p *hostProducer) DispatchPlatformMessage(msg *platformmsg.Message) {
	p.mu.Lock()
	p.messages = append(p.messages, msg)
	p.mu.Unlock()
}

func (p *hostProducer) DispatchPointer(data input.PointerData) {
	p.mu.Lock()
	p.pointers = append(p.pointers, data)
	p.mu.Unlock()
}

func (p *hostProducer) lastMessage() *platformmsg.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return nil
	}
	return p.messages[len(p.messages)-1]
}

type fakeHost struct{ requests atomic.Int64 }

func (h *fakeHost) RequestInvalidation() { h.requests.Add(1) }

type fakeEditor struct{}

func (fakeEditor) Show()                           {}
func (fakeEditor) Hide()                           {}
func (fakeEditor) SetState(textinput.EditingState) {}
func (fakeEditor) Close()                          {}

type fakeProvider struct{}

func (fakeProvider) AcquireEditor(textinput.EditingState) (textinput.Editor, error) {
	return fakeEditor{}, nil
}

func initRuntime(t *testing.T) {
	t.Helper()
	if err := InitRuntime(RuntimeOptions{AppName: "engine-test"}); err != nil {
		t.Fatalf("init runtime: %v", err)
	}
	t.Cleanup(ShutdownRuntime)
}

func buildBundle(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close bundle: %v", err)
	}
	return buf.Bytes()
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *hostProducer) {
	t.Helper()
	p := &hostProducer{render: true}
	cfg.Producer = p
	if cfg.Host == nil {
		cfg.Host = &fakeHost{}
	}
	cfg.Logger = testlog.Logger(t)
	cfg.Strict = true
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	p.mu.Lock()
	p.ctrl = e.Controller()
	p.mu.Unlock()
	t.Cleanup(e.Close)
	return e, p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestNewRequiresRuntimeInit(t *testing.T) {
	testlog.Start(t)
	if _, err := New(Config{Producer: &hostProducer{}, Host: &fakeHost{}}); !errors.Is(err, ErrRuntimeNotInitialized) {
		t.Fatalf("expected ErrRuntimeNotInitialized, got %v", err)
	}
}

func TestInitRuntimeIsOnce(t *testing.T) {
	testlog.Start(t)
	initRuntime(t)
	if err := InitRuntime(RuntimeOptions{}); !errors.Is(err, ErrRuntimeInitialized) {
		t.Fatalf("expected ErrRuntimeInitialized, got %v", err)
	}
	if !RuntimeInitialized() || RuntimeAppName() != "engine-test" {
		t.Fatalf("runtime state initialized=%v app=%q", RuntimeInitialized(), RuntimeAppName())
	}
}

func TestFramePipelineEndToEnd(t *testing.T) {
	testlog.Start(t)
	initRuntime(t)
	e, _ := newTestEngine(t, Config{})

	var acked atomic.Bool
	metrics := &scene.ViewportMetrics{PhysicalWidth: 640, PhysicalHeight: 480, DevicePixelRatio: 1.5}
	if err := e.OnInvalidation(pipeline.NewInvalidation(metrics, 3, func() { acked.Store(true) })); err != nil {
		t.Fatalf("invalidation: %v", err)
	}

	waitFor(t, "ack", acked.Load)
	waitFor(t, "presented frame", func() bool {
		st := e.Stats()
		return st.Rasterizer.FramesPresented == 1 && st.Pipeline.Depth == 0
	})
	st := e.Stats()
	if st.Rasterizer.LastSceneVersion != 3 {
		t.Fatalf("scene version got=%d want=3", st.Rasterizer.LastSceneVersion)
	}
	if st.Rasterizer.LastFrameSize != (scene.Size{Width: 640, Height: 480}) {
		t.Fatalf("frame size got=%+v", st.Rasterizer.LastFrameSize)
	}
	if st.App != "engine-test" {
		t.Fatalf("app got=%q", st.App)
	}
}

func TestAssetChannelRoundTrip(t *testing.T) {
	testlog.Start(t)
	initRuntime(t)
	e, _ := newTestEngine(t, Config{
		Bundle: buildBundle(t, map[string]string{"shaders/blur": "shader-src"}),
	})

	var got []byte
	e.HandlePlatformMessage(&platformmsg.Message{
		Channel:  AssetChannel,
		Data:     []byte("shaders/blur"),
		Response: platformmsg.NewResponseToken(func(data []byte) { got = data }),
	})
	if string(got) != "shader-src" {
		t.Fatalf("asset got=%q", got)
	}

	// Unknown channel: empty completion, no pipeline disturbance.
	completed := false
	e.HandlePlatformMessage(&platformmsg.Message{
		Channel: "engine/unknown",
		Response: platformmsg.NewResponseToken(func(data []byte) {
			completed = true
			got = data
		}),
	})
	if !completed || got != nil {
		t.Fatalf("unknown channel completion=%v got=%v", completed, got)
	}
}

func TestKeyAndPointerEventsReachProducer(t *testing.T) {
	testlog.Start(t)
	initRuntime(t)
	e, p := newTestEngine(t, Config{})

	if !e.OnKeyEvent(input.KeyEvent{Phase: input.KeyPressed, HIDUsage: 4, CodePoint: 'a'}) {
		t.Fatalf("key event not dispatched")
	}
	msg := p.lastMessage()
	if msg == nil || msg.Channel != KeyEventChannel {
		t.Fatalf("key message got=%+v", msg)
	}

	if !e.OnPointerEvent(input.PointerEvent{Timestamp: time.Now(), Phase: input.PhaseDown, Kind: input.KindTouch, PointerID: 1}) {
		t.Fatalf("pointer event not dispatched")
	}
	p.mu.Lock()
	pointers := len(p.pointers)
	p.mu.Unlock()
	if pointers != 1 {
		t.Fatalf("pointers got=%d want=1", pointers)
	}
}

func TestTextInputWiring(t *testing.T) {
	testlog.Start(t)
	initRuntime(t)
	e, p := newTestEngine(t, Config{Editors: fakeProvider{}})

	e.HandlePlatformMessage(&platformmsg.Message{
		Channel: TextInputChannel,
		Data:    []byte(`{"method":"TextInput.setClient","args":[4,{}]}`),
	})
	e.NotifyEditingState(textinput.EditingState{Text: "typed"})

	msg := p.lastMessage()
	if msg == nil || msg.Channel != TextInputChannel {
		t.Fatalf("state update got=%+v", msg)
	}
	if !bytes.Contains(msg.Data, []byte("TextInputClient.updateEditingState")) {
		t.Fatalf("payload got=%s", msg.Data)
	}

	// Without an editor surface the notifications are inert.
	plain, _ := newTestEngine(t, Config{})
	plain.NotifyEditingState(textinput.EditingState{Text: "x"})
	plain.NotifyEditorAction(textinput.ActionDone)
}
