// Package input routes host pointer and key events toward the producer.
// Pointer events become pointer data packets; key events become JSON payloads
// on the key-event platform channel.
package input

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// PointerPhase is the host's view of a pointer transition.
type PointerPhase int

const (
	PhaseAdd PointerPhase = iota
	PhaseHover
	PhaseDown
	PhaseMove
	PhaseUp
	PhaseRemove
	PhaseCancel
)

// PointerChange is the producer's view of the same transition.
type PointerChange string

const (
	ChangeAdd    PointerChange = "add"
	ChangeHover  PointerChange = "hover"
	ChangeDown   PointerChange = "down"
	ChangeMove   PointerChange = "move"
	ChangeUp     PointerChange = "up"
	ChangeRemove PointerChange = "remove"
	ChangeCancel PointerChange = "cancel"
)

// DeviceKind identifies the pointing device.
type DeviceKind string

const (
	KindTouch DeviceKind = "touch"
	KindMouse DeviceKind = "mouse"
)

// PointerEvent is one host pointer event.
type PointerEvent struct {
	Timestamp time.Time
	Phase     PointerPhase
	Kind      DeviceKind
	PointerID int
	X, Y      float64
}

// PointerData is the routed form handed to the producer.
type PointerData struct {
	TimestampUS int64
	Change      PointerChange
	Kind        DeviceKind
	Device      int
	PhysicalX   float64
	PhysicalY   float64
}

// KeyPhase is the host's key transition.
type KeyPhase int

const (
	KeyPressed KeyPhase = iota
	KeyRepeat
	KeyReleased
)

// KeyEvent is one host keyboard event.
type KeyEvent struct {
	Phase     KeyPhase
	HIDUsage  uint32
	CodePoint uint32
	Modifiers uint32
}

// PointerSink accepts routed pointer data (the producer, in practice).
type PointerSink interface {
	DispatchPointer(data PointerData)
}

// MessageSink accepts key events encoded as platform messages.
type MessageSink func(channel string, data []byte)

// Dispatcher tracks pointer state and fans events out. Methods are meant to
// be called from the host's event context; the down-pointer set is not
// guarded for concurrent use.
type Dispatcher struct {
	keyChannel string
	pointers   PointerSink
	messages   MessageSink
	log        zerolog.Logger

	down map[int]struct{}
}

func NewDispatcher(keyChannel string, pointers PointerSink, messages MessageSink, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		keyChannel: keyChannel,
		pointers:   pointers,
		messages:   messages,
		log:        log,
		down:       make(map[int]struct{}),
	}
}

func changeFromPhase(phase PointerPhase) PointerChange {
	switch phase {
	case PhaseAdd:
		return ChangeAdd
	case PhaseHover:
		return ChangeHover
	case PhaseDown:
		return ChangeDown
	case PhaseMove:
		return ChangeMove
	case PhaseUp:
		return ChangeUp
	case PhaseRemove:
		return ChangeRemove
	default:
		return ChangeCancel
	}
}

// OnPointerEvent routes one pointer event. A move for a pointer that is not
// down is coerced to hover, so producers never see a drag that did not start
// with a down. Returns true when the event was dispatched.
func (d *Dispatcher) OnPointerEvent(ev PointerEvent) bool {
	if d.pointers == nil {
		return false
	}
	data := PointerData{
		TimestampUS: ev.Timestamp.UnixMicro(),
		Change:      changeFromPhase(ev.Phase),
		Kind:        ev.Kind,
		Device:      ev.PointerID,
		PhysicalX:   ev.X,
		PhysicalY:   ev.Y,
	}

	switch data.Change {
	case ChangeDown:
		d.down[data.Device] = struct{}{}
	case ChangeUp, ChangeCancel:
		delete(d.down, data.Device)
	case ChangeMove:
		if _, ok := d.down[data.Device]; !ok {
			data.Change = ChangeHover
		}
	case ChangeAdd, ChangeRemove, ChangeHover:
		if _, ok := d.down[data.Device]; ok {
			d.log.Warn().Int("device", data.Device).Str("change", string(data.Change)).
				Msg("pointer event for device still down")
		}
	}

	d.pointers.DispatchPointer(data)
	return true
}

type keyPayload struct {
	Type      string `json:"type"`
	Keymap    string `json:"keymap"`
	HIDUsage  uint32 `json:"hidUsage"`
	CodePoint uint32 `json:"codePoint"`
	Modifiers uint32 `json:"modifiers"`
}

// OnKeyEvent encodes one key event onto the key-event channel. Returns true
// when the event was dispatched.
func (d *Dispatcher) OnKeyEvent(ev KeyEvent) bool {
	if d.messages == nil {
		return false
	}
	eventType := "keydown"
	if ev.Phase == KeyReleased {
		eventType = "keyup"
	}
	payload, err := json.Marshal(keyPayload{
		Type:      eventType,
		Keymap:    "host",
		HIDUsage:  ev.HIDUsage,
		CodePoint: ev.CodePoint,
		Modifiers: ev.Modifiers,
	})
	if err != nil {
		d.log.Error().Err(err).Msg("encode key event")
		return false
	}
	d.messages(d.keyChannel, payload)
	return true
}
