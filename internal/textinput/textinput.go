// Package textinput bridges the host's input-method editor surface and the
// producer's text-input channel. Inbound messages select and drive an editor;
// outbound messages report editing-state changes and editor actions back to
// the producer. Malformed payloads are declined, never surfaced as pipeline
// errors.
package textinput

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/poitch/engine/internal/platformmsg"
)

const (
	methodShow            = "TextInput.show"
	methodHide            = "TextInput.hide"
	methodSetClient       = "TextInput.setClient"
	methodSetEditingState = "TextInput.setEditingState"
	methodClearClient     = "TextInput.clearClient"

	methodUpdateEditingState = "TextInputClient.updateEditingState"
	methodPerformAction      = "TextInputClient.performAction"

	// ActionDone is the only editor action the producer protocol defines.
	ActionDone = "TextInputAction.done"
)

// Affinity is the wire encoding of selection affinity.
type Affinity string

const (
	AffinityUpstream   Affinity = "TextAffinity.upstream"
	AffinityDownstream Affinity = "TextAffinity.downstream"
)

// EditingState is the text, selection and composing range of one editor.
type EditingState struct {
	Text              string
	SelectionBase     int
	SelectionExtent   int
	SelectionAffinity Affinity
	ComposingBase     int
	ComposingExtent   int
}

// Editor is the host IME surface for one attached client.
type Editor interface {
	Show()
	Hide()
	SetState(state EditingState)
	Close()
}

// EditorProvider acquires an editor when a client attaches.
type EditorProvider interface {
	AcquireEditor(initial EditingState) (Editor, error)
}

// Emitter sends an outbound platform message to the producer.
type Emitter func(channel string, data []byte)

// Shim translates between the producer's text-input channel and the host
// editor. At most one client is attached at a time.
type Shim struct {
	channel  string
	provider EditorProvider
	emit     Emitter
	log      zerolog.Logger

	mu     sync.Mutex
	client int64
	editor Editor
}

func NewShim(channel string, provider EditorProvider, emit Emitter, log zerolog.Logger) *Shim {
	return &Shim{
		channel:  channel,
		provider: provider,
		emit:     emit,
		log:      log,
	}
}

type envelope struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

type wireState struct {
	Text                   string `json:"text"`
	SelectionBase          int    `json:"selectionBase"`
	SelectionExtent        int    `json:"selectionExtent"`
	SelectionAffinity      string `json:"selectionAffinity,omitempty"`
	SelectionIsDirectional bool   `json:"selectionIsDirectional,omitempty"`
	ComposingBase          int    `json:"composingBase"`
	ComposingExtent        int    `json:"composingExtent"`
}

// HandleMessage processes one inbound text-input message. It always returns
// false: the channel carries no handler-owned responses, so the router's
// empty completion answers any caller that expects one.
func (s *Shim) HandleMessage(msg *platformmsg.Message) bool {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil || env.Method == "" {
		s.log.Debug().Err(err).Msg("malformed text input payload")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch env.Method {
	case methodShow:
		if s.editor != nil {
			s.editor.Show()
		}
	case methodHide:
		if s.editor != nil {
			s.editor.Hide()
		}
	case methodSetClient:
		s.setClientLocked(env.Args)
	case methodSetEditingState:
		s.setEditingStateLocked(env.Args)
	case methodClearClient:
		s.detachLocked()
	default:
		s.log.Debug().Str("method", env.Method).Msg("unknown text input method")
	}
	return false
}

func (s *Shim) setClientLocked(args json.RawMessage) {
	s.detachLocked()

	var parts []json.RawMessage
	if err := json.Unmarshal(args, &parts); err != nil || len(parts) != 2 {
		s.log.Debug().Err(err).Msg("invalid set-client args")
		return
	}
	var client int64
	if err := json.Unmarshal(parts[0], &client); err != nil {
		s.log.Debug().Err(err).Msg("invalid set-client id")
		return
	}
	var configuration map[string]any
	if err := json.Unmarshal(parts[1], &configuration); err != nil {
		s.log.Debug().Err(err).Msg("invalid set-client configuration")
		return
	}

	editor, err := s.provider.AcquireEditor(EditingState{SelectionAffinity: AffinityDownstream})
	if err != nil {
		s.log.Error().Err(err).Msg("acquire editor failed")
		return
	}
	s.client = client
	s.editor = editor
}

func (s *Shim) setEditingStateLocked(args json.RawMessage) {
	if s.editor == nil {
		return
	}
	var raw wireState
	if err := json.Unmarshal(args, &raw); err != nil {
		s.log.Debug().Err(err).Msg("invalid editing state")
		return
	}
	state := EditingState{
		Text:              raw.Text,
		SelectionBase:     raw.SelectionBase,
		SelectionExtent:   raw.SelectionExtent,
		SelectionAffinity: AffinityDownstream,
		ComposingBase:     raw.ComposingBase,
		ComposingExtent:   raw.ComposingExtent,
	}
	if Affinity(raw.SelectionAffinity) == AffinityUpstream {
		state.SelectionAffinity = AffinityUpstream
	}
	s.editor.SetState(state)
}

func (s *Shim) detachLocked() {
	if s.editor != nil {
		s.editor.Close()
		s.editor = nil
	}
	s.client = 0
}

// NotifyStateUpdate reports a host-side edit back to the producer for the
// currently attached client. No-op when no client is attached.
func (s *Shim) NotifyStateUpdate(state EditingState) {
	s.mu.Lock()
	client := s.client
	attached := s.editor != nil
	s.mu.Unlock()
	if !attached {
		return
	}

	affinity := AffinityDownstream
	if state.SelectionAffinity == AffinityUpstream {
		affinity = AffinityUpstream
	}
	payload, err := json.Marshal(envelope{
		Method: methodUpdateEditingState,
		Args: mustRaw([]any{client, wireState{
			Text:                   state.Text,
			SelectionBase:          state.SelectionBase,
			SelectionExtent:        state.SelectionExtent,
			SelectionAffinity:      string(affinity),
			SelectionIsDirectional: true,
			ComposingBase:          state.ComposingBase,
			ComposingExtent:        state.ComposingExtent,
		}}),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("encode editing state update")
		return
	}
	s.emit(s.channel, payload)
}

// NotifyAction reports an editor action (for example ActionDone) for the
// currently attached client.
func (s *Shim) NotifyAction(action string) {
	s.mu.Lock()
	client := s.client
	attached := s.editor != nil
	s.mu.Unlock()
	if !attached {
		return
	}

	payload, err := json.Marshal(envelope{
		Method: methodPerformAction,
		Args:   mustRaw([]any{client, action}),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("encode editor action")
		return
	}
	s.emit(s.channel, payload)
}

func mustRaw(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}
