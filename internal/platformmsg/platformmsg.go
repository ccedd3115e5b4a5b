// Package platformmsg carries named, opaque byte-payload messages between the
// frame producer and external surfaces. The pipeline is agnostic to payload
// schema; the only guarantee is at most one response completion per inbound
// message, with an empty completion for anything unhandled. Payload errors
// never propagate into the frame pipeline.
package platformmsg

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/poitch/engine/internal/observability"
)

// ResponseToken completes an inbound message at most once. Complete and
// CompleteEmpty are safe from any goroutine; the first call wins.
type ResponseToken struct {
	fn       func(data []byte)
	consumed atomic.Bool
}

func NewResponseToken(fn func(data []byte)) *ResponseToken {
	return &ResponseToken{fn: fn}
}

// Complete delivers a response payload. Returns false if the token was
// already completed (or is nil).
func (t *ResponseToken) Complete(data []byte) bool {
	if t == nil {
		return false
	}
	if !t.consumed.CompareAndSwap(false, true) {
		return false
	}
	if t.fn != nil {
		t.fn(data)
	}
	return true
}

// CompleteEmpty delivers the "unhandled" response.
func (t *ResponseToken) CompleteEmpty() bool {
	return t.Complete(nil)
}

// Completed reports whether a completion has fired.
func (t *ResponseToken) Completed() bool {
	return t != nil && t.consumed.Load()
}

// Message is one named payload. Response may be nil when the sender does not
// expect an answer.
type Message struct {
	Channel  string
	Data     []byte
	Response *ResponseToken
}

// HandlerFunc processes a message for one channel. It returns true when the
// message was handled, meaning the handler owns the response completion. On
// false the router falls through to the empty completion.
type HandlerFunc func(msg *Message) bool

// Router dispatches messages by channel name.
type Router struct {
	log zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRouter(log zerolog.Logger) *Router {
	return &Router{
		log:      log,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers fn for a channel, replacing any previous handler.
func (r *Router) Handle(channel string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		delete(r.handlers, channel)
		return
	}
	r.handlers[channel] = fn
}

// Dispatch routes one message. Unrecognized channels and handlers that
// decline get the empty completion, so senders always hear back when they
// asked to.
func (r *Router) Dispatch(msg *Message) {
	if msg == nil {
		return
	}
	r.mu.RLock()
	fn := r.handlers[msg.Channel]
	r.mu.RUnlock()

	if fn != nil && fn(msg) {
		observability.RecordPlatformMessage(msg.Channel, "handled")
		return
	}
	observability.RecordPlatformMessage(msg.Channel, "unhandled")
	if msg.Response != nil {
		msg.Response.CompleteEmpty()
		r.log.Debug().Str("channel", msg.Channel).Msg("platform message unhandled, empty completion")
	}
}
