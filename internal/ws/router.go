package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var (
	errUnknownEvent   = errors.New("unknown event type")
	errMalformedEvent = errors.New("malformed event")
)

// internal (untyped) handler signature. frame is the complete inbound
// frame; typed handlers re-decode it into their request shape.
type rawHandler func(ctx context.Context, sess *Session, frame json.RawMessage) error

// Router dispatches inbound frames by their "type" tag. Unlike an HTTP
// router it never answers the sender on failure: a frame a handler
// rejects is dropped and logged, the session continues.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds an event type to a strongly-typed handler.
func Register[Req any](
	r *Router,
	eventType string,
	h func(ctx context.Context, sess *Session, req Req) error,
) {
	if eventType == "" {
		panic("ws router: empty event type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[eventType] = func(ctx context.Context, sess *Session, frame json.RawMessage) error {
		var req Req
		if err := json.Unmarshal(frame, &req); err != nil {
			return err
		}
		return h(ctx, sess, req)
	}
}

// dispatch is called by the gateway's reader loop.
func (r *Router) dispatch(ctx context.Context, sess *Session, eventType string, frame json.RawMessage) error {
	r.mu.RLock()
	h, ok := r.handlers[eventType]
	r.mu.RUnlock()
	if !ok {
		return errUnknownEvent
	}
	return h(ctx, sess, frame)
}
