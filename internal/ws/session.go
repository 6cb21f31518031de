package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Session is one authenticated live connection. Room and Identity are
// immutable for the session's lifetime: identity comes from the
// verified handshake credential and is never re-derived from later
// client input. Sessions are never persisted; a restart simply drops
// them and clients reconnect.
type Session struct {
	ID       string
	Room     string
	Identity string

	conn      *clientConn
	closeOnce sync.Once
}

func newSession(room, identity string, conn *clientConn) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Room:     room,
		Identity: identity,
		conn:     conn,
	}
}
