package ws

import (
	"encoding/json"

	"chatrelaygo/internal/services/history"
)

// Event types. One flat envelope travels over both the client
// connection and the bus; the type tag selects which fields are live.
const (
	EventMessage  = "message"
	EventPresence = "presence"
	EventSignal   = "signal"
	EventSystem   = "system"
	EventControl  = "control"
	EventError    = "error"
)

// Message kinds.
const (
	KindText = "text"
	KindFile = "file"
)

// Control ops.
const (
	OpPing = "ping"
	OpPong = "pong"
)

// System subtypes.
const SubtypeWelcome = "welcome"

// Event is the wire unit for client frames and bus payloads. Every
// event published to the bus carries its room so fan-out can filter;
// every event sent to a client is renderable standalone.
type Event struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	User string `json:"user,omitempty"`

	// message
	Text        string            `json:"text,omitempty"`
	MessageType string            `json:"messageType,omitempty"`
	ID          string            `json:"id,omitempty"`
	Ts          int64             `json:"ts,omitempty"` // unix millis
	File        *history.FileMeta `json:"file,omitempty"`

	// presence (full set, order irrelevant)
	Users []string `json:"users,omitempty"`

	// signal: sub-kind tag plus opaque payload, relayed uninterpreted
	Signal  string          `json:"signal,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// system
	Subtype   string `json:"subtype,omitempty"`
	SessionID string `json:"sessionId,omitempty"`

	// control
	Op string `json:"op,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}

func validMessageKind(kind string) bool {
	return kind == KindText || kind == KindFile
}
