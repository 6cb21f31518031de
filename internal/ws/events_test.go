package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDecodeMessageFrame(t *testing.T) {
	frame := []byte(`{"type":"message","user":"alice","room":"dev","text":"hi","messageType":"text","id":"m1","ts":1724900000123}`)

	var ev Event
	require.NoError(t, json.Unmarshal(frame, &ev))
	assert.Equal(t, EventMessage, ev.Type)
	assert.Equal(t, "alice", ev.User)
	assert.Equal(t, "dev", ev.Room)
	assert.Equal(t, "hi", ev.Text)
	assert.Equal(t, KindText, ev.MessageType)
	assert.Equal(t, "m1", ev.ID)
	assert.Equal(t, int64(1724900000123), ev.Ts)
}

func TestEventSignalPayloadIsOpaque(t *testing.T) {
	frame := []byte(`{"type":"signal","signal":"offer","payload":{"sdp":"v=0","weird":[1,2,3]}}`)

	var ev Event
	require.NoError(t, json.Unmarshal(frame, &ev))
	assert.Equal(t, "offer", ev.Signal)
	assert.JSONEq(t, `{"sdp":"v=0","weird":[1,2,3]}`, string(ev.Payload))

	// round-trips untouched
	out, err := json.Marshal(ev)
	require.NoError(t, err)
	var back Event
	require.NoError(t, json.Unmarshal(out, &back))
	assert.JSONEq(t, string(ev.Payload), string(back.Payload))
}

func TestValidMessageKind(t *testing.T) {
	assert.True(t, validMessageKind(KindText))
	assert.True(t, validMessageKind(KindFile))
	assert.False(t, validMessageKind(""))
	assert.False(t, validMessageKind("gif"))
}

func TestRouterUnknownType(t *testing.T) {
	r := NewRouter()
	err := r.dispatch(context.Background(), nil, "nope", []byte(`{}`))
	assert.ErrorIs(t, err, errUnknownEvent)
}

func TestRouterTypedDispatch(t *testing.T) {
	r := NewRouter()
	var got Event
	Register(r, EventMessage, func(_ context.Context, _ *Session, req Event) error {
		got = req
		return nil
	})

	err := r.dispatch(context.Background(), nil, EventMessage, []byte(`{"type":"message","text":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Text)
}
