package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collectRoom(r *Registry, room string) []*Session {
	var got []*Session
	r.ForEachInRoom(room, func(_ *clientConn, sess *Session) {
		got = append(got, sess)
	})
	return got
}

func TestRegistryRegisterAndIterate(t *testing.T) {
	r := NewRegistry()

	alice := newSession("dev", "alice", &clientConn{})
	bob := newSession("dev", "bob", &clientConn{})
	carol := newSession("ops", "carol", &clientConn{})

	r.Register(alice)
	r.Register(bob)
	r.Register(carol)

	assert.ElementsMatch(t, []*Session{alice, bob}, collectRoom(r, "dev"))
	assert.ElementsMatch(t, []*Session{carol}, collectRoom(r, "ops"))
	assert.Empty(t, collectRoom(r, "empty-room"))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()

	alice := newSession("dev", "alice", &clientConn{})
	bob := newSession("dev", "bob", &clientConn{})
	r.Register(alice)
	r.Register(bob)

	r.Unregister(alice)
	assert.ElementsMatch(t, []*Session{bob}, collectRoom(r, "dev"))

	// repeat unregister is a no-op
	r.Unregister(alice)
	assert.ElementsMatch(t, []*Session{bob}, collectRoom(r, "dev"))
}

func TestRegistryUnregisterUnknownRoom(t *testing.T) {
	r := NewRegistry()
	r.Unregister(newSession("ghost", "alice", &clientConn{}))
	assert.Empty(t, collectRoom(r, "ghost"))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			sess := newSession("dev", "alice", &clientConn{})
			r.Register(sess)
			r.Unregister(sess)
		}
	}()
	for i := 0; i < 200; i++ {
		r.ForEachInRoom("dev", func(_ *clientConn, _ *Session) {})
	}
	<-done
}
