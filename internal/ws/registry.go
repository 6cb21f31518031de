package ws

import (
	"sync"
)

// Registry maps live local connections to their sessions, grouped by
// room. Purely in-process: it is rebuilt from nothing on restart and
// shares nothing with other gateway instances.
type Registry struct {
	rooms sync.Map // room name -> *roomConns
}

type roomConns struct {
	mu       sync.RWMutex
	sessions map[*clientConn]*Session
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Register(sess *Session) {
	v, _ := r.rooms.LoadOrStore(sess.Room, &roomConns{sessions: map[*clientConn]*Session{}})
	rc := v.(*roomConns)
	rc.mu.Lock()
	rc.sessions[sess.conn] = sess
	rc.mu.Unlock()
}

func (r *Registry) Unregister(sess *Session) {
	v, ok := r.rooms.Load(sess.Room)
	if !ok {
		return
	}
	rc := v.(*roomConns)
	rc.mu.Lock()
	delete(rc.sessions, sess.conn)
	rc.mu.Unlock()
}

// ForEachInRoom invokes fn once per currently-registered connection in
// room, in no particular order. The snapshot is taken under the lock,
// the I/O happens outside it.
func (r *Registry) ForEachInRoom(room string, fn func(conn *clientConn, sess *Session)) {
	v, ok := r.rooms.Load(room)
	if !ok {
		return
	}
	rc := v.(*roomConns)

	rc.mu.RLock()
	snapshot := make([]*Session, 0, len(rc.sessions))
	for _, sess := range rc.sessions {
		snapshot = append(snapshot, sess)
	}
	rc.mu.RUnlock()

	for _, sess := range snapshot {
		fn(sess.conn, sess)
	}
}
