package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chatrelaygo/internal/auth"
	"chatrelaygo/internal/bus"
	"chatrelaygo/internal/presence"
	"chatrelaygo/internal/services/history"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait     = 10 * time.Second
	pingPeriod    = 30 * time.Second
	brokerTimeout = 4 * time.Second
	handleTimeout = 2 * time.Second
	appendTimeout = 3 * time.Second
	maxFrameSize  = 8192
)

// WsServer is the session engine: it accepts connections, joins them to
// a room, routes inbound frames, and fans bus deliveries out to the
// matching local connections.
type WsServer struct {
	registry    *Registry
	eventBus    bus.IEventBus
	presenceSt  presence.IPresenceStore
	authSvc     auth.IAuthService
	historySvc  history.IHistoryService
	router      *Router
	defaultRoom string
	upgrader    websocket.Upgrader
}

func NewWsServer(
	registry *Registry,
	eventBus bus.IEventBus,
	presenceSt presence.IPresenceStore,
	authSvc auth.IAuthService,
	historySvc history.IHistoryService,
	defaultRoom string,
) *WsServer {
	srv := &WsServer{
		registry:    registry,
		eventBus:    eventBus,
		presenceSt:  presenceSt,
		authSvc:     authSvc,
		historySvc:  historySvc,
		router:      NewRouter(),
		defaultRoom: defaultRoom,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // dev-only
		},
	}
	srv.registerHandlers()
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

// Handle upgrades the connection and walks it through handshake →
// authenticate → join. Room and token are read once here and are
// immutable for the session.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	room := ginCtx.Query("room")
	if room == "" {
		room = s.defaultRoom
	}
	token := ginCtx.Query("token")

	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxFrameSize)
	conn := &clientConn{rawConn: rawConn}

	identity, err := s.authSvc.Verify(token)
	if err != nil {
		zap.L().Info("ws.unauthorized", zap.String("room", room), zap.Error(err))
		_ = conn.writeJSON(Event{Type: EventError, Error: "unauthorized"})
		conn.close()
		return
	}

	sess := newSession(room, identity, conn)
	s.registry.Register(sess)

	ctx, cancel := context.WithTimeout(context.Background(), brokerTimeout)
	members, err := s.presenceSt.Join(ctx, room, identity)
	cancel()
	if err != nil {
		// A join the broker never recorded must not look like success;
		// close and let the client retry.
		zap.L().Error("ws.presence_join", zap.String("room", room), zap.Error(err))
		s.registry.Unregister(sess)
		_ = conn.writeJSON(Event{Type: EventError, Error: "broker unavailable"})
		conn.close()
		return
	}

	s.eventBus.Subscribe(room) // may be a no-op (already subscribed)
	s.publishPresence(room, members)

	_ = conn.writeJSON(Event{
		Type:      EventSystem,
		Subtype:   SubtypeWelcome,
		Room:      room,
		SessionID: sess.ID,
		Users:     members,
	})

	go s.reader(sess)
	go s.pinger(sess)
}

// ---------------------------------------------------------------------------
//  Inbound: per-connection read loop
// ---------------------------------------------------------------------------

func (s *WsServer) reader(sess *Session) {
	defer s.teardown(sess)

	for {
		_, data, err := sess.conn.rawConn.ReadMessage()
		if err != nil {
			return // client closed or transport error
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			// Inbound garbage is not fatal to the session.
			zap.L().Debug("ws.malformed_frame", zap.String("session", sess.ID), zap.Error(err))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		if err := s.router.dispatch(ctx, sess, ev.Type, data); err != nil {
			zap.L().Debug("ws.event_dropped",
				zap.String("session", sess.ID),
				zap.String("type", ev.Type),
				zap.Error(err))
		}
		cancel()
	}
}

func (s *WsServer) registerHandlers() {
	Register(s.router, EventMessage, s.handleMessage)
	Register(s.router, EventSignal, s.handleSignal)
	Register(s.router, EventControl, s.handleControl)
}

func (s *WsServer) handleMessage(ctx context.Context, sess *Session, ev Event) error {
	if !validMessageKind(ev.MessageType) {
		return errMalformedEvent
	}

	now := time.Now()
	out := Event{
		Type:        EventMessage,
		Room:        sess.Room,
		User:        sess.Identity,
		Text:        ev.Text,
		MessageType: ev.MessageType,
		File:        ev.File,
		ID:          uuid.NewString(),
		Ts:          now.UnixMilli(),
	}

	// Fire-and-forget: delivery is privileged over durability, a failed
	// append never blocks the publish.
	go s.appendHistory(out, now)

	payload, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return s.eventBus.Publish(ctx, sess.Room, payload)
}

func (s *WsServer) handleSignal(ctx context.Context, sess *Session, ev Event) error {
	if ev.Signal == "" {
		return errMalformedEvent
	}

	// Stamped with sender and room, payload relayed uninterpreted. No
	// local echo, no persistence.
	out := Event{
		Type:    EventSignal,
		Signal:  ev.Signal,
		Room:    sess.Room,
		User:    sess.Identity,
		Payload: ev.Payload,
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return s.eventBus.Publish(ctx, sess.Room, payload)
}

func (s *WsServer) handleControl(_ context.Context, sess *Session, ev Event) error {
	if ev.Op != OpPing {
		return errMalformedEvent
	}
	// Pong goes back on this one connection only, never the room.
	return sess.conn.writeJSON(Event{Type: EventControl, Op: OpPong, Ts: time.Now().UnixMilli()})
}

func (s *WsServer) appendHistory(ev Event, ts time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	_, err := s.historySvc.Append(ctx, history.StoredMessage{
		ID:       ev.ID,
		Room:     ev.Room,
		Identity: ev.User,
		Body:     ev.Text,
		Kind:     ev.MessageType,
		File:     ev.File,
		Ts:       ts,
	})
	if err != nil {
		zap.L().Warn("ws.history_append", zap.String("id", ev.ID), zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
//  Outbound: bus fan-out
// ---------------------------------------------------------------------------

// RunFanout drains bus deliveries into the matching local connections.
// Start exactly once per process; it is the only consumer of the bus
// delivery queue and is deliberately decoupled from the per-connection
// read loops.
func (s *WsServer) RunFanout(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-s.eventBus.Deliveries():
			if !ok {
				return
			}
			s.fanOut(d)
		}
	}
}

func (s *WsServer) fanOut(d bus.Delivery) {
	s.registry.ForEachInRoom(d.Room, func(conn *clientConn, sess *Session) {
		// Forward verbatim; never re-publish. A connection that cannot
		// accept the write within the deadline loses this one event and
		// fan-out moves on — its own close handler fixes presence.
		if err := conn.write(websocket.TextMessage, d.Payload); err != nil {
			zap.L().Debug("ws.delivery_stall",
				zap.String("room", d.Room),
				zap.String("session", sess.ID),
				zap.Error(err))
		}
	})
}

func (s *WsServer) publishPresence(room string, members []string) {
	payload, err := json.Marshal(Event{Type: EventPresence, Room: room, Users: members})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), brokerTimeout)
	defer cancel()
	if err := s.eventBus.Publish(ctx, room, payload); err != nil {
		zap.L().Error("ws.presence_publish", zap.String("room", room), zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
//  Teardown
// ---------------------------------------------------------------------------

// teardown runs exactly once per session, however many paths signal the
// close.
func (s *WsServer) teardown(sess *Session) {
	sess.closeOnce.Do(func() {
		s.registry.Unregister(sess)

		ctx, cancel := context.WithTimeout(context.Background(), brokerTimeout)
		members, err := s.presenceSt.Leave(ctx, sess.Room, sess.Identity)
		cancel()
		if err != nil {
			// The session is gone locally either way; other instances
			// converge on the next successful mutation for this room.
			zap.L().Error("ws.presence_leave", zap.String("room", sess.Room), zap.Error(err))
		} else {
			s.publishPresence(sess.Room, members)
		}

		s.eventBus.Unsubscribe(sess.Room)
		sess.conn.close()
	})
}

func (s *WsServer) pinger(sess *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := sess.conn.ping(); err != nil {
			sess.conn.close() // reader unblocks and runs teardown
			return
		}
	}
}
