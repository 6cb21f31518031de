package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrBrokerUnavailable is returned when a publish cannot reach the
// shared broker.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// deliveryBuffer bounds the process-wide delivery queue. When the
// fan-out consumer falls behind, further bus deliveries are dropped:
// the bus is best-effort and presence/chat tolerate a lost event.
const deliveryBuffer = 256

// Delivery is one event received from the broker. Room is recovered
// from the channel the event arrived on; filtering to the right local
// connections is the gateway's job.
type Delivery struct {
	Room    string
	Payload []byte
}

// IEventBus is the shared pub/sub transport, one channel per room
// multiplexing chat, presence, and signaling traffic.
type IEventBus interface {
	// Publish sends payload on room's channel.
	Publish(ctx context.Context, room string, payload []byte) error
	// Subscribe ensures this process receives room's channel. Idempotent:
	// repeat calls refcount the one underlying subscription and never
	// duplicate delivery.
	Subscribe(room string)
	// Unsubscribe drops one reference; the underlying subscription is
	// closed when the last reference goes.
	Unsubscribe(room string)
	// Deliveries is the process-wide queue drained by the fan-out task.
	Deliveries() <-chan Delivery
}

type eventBus struct {
	rdc        *redis.Client
	mu         sync.Mutex
	subs       map[string]*subEntry
	deliveries chan Delivery
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func NewEventBus(rdc *redis.Client) IEventBus {
	return &eventBus{
		rdc:        rdc,
		subs:       make(map[string]*subEntry),
		deliveries: make(chan Delivery, deliveryBuffer),
	}
}

// ChannelKey is the pub/sub channel of a room. Independent of the
// presence set key for the same room.
func ChannelKey(room string) string { return "room:" + room + ":events" }

func (b *eventBus) Publish(ctx context.Context, room string, payload []byte) error {
	if err := b.rdc.Publish(ctx, ChannelKey(room), payload).Err(); err != nil {
		return fmt.Errorf("%w: publish %s: %v", ErrBrokerUnavailable, room, err)
	}
	return nil
}

func (b *eventBus) Deliveries() <-chan Delivery { return b.deliveries }

// Subscribe opens the Redis SUBSCRIBE and its pump goroutine for the
// first consumer; later consumers only bump the ref-counter, no matter
// how many sessions on this process join the same room.
func (b *eventBus) Subscribe(room string) {
	b.mu.Lock()
	if e, ok := b.subs[room]; ok {
		e.refCnt++
		b.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ps := b.rdc.Subscribe(ctx, ChannelKey(room))
	b.subs[room] = &subEntry{refCnt: 1, cancel: cancel}
	b.mu.Unlock()

	go b.pump(ctx, room, ps)
}

func (b *eventBus) Unsubscribe(room string) {
	b.mu.Lock()
	e, ok := b.subs[room]
	if !ok {
		b.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		b.mu.Unlock()
		return
	}
	delete(b.subs, room)
	b.mu.Unlock()

	// Outside the lock: stops the pump goroutine.
	e.cancel()
}

func (b *eventBus) pump(ctx context.Context, room string, ps *redis.PubSub) {
	defer ps.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ps.Channel():
			if !ok { // broker connection closed
				return
			}
			b.deliver(room, []byte(m.Payload))
		}
	}
}

// deliver enqueues without blocking so a stalled fan-out task can never
// back up into the broker reads.
func (b *eventBus) deliver(room string, payload []byte) {
	select {
	case b.deliveries <- Delivery{Room: room, Payload: payload}:
	default:
		zap.L().Warn("bus.delivery_dropped", zap.String("room", room))
	}
}
