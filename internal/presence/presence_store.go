package presence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrBrokerUnavailable is returned when the shared store cannot be
// reached. A join or leave failing this way must not be treated as
// success by the caller.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// IPresenceStore is the broker-backed membership set, one set per room.
// Membership is keyed by identity, not session: duplicate joins and
// leaves of a non-member are no-ops. A room with an empty set is
// indistinguishable from a room that never existed, which is fine —
// rooms are created lazily on first join and never deleted.
type IPresenceStore interface {
	// Join adds identity to room's set and returns the resulting full set.
	Join(ctx context.Context, room, identity string) ([]string, error)
	// Leave removes identity from room's set and returns the resulting full set.
	Leave(ctx context.Context, room, identity string) ([]string, error)
	// Members returns a snapshot of room's set.
	Members(ctx context.Context, room string) ([]string, error)
}

type presenceStore struct {
	rdc *redis.Client
}

func NewPresenceStore(rdc *redis.Client) IPresenceStore {
	return &presenceStore{rdc: rdc}
}

// MemberKey is the set key of a room. Independent of the bus channel
// key for the same room.
func MemberKey(room string) string { return "room:" + room + ":members" }

func (s *presenceStore) Join(ctx context.Context, room, identity string) ([]string, error) {
	var members *redis.StringSliceCmd
	// MULTI/EXEC so the returned snapshot is consistent with the mutation.
	_, err := s.rdc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, MemberKey(room), identity)
		members = pipe.SMembers(ctx, MemberKey(room))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: presence join: %v", ErrBrokerUnavailable, err)
	}
	return members.Val(), nil
}

func (s *presenceStore) Leave(ctx context.Context, room, identity string) ([]string, error) {
	var members *redis.StringSliceCmd
	_, err := s.rdc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, MemberKey(room), identity)
		members = pipe.SMembers(ctx, MemberKey(room))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: presence leave: %v", ErrBrokerUnavailable, err)
	}
	return members.Val(), nil
}

func (s *presenceStore) Members(ctx context.Context, room string) ([]string, error) {
	members, err := s.rdc.SMembers(ctx, MemberKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: presence members: %v", ErrBrokerUnavailable, err)
	}
	return members, nil
}
