package presence_test

import (
	"context"
	"errors"
	"testing"

	"chatrelaygo/internal/presence"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinReturnsFullSet(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	store := presence.NewPresenceStore(rdc)

	key := presence.MemberKey("dev")
	mock.ExpectTxPipeline()
	mock.ExpectSAdd(key, "bob").SetVal(1)
	mock.ExpectSMembers(key).SetVal([]string{"alice", "bob"})
	mock.ExpectTxPipelineExec()

	members, err := store.Join(context.Background(), "dev", "bob")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, members)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinDuplicateIdentityCollapses(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	store := presence.NewPresenceStore(rdc)

	key := presence.MemberKey("dev")
	// SADD of an existing member reports 0 added; the snapshot is stable.
	mock.ExpectTxPipeline()
	mock.ExpectSAdd(key, "alice").SetVal(0)
	mock.ExpectSMembers(key).SetVal([]string{"alice"})
	mock.ExpectTxPipelineExec()

	members, err := store.Join(context.Background(), "dev", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)
}

func TestLeaveReturnsFullSet(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	store := presence.NewPresenceStore(rdc)

	key := presence.MemberKey("dev")
	mock.ExpectTxPipeline()
	mock.ExpectSRem(key, "alice").SetVal(1)
	mock.ExpectSMembers(key).SetVal([]string{"bob"})
	mock.ExpectTxPipelineExec()

	members, err := store.Leave(context.Background(), "dev", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, members)
}

func TestLeaveNonMemberIsIdempotent(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	store := presence.NewPresenceStore(rdc)

	key := presence.MemberKey("dev")
	mock.ExpectTxPipeline()
	mock.ExpectSRem(key, "mallory").SetVal(0)
	mock.ExpectSMembers(key).SetVal([]string{"alice"})
	mock.ExpectTxPipelineExec()

	members, err := store.Leave(context.Background(), "dev", "mallory")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)
}

func TestMembersSnapshot(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	store := presence.NewPresenceStore(rdc)

	mock.ExpectSMembers(presence.MemberKey("ops")).SetVal([]string{"carol"})

	members, err := store.Members(context.Background(), "ops")
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, members)
}

func TestJoinBrokerDown(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	store := presence.NewPresenceStore(rdc)

	key := presence.MemberKey("dev")
	mock.ExpectTxPipeline()
	mock.ExpectSAdd(key, "alice").SetErr(errors.New("connection refused"))

	_, err := store.Join(context.Background(), "dev", "alice")
	assert.ErrorIs(t, err, presence.ErrBrokerUnavailable)
}
