package app

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conninmemory "github.com/syncroom/server/internal/repository/connection/inmemory"
	roominmemory "github.com/syncroom/server/internal/repository/room/inmemory"
	"github.com/syncroom/server/internal/service/room"
)

// Walks one shared viewing session through the whole service graph the way
// the websocket handlers drive it.
func TestSharedViewingSession(t *testing.T) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	clock := clockwork.NewFakeClock()
	roomRepo := roominmemory.NewRepo(clock, slog.Default())
	connRepo := conninmemory.NewRepo()
	service := room.NewService(roomRepo, connRepo, clock, slog.Default())

	ctx := context.Background()

	// host connects and creates a protected room
	hostConn := &websocket.Conn{}
	require.NoError(t, service.ConnectMember(ctx, &room.ConnectMemberParams{Conn: hostConn, MemberId: "host"}))
	createResp, err := service.CreateRoom(ctx, &room.CreateRoomParams{
		Room:     "friday-movie",
		Password: "popcorn",
		MemberId: "host",
		Conn:     hostConn,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, createResp.Count)
	assert.True(t, createResp.IsProtected)
	t.Log("room created")

	// host loads a video and starts playback
	load, err := service.LoadVideo(ctx, &room.LoadVideoParams{Room: "friday-movie", VideoId: "dQw4w9WgXcQ", SenderId: "host"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), load.Seq)

	clock.Advance(time.Second)
	play, err := service.Play(ctx, &room.PlayParams{Room: "friday-movie", SenderId: "host", Position: 0})
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", play.VideoId)
	assert.Equal(t, int64(2), play.Seq)
	t.Log("playback started")

	// a friend joins mid-playback and is synced immediately
	clock.Advance(30 * time.Second)
	guestConn := &websocket.Conn{}
	require.NoError(t, service.ConnectMember(ctx, &room.ConnectMemberParams{Conn: guestConn, MemberId: "guest"}))
	joinResp, err := service.JoinRoom(ctx, &room.JoinRoomParams{Room: "friday-movie", Password: "popcorn", MemberId: "guest"})
	require.NoError(t, err)
	assert.Equal(t, 2, joinResp.Count)
	require.NotNil(t, joinResp.State)
	assert.Equal(t, play.Seq, joinResp.State.Seq)
	assert.Len(t, joinResp.Conns, 2)
	t.Log("guest joined")

	// the guest drifts behind and gets a targeted correction
	clock.Advance(10 * time.Second)
	check, err := service.CheckSync(ctx, &room.CheckSyncParams{
		Room:      "friday-movie",
		SenderId:  "guest",
		Position:  30,
		LatencyMs: 250,
	})
	require.NoError(t, err)
	require.True(t, check.NeedsResync)
	assert.Equal(t, 40.0, check.Position)

	// the host is on time and is left alone
	check, err = service.CheckSync(ctx, &room.CheckSyncParams{
		Room:      "friday-movie",
		SenderId:  "host",
		Position:  40.2,
		LatencyMs: 250,
	})
	require.NoError(t, err)
	assert.False(t, check.NeedsResync)
	t.Log("drift reconciled")

	// everyone leaves; the room is gone and the name is reusable
	_, err = service.DisconnectMember(ctx, &room.DisconnectMemberParams{MemberId: "guest"})
	require.NoError(t, err)
	last, err := service.DisconnectMember(ctx, &room.DisconnectMemberParams{MemberId: "host"})
	require.NoError(t, err)
	assert.True(t, last.Destroyed)

	newHostConn := &websocket.Conn{}
	require.NoError(t, service.ConnectMember(ctx, &room.ConnectMemberParams{Conn: newHostConn, MemberId: "host2"}))
	_, err = service.CreateRoom(ctx, &room.CreateRoomParams{Room: "friday-movie", MemberId: "host2", Conn: newHostConn})
	require.NoError(t, err)
}
