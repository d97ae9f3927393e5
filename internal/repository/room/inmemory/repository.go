// Package inmemory owns the room aggregates: membership, password, playback
// state, sequence counter and debounce timestamp live together under one lock
// per room, so they can never drift apart. Rooms die with the process.
package inmemory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/syncroom/server/internal/domain"
	"github.com/syncroom/server/internal/repository/room"
	"github.com/syncroom/server/pkg/metrics"
)

// debounceWindow is the minimum spacing between accepted commands in a room,
// measured from the last acceptance instant.
const debounceWindow = 300 * time.Millisecond

type roomState struct {
	mu             sync.Mutex
	password       string
	members        map[string]struct{}
	player         *domain.PlayerState
	seq            int64
	lastAcceptedAt time.Time
}

type repo struct {
	clock  clockwork.Clock
	logger *slog.Logger

	// mu guards the two maps and every membership set. Playback state,
	// sequence and debounce timestamp are guarded by the room's own mutex
	// and only need mu held for reading, so commands in different rooms
	// never contend.
	mu          sync.RWMutex
	rooms       map[string]*roomState
	memberRooms map[string]string
}

func NewRepo(clock clockwork.Clock, logger *slog.Logger) *repo {
	return &repo{
		clock:       clock,
		logger:      logger,
		rooms:       make(map[string]*roomState),
		memberRooms: make(map[string]string),
	}
}

// removeMemberLocked detaches memberId from its current room, destroying the
// room the instant its member set becomes empty. Callers hold r.mu for
// writing.
func (r *repo) removeMemberLocked(memberId string) (room.RemoveMemberResult, bool) {
	name, ok := r.memberRooms[memberId]
	if !ok {
		return room.RemoveMemberResult{}, false
	}

	delete(r.memberRooms, memberId)
	metrics.ConnectedMembers.Dec()

	rm := r.rooms[name]
	delete(rm.members, memberId)

	if len(rm.members) == 0 {
		delete(r.rooms, name)
		metrics.ActiveRooms.Dec()
		return room.RemoveMemberResult{Room: name, Destroyed: true}, true
	}

	return room.RemoveMemberResult{
		Room:      name,
		MemberIds: memberIdsLocked(rm),
		Count:     len(rm.members),
	}, true
}

func memberIdsLocked(rm *roomState) []string {
	ids := make([]string, 0, len(rm.members))
	for id := range rm.members {
		ids = append(ids, id)
	}

	return ids
}

func asLeftRoom(res room.RemoveMemberResult, ok bool) *room.LeftRoom {
	if !ok {
		return nil
	}

	return &room.LeftRoom{
		Room:      res.Room,
		MemberIds: res.MemberIds,
		Count:     res.Count,
		Destroyed: res.Destroyed,
	}
}

func (r *repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) (room.CreateRoomResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[params.Room]; ok {
		return room.CreateRoomResult{}, room.ErrRoomExists
	}

	left := asLeftRoom(r.removeMemberLocked(params.MemberId))

	rm := &roomState{
		password: params.Password,
		members:  map[string]struct{}{params.MemberId: {}},
	}
	r.rooms[params.Room] = rm
	r.memberRooms[params.MemberId] = params.Room
	metrics.ActiveRooms.Inc()
	metrics.ConnectedMembers.Inc()

	r.logger.DebugContext(ctx, "room created", "room", params.Room, "protected", params.Password != "")

	return room.CreateRoomResult{Count: 1, Left: left}, nil
}

func (r *repo) JoinRoom(ctx context.Context, params *room.JoinRoomParams) (room.JoinRoomResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[params.Room]
	if !ok {
		return room.JoinRoomResult{}, room.ErrRoomNotFound
	}

	if rm.password != "" && rm.password != params.Password {
		return room.JoinRoomResult{}, room.ErrBadPassword
	}

	// rejoining the current room must not trip the implicit leave, which
	// would destroy a room the member is alone in
	var left *room.LeftRoom
	if r.memberRooms[params.MemberId] != params.Room {
		left = asLeftRoom(r.removeMemberLocked(params.MemberId))

		rm.members[params.MemberId] = struct{}{}
		r.memberRooms[params.MemberId] = params.Room
		metrics.ConnectedMembers.Inc()
	}

	rm.mu.Lock()
	var state *domain.PlayerState
	if rm.player != nil {
		s := *rm.player
		state = &s
	}
	rm.mu.Unlock()

	r.logger.DebugContext(ctx, "member joined", "room", params.Room, "count", len(rm.members))

	return room.JoinRoomResult{
		Count:       len(rm.members),
		IsProtected: rm.password != "",
		State:       state,
		MemberIds:   memberIdsLocked(rm),
		Left:        left,
	}, nil
}

func (r *repo) RemoveMember(ctx context.Context, memberId string) (room.RemoveMemberResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.removeMemberLocked(memberId)
	if !ok {
		return room.RemoveMemberResult{}, room.ErrMemberNotFound
	}

	r.logger.DebugContext(ctx, "member removed", "room", res.Room, "destroyed", res.Destroyed)

	return res, nil
}

func (r *repo) GetMemberRoom(ctx context.Context, memberId string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.memberRooms[memberId]
	if !ok {
		return "", room.ErrMemberNotFound
	}

	return name, nil
}

func (r *repo) GetMemberIds(ctx context.Context, name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[name]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	return memberIdsLocked(rm), nil
}

func (r *repo) GetPlayerState(ctx context.Context, name string) (domain.PlayerState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[name]
	if !ok {
		return domain.PlayerState{}, room.ErrRoomNotFound
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.player == nil {
		return domain.PlayerState{}, room.ErrNoPlayerState
	}

	return *rm.player, nil
}

// ApplyCommand is the arbiter's critical section: debounce check, sequence
// assignment and state transition happen atomically under the room's mutex.
// Dropped commands never consume a sequence number.
func (r *repo) ApplyCommand(ctx context.Context, params *room.ApplyCommandParams) (room.AppliedCommand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[params.Room]
	if !ok {
		return room.AppliedCommand{}, room.ErrRoomNotFound
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	now := r.clock.Now()
	if !rm.lastAcceptedAt.IsZero() && now.Sub(rm.lastAcceptedAt) < debounceWindow {
		return room.AppliedCommand{}, room.ErrDebounced
	}

	rm.lastAcceptedAt = now
	rm.seq++

	next := domain.Apply(rm.player, params.Command, now.UnixMilli(), rm.seq)
	rm.player = &next

	return room.AppliedCommand{
		Seq:        rm.seq,
		ServerTime: now.UnixMilli(),
		State:      next,
	}, nil
}
