package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	roomrepo "github.com/syncroom/server/internal/repository/room"
)

// CountUpdate carries a member-count broadcast for one room.
type CountUpdate struct {
	Room  string
	Count int
	Conns []*websocket.Conn
}

func (s service) leftRoomUpdate(ctx context.Context, left *roomrepo.LeftRoom) *CountUpdate {
	if left == nil || left.Destroyed {
		return nil
	}

	return &CountUpdate{
		Room:  left.Room,
		Count: left.Count,
		Conns: s.connsFor(ctx, left.MemberIds),
	}
}

type CreateRoomParams struct {
	Room     string
	Password string
	MemberId string
	Conn     *websocket.Conn
}

type CreateRoomResponse struct {
	Room        string
	Count       int
	IsProtected bool
	Conns       []*websocket.Conn
	// Left is the surviving room the member implicitly abandoned, nil if none.
	Left *CountUpdate
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	res, err := s.roomRepo.CreateRoom(ctx, &roomrepo.CreateRoomParams{
		Room:     params.Room,
		Password: params.Password,
		MemberId: params.MemberId,
	})
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomExists) {
			return CreateRoomResponse{}, ErrRoomExists
		}
		return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
	}

	s.logger.InfoContext(ctx, "room created", "room", params.Room, "protected", params.Password != "")

	return CreateRoomResponse{
		Room:        params.Room,
		Count:       res.Count,
		IsProtected: params.Password != "",
		Conns:       []*websocket.Conn{params.Conn},
		Left:        s.leftRoomUpdate(ctx, res.Left),
	}, nil
}

type JoinRoomParams struct {
	Room     string
	Password string
	MemberId string
}

type JoinRoomResponse struct {
	Room        string
	Count       int
	IsProtected bool
	// State is nil when no command has been applied in the room yet; a joiner
	// only gets a video-state-update when there is something to sync to.
	State *StateUpdate
	Conns []*websocket.Conn
	Left  *CountUpdate
}

func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	res, err := s.roomRepo.JoinRoom(ctx, &roomrepo.JoinRoomParams{
		Room:     params.Room,
		Password: params.Password,
		MemberId: params.MemberId,
	})
	if err != nil {
		switch {
		case errors.Is(err, roomrepo.ErrRoomNotFound):
			return JoinRoomResponse{}, ErrRoomNotFound
		case errors.Is(err, roomrepo.ErrBadPassword):
			return JoinRoomResponse{}, ErrBadPassword
		}
		return JoinRoomResponse{}, fmt.Errorf("failed to join room: %w", err)
	}

	var state *StateUpdate
	if res.State != nil {
		u := stateUpdateOf(*res.State)
		state = &u
	}

	s.logger.InfoContext(ctx, "member joined", "room", params.Room, "count", res.Count)

	return JoinRoomResponse{
		Room:        params.Room,
		Count:       res.Count,
		IsProtected: res.IsProtected,
		State:       state,
		Conns:       s.connsFor(ctx, res.MemberIds),
		Left:        s.leftRoomUpdate(ctx, res.Left),
	}, nil
}

type DisconnectMemberParams struct {
	MemberId string
}

type DisconnectMemberResponse struct {
	Room      string
	Count     int
	Conns     []*websocket.Conn
	Destroyed bool
}

// DisconnectMember is the leave path: connection loss is membership cleanup,
// not an error. Safe to call for a connection that never joined a room.
func (s service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) (DisconnectMemberResponse, error) {
	if _, err := s.connRepo.RemoveByMemberId(params.MemberId); err != nil {
		s.logger.DebugContext(ctx, "no conn to remove", "member_id", params.MemberId)
	}

	res, err := s.roomRepo.RemoveMember(ctx, params.MemberId)
	if err != nil {
		if errors.Is(err, roomrepo.ErrMemberNotFound) {
			return DisconnectMemberResponse{}, nil
		}
		return DisconnectMemberResponse{}, fmt.Errorf("failed to remove member: %w", err)
	}

	s.logger.InfoContext(ctx, "member disconnected", "room", res.Room, "destroyed", res.Destroyed)

	if res.Destroyed {
		return DisconnectMemberResponse{Room: res.Room, Destroyed: true}, nil
	}

	return DisconnectMemberResponse{
		Room:  res.Room,
		Count: res.Count,
		Conns: s.connsFor(ctx, res.MemberIds),
	}, nil
}

type ConnectMemberParams struct {
	Conn     *websocket.Conn
	MemberId string
}

func (s service) ConnectMember(ctx context.Context, params *ConnectMemberParams) error {
	if err := s.connRepo.Add(params.Conn, params.MemberId); err != nil {
		return fmt.Errorf("failed to add conn: %w", err)
	}

	return nil
}
