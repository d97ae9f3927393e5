package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/syncroom/server/internal/domain"
	roomrepo "github.com/syncroom/server/internal/repository/room"
)

var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
	ErrBadPassword  = errors.New("wrong room password")
	// ErrCommandDropped marks a command rejected as protocol noise (debounced,
	// sender not in the room, room gone). Callers must not surface it.
	ErrCommandDropped = errors.New("command dropped")
	// ErrNoPlayerState marks a room with no playback state to report yet.
	ErrNoPlayerState = errors.New("no player state")
)

type iRoomRepo interface {
	CreateRoom(context.Context, *roomrepo.CreateRoomParams) (roomrepo.CreateRoomResult, error)
	JoinRoom(context.Context, *roomrepo.JoinRoomParams) (roomrepo.JoinRoomResult, error)
	RemoveMember(ctx context.Context, memberId string) (roomrepo.RemoveMemberResult, error)
	GetMemberRoom(ctx context.Context, memberId string) (string, error)
	GetMemberIds(ctx context.Context, room string) ([]string, error)
	GetPlayerState(ctx context.Context, room string) (domain.PlayerState, error)
	ApplyCommand(context.Context, *roomrepo.ApplyCommandParams) (roomrepo.AppliedCommand, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, memberId string) error
	RemoveByMemberId(memberId string) (*websocket.Conn, error)
	RemoveByConn(conn *websocket.Conn) (string, error)
	GetConn(memberId string) (*websocket.Conn, error)
	GetMemberId(conn *websocket.Conn) (string, error)
}

type service struct {
	roomRepo iRoomRepo
	connRepo iConnRepo
	clock    clockwork.Clock
	logger   *slog.Logger
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, clock clockwork.Clock, logger *slog.Logger) *service {
	return &service{
		roomRepo: roomRepo,
		connRepo: connRepo,
		clock:    clock,
		logger:   logger,
	}
}

// connsFor resolves member ids to live connections. A member whose connection
// disappeared mid-flight is skipped; its own disconnect cleanup is on the way.
func (s service) connsFor(ctx context.Context, memberIds []string) []*websocket.Conn {
	conns := make([]*websocket.Conn, 0, len(memberIds))
	for _, memberId := range memberIds {
		conn, err := s.connRepo.GetConn(memberId)
		if err != nil {
			s.logger.DebugContext(ctx, "no conn for member", "member_id", memberId)
			continue
		}

		conns = append(conns, conn)
	}

	return conns
}

func (s service) getConnsByRoomId(ctx context.Context, roomId string) ([]*websocket.Conn, error) {
	memberIds, err := s.roomRepo.GetMemberIds(ctx, roomId)
	if err != nil {
		return nil, err
	}

	return s.connsFor(ctx, memberIds), nil
}
