package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/syncroom/server/internal/domain"
	roomrepo "github.com/syncroom/server/internal/repository/room"
	"github.com/syncroom/server/pkg/metrics"
)

// CommandResponse is an accepted playback command ready to broadcast to every
// member of the room, the sender included.
type CommandResponse struct {
	Room       string
	VideoId    string
	Position   float64
	Rate       float64
	ServerTime int64
	Seq        int64
	Conns      []*websocket.Conn
}

// applyCommand runs the arbiter path shared by load/play/pause: membership
// check, atomic apply, broadcast set assembly. Every rejection is a silent
// drop surfaced as ErrCommandDropped.
func (s service) applyCommand(ctx context.Context, roomId, senderId string, cmd domain.Command) (CommandResponse, error) {
	memberRoom, err := s.roomRepo.GetMemberRoom(ctx, senderId)
	if err != nil || memberRoom != roomId {
		s.logger.DebugContext(ctx, "command from non-member dropped", "room", roomId)
		metrics.CommandsDropped.WithLabelValues(metrics.DropNoRoom).Inc()
		return CommandResponse{}, ErrCommandDropped
	}

	applied, err := s.roomRepo.ApplyCommand(ctx, &roomrepo.ApplyCommandParams{
		Room:    roomId,
		Command: cmd,
	})
	if err != nil {
		switch {
		case errors.Is(err, roomrepo.ErrDebounced):
			s.logger.DebugContext(ctx, "command debounced", "room", roomId, "kind", cmd.Kind)
			metrics.CommandsDropped.WithLabelValues(metrics.DropDebounced).Inc()
		case errors.Is(err, roomrepo.ErrRoomNotFound):
			metrics.CommandsDropped.WithLabelValues(metrics.DropNoRoom).Inc()
		default:
			return CommandResponse{}, fmt.Errorf("failed to apply command: %w", err)
		}
		return CommandResponse{}, ErrCommandDropped
	}

	metrics.CommandsApplied.WithLabelValues(string(cmd.Kind)).Inc()
	s.logger.InfoContext(ctx, "command applied",
		"room", roomId,
		"kind", cmd.Kind,
		"seq", applied.Seq,
	)

	conns, err := s.getConnsByRoomId(ctx, roomId)
	if err != nil {
		return CommandResponse{}, fmt.Errorf("failed to get conns by room id: %w", err)
	}

	return CommandResponse{
		Room:       roomId,
		VideoId:    applied.State.VideoId,
		Position:   applied.State.Position,
		Rate:       applied.State.Rate,
		ServerTime: applied.ServerTime,
		Seq:        applied.Seq,
		Conns:      conns,
	}, nil
}

type LoadVideoParams struct {
	Room     string
	VideoId  string
	SenderId string
}

func (s service) LoadVideo(ctx context.Context, params *LoadVideoParams) (CommandResponse, error) {
	return s.applyCommand(ctx, params.Room, params.SenderId, domain.Command{
		Kind:    domain.CommandLoad,
		VideoId: params.VideoId,
	})
}

type PlayParams struct {
	Room     string
	SenderId string
	Position float64
	// VideoId and Rate are optional; zero values inherit from the prior state.
	VideoId string
	Rate    float64
}

func (s service) Play(ctx context.Context, params *PlayParams) (CommandResponse, error) {
	return s.applyCommand(ctx, params.Room, params.SenderId, domain.Command{
		Kind:     domain.CommandPlay,
		VideoId:  params.VideoId,
		Position: params.Position,
		Rate:     params.Rate,
	})
}

type PauseParams struct {
	Room     string
	SenderId string
	Position float64
	VideoId  string
}

func (s service) Pause(ctx context.Context, params *PauseParams) (CommandResponse, error) {
	return s.applyCommand(ctx, params.Room, params.SenderId, domain.Command{
		Kind:     domain.CommandPause,
		VideoId:  params.VideoId,
		Position: params.Position,
	})
}
