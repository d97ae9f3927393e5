package room

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/syncroom/server/internal/domain"
	roomrepo "github.com/syncroom/server/internal/repository/room"
	"github.com/syncroom/server/pkg/metrics"
)

// Drift tolerance in seconds: scaled from the member's reported round-trip
// latency, clamped to [1, 5], 3 when latency is zero or unknown.
const (
	defaultSyncThreshold = 3
	minSyncThreshold     = 1
	maxSyncThreshold     = 5
)

func syncThreshold(latencyMs float64) float64 {
	if latencyMs <= 0 {
		return defaultSyncThreshold
	}

	t := latencyMs / 500
	if t < minSyncThreshold {
		return minSyncThreshold
	}
	if t > maxSyncThreshold {
		return maxSyncThreshold
	}

	return t
}

type CheckSyncParams struct {
	Room      string
	SenderId  string
	Position  float64
	LatencyMs float64
}

type CheckSyncResponse struct {
	// NeedsResync reports whether a correction must be sent to the single
	// reporting member. Position and ServerTime are only set when it is.
	NeedsResync bool
	Position    float64
	ServerTime  int64
}

// CheckSync reconciles a member's reported position against the projected
// authoritative position. Pure read: it never advances the sequence or
// touches the stored state, and a drifting member never perturbs the room.
func (s service) CheckSync(ctx context.Context, params *CheckSyncParams) (CheckSyncResponse, error) {
	memberRoom, err := s.roomRepo.GetMemberRoom(ctx, params.SenderId)
	if err != nil || memberRoom != params.Room {
		return CheckSyncResponse{}, nil
	}

	state, err := s.roomRepo.GetPlayerState(ctx, params.Room)
	if err != nil {
		if errors.Is(err, roomrepo.ErrNoPlayerState) || errors.Is(err, roomrepo.ErrRoomNotFound) {
			return CheckSyncResponse{}, nil
		}
		return CheckSyncResponse{}, fmt.Errorf("failed to get player state: %w", err)
	}

	if state.Action != domain.ActionPlay {
		return CheckSyncResponse{}, nil
	}

	nowMs := s.clock.Now().UnixMilli()
	expected := state.PositionAt(nowMs)

	if math.Abs(params.Position-expected) <= syncThreshold(params.LatencyMs) {
		return CheckSyncResponse{}, nil
	}

	metrics.Resyncs.Inc()
	s.logger.InfoContext(ctx, "drift correction",
		"room", params.Room,
		"reported", params.Position,
		"expected", expected,
	)

	return CheckSyncResponse{
		NeedsResync: true,
		Position:    expected,
		ServerTime:  nowMs,
	}, nil
}

type GetPlayerStateParams struct {
	Room     string
	SenderId string
}

// GetPlayerState serves request-video-state: the current authoritative state
// for a member pulling it explicitly (e.g. after a reconnect).
func (s service) GetPlayerState(ctx context.Context, params *GetPlayerStateParams) (StateUpdate, error) {
	memberRoom, err := s.roomRepo.GetMemberRoom(ctx, params.SenderId)
	if err != nil || memberRoom != params.Room {
		return StateUpdate{}, ErrNoPlayerState
	}

	state, err := s.roomRepo.GetPlayerState(ctx, params.Room)
	if err != nil {
		if errors.Is(err, roomrepo.ErrNoPlayerState) || errors.Is(err, roomrepo.ErrRoomNotFound) {
			return StateUpdate{}, ErrNoPlayerState
		}
		return StateUpdate{}, fmt.Errorf("failed to get player state: %w", err)
	}

	return stateUpdateOf(state), nil
}
