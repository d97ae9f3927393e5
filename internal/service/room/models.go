package room

import "github.com/syncroom/server/internal/domain"

// StateUpdate is the targeted video-state-update payload: the authoritative
// state a late joiner or explicit requester syncs to. ClientTime is the
// reference position in seconds, ServerTime the server clock instant (unix
// milliseconds) at which it was true.
type StateUpdate struct {
	VideoId    string  `json:"video_id"`
	Action     string  `json:"action"`
	ClientTime float64 `json:"client_time"`
	ServerTime int64   `json:"server_time"`
	Rate       float64 `json:"rate"`
	Seq        int64   `json:"seq"`
}

func stateUpdateOf(state domain.PlayerState) StateUpdate {
	return StateUpdate{
		VideoId:    state.VideoId,
		Action:     string(state.Action),
		ClientTime: state.Position,
		ServerTime: state.UpdatedAt,
		Rate:       state.Rate,
		Seq:        state.Seq,
	}
}
