package domain

// PlayerAction is the wire name of the playback state.
type PlayerAction string

const (
	ActionPlay  PlayerAction = "play"
	ActionPause PlayerAction = "pause"
)

const defaultPlaybackRate = 1

type CommandKind string

const (
	CommandLoad  CommandKind = "load"
	CommandPlay  CommandKind = "play"
	CommandPause CommandKind = "pause"
)

// Command is a member's playback intent before the arbiter has ordered it.
// VideoId is optional for play/pause and inherited from the previous state;
// Rate <= 0 means "not supplied".
type Command struct {
	Kind     CommandKind
	VideoId  string
	Position float64
	Rate     float64
}

// PlayerState is a room's authoritative playback state. Position is the
// seconds into the video that were true at UpdatedAt (unix milliseconds of
// the server clock). While Action is play the real position advances at Rate.
type PlayerState struct {
	VideoId   string
	Action    PlayerAction
	Position  float64
	UpdatedAt int64
	Rate      float64
	Seq       int64
}

// PositionAt projects the playback position at the given server clock
// instant. Paused state never advances.
func (p PlayerState) PositionAt(nowMs int64) float64 {
	if p.Action != ActionPlay || nowMs <= p.UpdatedAt {
		return p.Position
	}

	return p.Position + float64(nowMs-p.UpdatedAt)/1000*p.Rate
}

// Apply produces the state an accepted command transitions to. prev is nil
// while the room is idle (nothing loaded yet). The arbiter must have assigned
// seq and nowMs already; Apply itself is a pure transition.
func Apply(prev *PlayerState, cmd Command, nowMs int64, seq int64) PlayerState {
	next := PlayerState{
		UpdatedAt: nowMs,
		Rate:      defaultPlaybackRate,
		Seq:       seq,
	}
	if prev != nil {
		next.VideoId = prev.VideoId
		if prev.Rate > 0 {
			next.Rate = prev.Rate
		}
	}

	switch cmd.Kind {
	case CommandLoad:
		next.VideoId = cmd.VideoId
		next.Action = ActionPause
		next.Position = 0
	case CommandPlay:
		if cmd.VideoId != "" {
			next.VideoId = cmd.VideoId
		}
		if cmd.Rate > 0 {
			next.Rate = cmd.Rate
		}
		next.Action = ActionPlay
		next.Position = cmd.Position
	case CommandPause:
		if cmd.VideoId != "" {
			next.VideoId = cmd.VideoId
		}
		next.Action = ActionPause
		next.Position = cmd.Position
	}

	return next
}
