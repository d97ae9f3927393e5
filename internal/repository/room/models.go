package room

import "github.com/syncroom/server/internal/domain"

// LeftRoom describes the room a member was implicitly removed from when it
// created or joined another one. MemberIds are the members that stayed behind
// and still need a count update.
type LeftRoom struct {
	Room      string
	MemberIds []string
	Count     int
	Destroyed bool
}

type CreateRoomResult struct {
	Count int
	Left  *LeftRoom
}

type JoinRoomResult struct {
	Count       int
	IsProtected bool
	// State is nil until the first command has been applied in the room.
	State     *domain.PlayerState
	MemberIds []string
	Left      *LeftRoom
}

type RemoveMemberResult struct {
	Room      string
	MemberIds []string
	Count     int
	Destroyed bool
}

// AppliedCommand is the arbiter's output for an accepted command: the state
// it produced plus the assigned ordering metadata, ready to broadcast.
type AppliedCommand struct {
	Seq        int64
	ServerTime int64
	State      domain.PlayerState
}
