package room

import "errors"

var (
	ErrRoomExists     = errors.New("room already exists")
	ErrRoomNotFound   = errors.New("room not found")
	ErrBadPassword    = errors.New("wrong room password")
	ErrMemberNotFound = errors.New("member not found")
	// ErrDebounced marks a command rejected by the debounce window. It is an
	// internal drop signal and must never reach a client.
	ErrDebounced = errors.New("command debounced")
	// ErrNoPlayerState marks a room that exists but has had no playback
	// command applied yet.
	ErrNoPlayerState = errors.New("no player state")
)
