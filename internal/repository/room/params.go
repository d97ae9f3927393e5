package room

import "github.com/syncroom/server/internal/domain"

type CreateRoomParams struct {
	Room     string
	Password string
	MemberId string
}

type JoinRoomParams struct {
	Room     string
	Password string
	MemberId string
}

type ApplyCommandParams struct {
	Room    string
	Command domain.Command
}
