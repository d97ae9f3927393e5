package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/syncroom/server/internal/service/room"
	"github.com/syncroom/server/pkg/ctxlogger"
	"github.com/syncroom/server/pkg/metrics"
)

func (c *controller) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	memberId := uuid.NewString()
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("member_id", memberId))

	if err := c.roomService.ConnectMember(ctx, &room.ConnectMemberParams{
		Conn:     conn,
		MemberId: memberId,
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to connect member", "error", err)
		conn.Close()
		return
	}

	c.addWriter(conn)
	c.logger.InfoContext(ctx, "member connected")

	ctx = context.WithValue(ctx, memberIdCtxKey, memberId)
	if err := c.wsMux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}

	// connection loss is membership cleanup, never an error path
	resp, err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{MemberId: memberId})
	if err != nil {
		c.logger.InfoContext(ctx, "failed to disconnect member", "error", err)
	} else if resp.Room != "" && !resp.Destroyed {
		c.broadcastUserCount(ctx, resp.Room, resp.Count, resp.Conns)
	}

	c.removeWriter(conn)
	conn.Close()
}

// decode unmarshals and validates an inbound payload. Anything malformed is
// protocol noise: logged, counted, and dropped without answering the sender.
func (c *controller) decode(ctx context.Context, payload json.RawMessage, input any) bool {
	if err := json.Unmarshal(payload, input); err != nil {
		c.logger.DebugContext(ctx, "malformed payload", "error", err)
		metrics.CommandsDropped.WithLabelValues(metrics.DropMalformed).Inc()
		return false
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(ctx, "invalid payload", "errors", validationErrors)
		metrics.CommandsDropped.WithLabelValues(metrics.DropMalformed).Inc()
		return false
	}

	return true
}

type CreateRoomInput struct {
	Room     string `json:"room" validate:"required,max=64"`
	Password string `json:"password" validate:"omitempty,max=64"`
}

func (c *controller) handleCreateRoom(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input CreateRoomInput
	if !c.decode(ctx, payload, &input) {
		return nil
	}

	resp, err := c.roomService.CreateRoom(ctx, &room.CreateRoomParams{
		Room:     input.Room,
		Password: input.Password,
		MemberId: c.getMemberIdFromCtx(ctx),
		Conn:     conn,
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomExists) {
			c.writeError(ctx, conn, "room already exists")
			return nil
		}
		return err
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type: "room-created",
		Payload: roomStatusPayload{
			Room:        resp.Room,
			Users:       resp.Count,
			IsProtected: resp.IsProtected,
		},
	}); err != nil {
		return err
	}

	c.broadcastUserCount(ctx, resp.Room, resp.Count, resp.Conns)
	c.broadcastLeftRoomCount(ctx, resp.Left)

	return nil
}

type JoinRoomInput struct {
	Room     string `json:"room" validate:"required,max=64"`
	Password string `json:"password" validate:"omitempty,max=64"`
}

type roomStatusPayload struct {
	Room        string `json:"room"`
	Users       int    `json:"users"`
	IsProtected bool   `json:"is_protected"`
}

func (c *controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input JoinRoomInput
	if !c.decode(ctx, payload, &input) {
		return nil
	}

	resp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		Room:     input.Room,
		Password: input.Password,
		MemberId: c.getMemberIdFromCtx(ctx),
	})
	if err != nil {
		switch {
		case errors.Is(err, room.ErrRoomNotFound):
			c.writeError(ctx, conn, "room not found")
			return nil
		case errors.Is(err, room.ErrBadPassword):
			c.writeError(ctx, conn, "wrong password")
			return nil
		}
		return err
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type: "room-joined",
		Payload: roomStatusPayload{
			Room:        resp.Room,
			Users:       resp.Count,
			IsProtected: resp.IsProtected,
		},
	}); err != nil {
		return err
	}

	c.broadcastUserCount(ctx, resp.Room, resp.Count, resp.Conns)
	c.broadcastLeftRoomCount(ctx, resp.Left)

	// late-join sync: hand the joiner the authoritative state to seek to
	if resp.State != nil {
		if err := c.writeToConn(ctx, conn, &Output{
			Type:    "video-state-update",
			Payload: resp.State,
		}); err != nil {
			return err
		}
	}

	return nil
}

type LoadVideoInput struct {
	Room    string `json:"room" validate:"required,max=64"`
	VideoId string `json:"video_id" validate:"required,max=128"`
}

type loadVideoPayload struct {
	Room    string `json:"room"`
	VideoId string `json:"video_id"`
	Seq     int64  `json:"seq"`
}

func (c *controller) handleLoadVideo(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input LoadVideoInput
	if !c.decode(ctx, payload, &input) {
		return nil
	}

	resp, err := c.roomService.LoadVideo(ctx, &room.LoadVideoParams{
		Room:     input.Room,
		VideoId:  input.VideoId,
		SenderId: c.getMemberIdFromCtx(ctx),
	})
	if err != nil {
		if errors.Is(err, room.ErrCommandDropped) {
			return nil
		}
		return err
	}

	c.broadcast(ctx, resp.Conns, &Output{
		Type: "load-video",
		Payload: loadVideoPayload{
			Room:    resp.Room,
			VideoId: resp.VideoId,
			Seq:     resp.Seq,
		},
	})

	return nil
}

type PlayInput struct {
	Room    string  `json:"room" validate:"required,max=64"`
	Time    float64 `json:"time" validate:"min=0"`
	VideoId string  `json:"video_id" validate:"omitempty,max=128"`
	Rate    float64 `json:"rate" validate:"omitempty,gt=0"`
}

type playbackPayload struct {
	Room       string  `json:"room"`
	Time       float64 `json:"time"`
	VideoId    string  `json:"video_id"`
	Rate       float64 `json:"rate"`
	ServerTime int64   `json:"server_time"`
	Seq        int64   `json:"seq"`
}

func (c *controller) handlePlay(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input PlayInput
	if !c.decode(ctx, payload, &input) {
		return nil
	}

	resp, err := c.roomService.Play(ctx, &room.PlayParams{
		Room:     input.Room,
		SenderId: c.getMemberIdFromCtx(ctx),
		Position: input.Time,
		VideoId:  input.VideoId,
		Rate:     input.Rate,
	})
	if err != nil {
		if errors.Is(err, room.ErrCommandDropped) {
			return nil
		}
		return err
	}

	c.broadcast(ctx, resp.Conns, &Output{
		Type:    "play",
		Payload: playbackPayloadOf(resp),
	})

	return nil
}

type PauseInput struct {
	Room    string  `json:"room" validate:"required,max=64"`
	Time    float64 `json:"time" validate:"min=0"`
	VideoId string  `json:"video_id" validate:"omitempty,max=128"`
}

func (c *controller) handlePause(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input PauseInput
	if !c.decode(ctx, payload, &input) {
		return nil
	}

	resp, err := c.roomService.Pause(ctx, &room.PauseParams{
		Room:     input.Room,
		SenderId: c.getMemberIdFromCtx(ctx),
		Position: input.Time,
		VideoId:  input.VideoId,
	})
	if err != nil {
		if errors.Is(err, room.ErrCommandDropped) {
			return nil
		}
		return err
	}

	c.broadcast(ctx, resp.Conns, &Output{
		Type:    "pause",
		Payload: playbackPayloadOf(resp),
	})

	return nil
}

func playbackPayloadOf(resp room.CommandResponse) playbackPayload {
	return playbackPayload{
		Room:       resp.Room,
		Time:       resp.Position,
		VideoId:    resp.VideoId,
		Rate:       resp.Rate,
		ServerTime: resp.ServerTime,
		Seq:        resp.Seq,
	}
}

type RequestVideoStateInput struct {
	Room string `json:"room" validate:"required,max=64"`
}

func (c *controller) handleRequestVideoState(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input RequestVideoStateInput
	if !c.decode(ctx, payload, &input) {
		return nil
	}

	state, err := c.roomService.GetPlayerState(ctx, &room.GetPlayerStateParams{
		Room:     input.Room,
		SenderId: c.getMemberIdFromCtx(ctx),
	})
	if err != nil {
		if errors.Is(err, room.ErrNoPlayerState) {
			return nil
		}
		return err
	}

	return c.writeToConn(ctx, conn, &Output{
		Type:    "video-state-update",
		Payload: state,
	})
}

type SyncCheckInput struct {
	Room    string  `json:"room" validate:"required,max=64"`
	Time    float64 `json:"time" validate:"min=0"`
	Latency float64 `json:"latency" validate:"min=0"`
}

type resyncPayload struct {
	Time       float64 `json:"time"`
	ServerTime int64   `json:"server_time"`
}

func (c *controller) handleSyncCheck(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input SyncCheckInput
	if !c.decode(ctx, payload, &input) {
		return nil
	}

	resp, err := c.roomService.CheckSync(ctx, &room.CheckSyncParams{
		Room:      input.Room,
		SenderId:  c.getMemberIdFromCtx(ctx),
		Position:  input.Time,
		LatencyMs: input.Latency,
	})
	if err != nil {
		return err
	}

	if !resp.NeedsResync {
		return nil
	}

	// correction goes to the drifting member only, never the room
	return c.writeToConn(ctx, conn, &Output{
		Type: "resync",
		Payload: resyncPayload{
			Time:       resp.Position,
			ServerTime: resp.ServerTime,
		},
	})
}
