package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/syncroom/server/internal/service/room"
	"github.com/syncroom/server/pkg/validator"
	"github.com/syncroom/server/pkg/wsrouter"
)

type iRoomService interface {
	ConnectMember(context.Context, *room.ConnectMemberParams) error
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	DisconnectMember(context.Context, *room.DisconnectMemberParams) (room.DisconnectMemberResponse, error)
	LoadVideo(context.Context, *room.LoadVideoParams) (room.CommandResponse, error)
	Play(context.Context, *room.PlayParams) (room.CommandResponse, error)
	Pause(context.Context, *room.PauseParams) (room.CommandResponse, error)
	CheckSync(context.Context, *room.CheckSyncParams) (room.CheckSyncResponse, error)
	GetPlayerState(context.Context, *room.GetPlayerStateParams) (room.StateUpdate, error)
}

type Config struct {
	// StaticDir serves the bundled web client when non-empty.
	StaticDir string
}

type controller struct {
	roomService iRoomService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
	wsMux       *wsrouter.WSRouter
	staticDir   string

	// gorilla conns forbid concurrent writers; broadcasts triggered by one
	// member's read loop write to every other member's conn, so each conn
	// gets its own write lock for the duration of its session.
	writersMu sync.RWMutex
	writers   map[*websocket.Conn]*sync.Mutex
}

func NewController(roomService iRoomService, cfg *Config, logger *slog.Logger) *controller {
	c := &controller{
		roomService: roomService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate:  validator.NewValidator(),
		logger:    logger,
		staticDir: cfg.StaticDir,
		writers:   make(map[*websocket.Conn]*sync.Mutex),
	}
	c.wsMux = c.initWSMux()

	return c
}

func (c *controller) initWSMux() *wsrouter.WSRouter {
	mux := wsrouter.New(c.logger)
	mux.Handle("create-room", c.handleCreateRoom)
	mux.Handle("join-room", c.handleJoinRoom)
	mux.Handle("load-video", c.handleLoadVideo)
	mux.Handle("play", c.handlePlay)
	mux.Handle("pause", c.handlePause)
	mux.Handle("request-video-state", c.handleRequestVideoState)
	mux.Handle("sync-check", c.handleSyncCheck)

	return mux
}

type ctxKey string

const memberIdCtxKey ctxKey = "member_id"

func (c *controller) getMemberIdFromCtx(ctx context.Context) string {
	memberId, _ := ctx.Value(memberIdCtxKey).(string)
	return memberId
}
