package controller

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/syncroom/server/internal/service/room"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type userCountPayload struct {
	Room  string `json:"room"`
	Count int    `json:"count"`
}

func (c *controller) addWriter(conn *websocket.Conn) {
	c.writersMu.Lock()
	defer c.writersMu.Unlock()
	c.writers[conn] = &sync.Mutex{}
}

func (c *controller) removeWriter(conn *websocket.Conn) {
	c.writersMu.Lock()
	defer c.writersMu.Unlock()
	delete(c.writers, conn)
}

func (c *controller) writeToConn(ctx context.Context, conn *websocket.Conn, output *Output) error {
	c.writersMu.RLock()
	mu := c.writers[conn]
	c.writersMu.RUnlock()

	if mu == nil {
		// conn is already torn down
		return websocket.ErrCloseSent
	}

	mu.Lock()
	defer mu.Unlock()

	return conn.WriteJSON(output)
}

// broadcast delivers output to every conn; a dead conn is logged and skipped
// so one member's failure never blocks the rest of the room.
func (c *controller) broadcast(ctx context.Context, conns []*websocket.Conn, output *Output) {
	for _, conn := range conns {
		if err := c.writeToConn(ctx, conn, output); err != nil {
			c.logger.DebugContext(ctx, "failed to write to conn", "type", output.Type, "error", err)
		}
	}
}

func (c *controller) writeError(ctx context.Context, conn *websocket.Conn, message string) {
	if err := c.writeToConn(ctx, conn, &Output{
		Type:    "error",
		Payload: errorPayload{Message: message},
	}); err != nil {
		c.logger.DebugContext(ctx, "failed to write error", "error", err)
	}
}

func (c *controller) broadcastUserCount(ctx context.Context, roomId string, count int, conns []*websocket.Conn) {
	c.broadcast(ctx, conns, &Output{
		Type:    "user-count-update",
		Payload: userCountPayload{Room: roomId, Count: count},
	})
}

func (c *controller) broadcastLeftRoomCount(ctx context.Context, left *room.CountUpdate) {
	if left == nil {
		return
	}

	c.broadcastUserCount(ctx, left.Room, left.Count, left.Conns)
}
