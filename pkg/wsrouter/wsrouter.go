// Package wsrouter routes tagged JSON frames ({"type": ..., "payload": ...})
// read from a websocket connection to per-type handlers.
package wsrouter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type WSRouter struct {
	routes map[string]HandlerFunc
	logger *slog.Logger
}

func New(logger *slog.Logger) *WSRouter {
	return &WSRouter{
		routes: make(map[string]HandlerFunc),
		logger: logger,
	}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// ServeConn reads frames until the connection fails. Frames with an unknown
// type and handler errors are logged and skipped, never answered: inbound
// noise must not produce outbound traffic.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, ok := r.routes[msg.Type]
		if !ok {
			r.logger.DebugContext(ctx, "unknown message type", "type", msg.Type)
			continue
		}

		ctx := ctxWithMessageType(ctx, msg.Type)
		if err := handler(ctx, conn, msg.Payload); err != nil {
			r.logger.DebugContext(ctx, "handler failed", "type", msg.Type, "error", err)
		}
	}
}
