// Package inmemory keeps the conn<->member bookkeeping for live websocket
// connections. Closing connections is the caller's business.
package inmemory

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/syncroom/server/internal/repository/connection"
)

type repo struct {
	mu       sync.RWMutex
	byConn   map[*websocket.Conn]string
	byMember map[string]*websocket.Conn
}

func NewRepo() *repo {
	return &repo{
		byConn:   make(map[*websocket.Conn]string),
		byMember: make(map[string]*websocket.Conn),
	}
}

func (r *repo) Add(conn *websocket.Conn, memberId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byConn[conn] != "" || r.byMember[memberId] != nil {
		return connection.ErrAlreadyExists
	}

	r.byConn[conn] = memberId
	r.byMember[memberId] = conn

	return nil
}

func (r *repo) RemoveByMemberId(memberId string) (*websocket.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byMember[memberId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	delete(r.byConn, conn)
	delete(r.byMember, memberId)

	return conn, nil
}

func (r *repo) RemoveByConn(conn *websocket.Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	memberId, ok := r.byConn[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	delete(r.byConn, conn)
	delete(r.byMember, memberId)

	return memberId, nil
}

func (r *repo) GetConn(memberId string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byMember[memberId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetMemberId(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	memberId, ok := r.byConn[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return memberId, nil
}
