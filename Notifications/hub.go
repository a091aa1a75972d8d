package Notifications

import (
	"log"
	"sync"

	"Osprey/Models"
)

// Conn is the slice of a websocket connection the hub needs. *websocket.Conn
// satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// SessionStore maps a user to at most one live connection. The in-memory
// implementation below is process-scoped; the interface is the seam for a
// distributed backend when running more than one process.
type SessionStore interface {
	Put(userID uint, conn Conn)
	Remove(conn Conn)
	Get(userID uint) (Conn, bool)
}

// MemorySessionStore is a mutex-guarded map. A second connect for the same
// user overwrites the entry; the older connection is left open and simply
// stops receiving pushes.
type MemorySessionStore struct {
	mu    sync.RWMutex
	conns map[uint]Conn
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{conns: make(map[uint]Conn)}
}

func (s *MemorySessionStore) Put(userID uint, conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[userID] = conn
}

func (s *MemorySessionStore) Remove(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, c := range s.conns {
		if c == conn {
			delete(s.conns, userID)
			break
		}
	}
}

func (s *MemorySessionStore) Get(userID uint) (Conn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.conns[userID]
	return conn, ok
}

// Envelope is the wire frame for every server-to-client message.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub pushes notifications to connected clients.
type Hub struct {
	Sessions SessionStore
}

func NewHub() *Hub {
	return &Hub{Sessions: NewMemorySessionStore()}
}

func (h *Hub) Register(userID uint, conn Conn) {
	h.Sessions.Put(userID, conn)
}

func (h *Hub) Unregister(conn Conn) {
	h.Sessions.Remove(conn)
}

// Push delivers the notification to the user's live connection, if any.
// A write failure drops the stale connection.
func (h *Hub) Push(userID uint, n *Models.Notification) {
	conn, ok := h.Sessions.Get(userID)
	if !ok {
		return
	}
	if err := conn.WriteJSON(Envelope{Event: "notification", Data: n}); err != nil {
		log.Printf("Dropping dead connection for user %d: %v", userID, err)
		h.Sessions.Remove(conn)
	}
}
