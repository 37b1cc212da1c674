package hub

import (
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Pranita-10/LiveCodeApp/domain"
)

const (
	defaultCode     = "// Start coding here...\nconsole.log(\"Hello, World!\");"
	defaultLanguage = "javascript"

	roomIDLength   = 6
	roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type client struct {
	conn   domain.Sender
	name   string
	roomID string
}

type room struct {
	id        string
	code      string
	language  string
	members   map[string]struct{}
	createdAt time.Time
}

// Hub owns the connection and room registries. A single mutex serializes all
// mutation, which reproduces the ordering a single-threaded event loop would
// give; fan-out writes happen outside the lock against member snapshots.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	rooms   map[string]*room
}

func New() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]*room),
	}
}

func (h *Hub) Register(conn domain.Sender) {
	h.mu.Lock()
	h.clients[conn.ID()] = &client{conn: conn, name: defaultName(conn.ID())}
	count := len(h.clients)
	h.mu.Unlock()

	slog.Info("client connected", "clientId", conn.ID(), "clients", count)
}

// Unregister drops the client from the registry, removing it from its room
// first. The returned Departure reports the room that was left, if any.
func (h *Hub) Unregister(clientID string) (domain.Departure, bool) {
	h.mu.Lock()
	c, ok := h.clients[clientID]
	if !ok {
		h.mu.Unlock()
		return domain.Departure{}, false
	}
	dep := h.removeMemberLocked(clientID, c)
	delete(h.clients, clientID)
	count := len(h.clients)
	h.mu.Unlock()

	slog.Info("client disconnected", "clientId", clientID, "clients", count)
	if dep == nil {
		return domain.Departure{}, false
	}
	return *dep, true
}

// CreateRoom allocates a room with the default document and language and
// makes the creator its sole member. A non-empty name updates the creator's
// display name. The Departure is non-nil when the creator had to leave a
// previous room to take membership in the new one.
func (h *Hub) CreateRoom(clientID, name string) (domain.RoomState, *domain.Departure, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return domain.RoomState{}, nil, false
	}
	left := h.removeMemberLocked(clientID, c)
	if name != "" {
		c.name = name
	}

	id := h.newRoomIDLocked()
	h.rooms[id] = &room{
		id:        id,
		code:      defaultCode,
		language:  defaultLanguage,
		members:   map[string]struct{}{clientID: {}},
		createdAt: time.Now(),
	}
	c.roomID = id

	slog.Info("room created", "room", id, "clientId", clientID)
	state := domain.RoomState{
		ID:       id,
		Code:     defaultCode,
		Language: defaultLanguage,
		Users:    []domain.User{{ID: clientID, Name: c.name}},
	}
	return state, left, true
}

// JoinRoom adds the client to an existing room. Room id lookup is
// case-insensitive. A missing room returns domain.ErrRoomNotFound without
// mutating anything.
func (h *Hub) JoinRoom(clientID, roomID, name string) (domain.RoomState, domain.User, *domain.Departure, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return domain.RoomState{}, domain.User{}, nil, domain.ErrRoomNotFound
	}
	id := strings.ToUpper(roomID)
	r, ok := h.rooms[id]
	if !ok {
		return domain.RoomState{}, domain.User{}, nil, domain.ErrRoomNotFound
	}

	var left *domain.Departure
	if c.roomID != id {
		left = h.removeMemberLocked(clientID, c)
	}
	if name != "" {
		c.name = name
	}
	r.members[clientID] = struct{}{}
	c.roomID = id

	slog.Info("client joined room", "room", id, "clientId", clientID, "members", len(r.members))
	state := domain.RoomState{ID: id, Code: r.code, Language: r.language, Users: h.usersLocked(r)}
	return state, domain.User{ID: clientID, Name: c.name}, left, nil
}

// SetCode replaces the document of the sender's room wholesale (last writer
// wins) and returns the room id for fan-out.
func (h *Hub) SetCode(clientID, code string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return "", false
	}
	r, ok := h.rooms[c.roomID]
	if !ok {
		return "", false
	}
	r.code = code
	return r.id, true
}

// SetLanguage replaces the language tag of the sender's room.
func (h *Hub) SetLanguage(clientID, language string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return "", false
	}
	r, ok := h.rooms[c.roomID]
	if !ok {
		return "", false
	}
	r.language = language
	return r.id, true
}

// Member reports the display name and current room of a client.
func (h *Hub) Member(clientID string) (name, roomID string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return "", "", false
	}
	return c.name, c.roomID, true
}

// LeaveRoom removes the client from its current room, deleting the room when
// the member set empties. ok is false when the client is in no room.
func (h *Hub) LeaveRoom(clientID string) (domain.Departure, bool) {
	h.mu.Lock()
	c, ok := h.clients[clientID]
	if !ok {
		h.mu.Unlock()
		return domain.Departure{}, false
	}
	dep := h.removeMemberLocked(clientID, c)
	h.mu.Unlock()

	if dep == nil {
		return domain.Departure{}, false
	}
	return *dep, true
}

// Broadcast delivers data to every live member of a room except excludeID.
// A failed send is logged and skipped; it never aborts the fan-out.
func (h *Hub) Broadcast(roomID string, data []byte, excludeID string) {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	recipients := make([]domain.Sender, 0, len(r.members))
	for id := range r.members {
		if id == excludeID {
			continue
		}
		if c, ok := h.clients[id]; ok {
			recipients = append(recipients, c.conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range recipients {
		if err := conn.Send(data); err != nil {
			slog.Warn("send failed", "clientId", conn.ID(), "room", roomID, "error", err)
		}
	}
}

func (h *Hub) Stats() (rooms, clients int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms), len(h.clients)
}

// removeMemberLocked detaches a client from its room, deleting the room when
// it empties. Returns nil when the client was in no room.
func (h *Hub) removeMemberLocked(clientID string, c *client) *domain.Departure {
	if c.roomID == "" {
		return nil
	}
	roomID := c.roomID
	c.roomID = ""

	r, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	delete(r.members, clientID)
	if len(r.members) == 0 {
		delete(h.rooms, roomID)
		slog.Info("room removed", "room", roomID)
		return &domain.Departure{RoomID: roomID, UserID: clientID, Name: c.name}
	}
	return &domain.Departure{RoomID: roomID, UserID: clientID, Name: c.name, Remaining: h.usersLocked(r)}
}

func (h *Hub) usersLocked(r *room) []domain.User {
	users := make([]domain.User, 0, len(r.members))
	for id := range r.members {
		if c, ok := h.clients[id]; ok {
			users = append(users, domain.User{ID: id, Name: c.name})
		}
	}
	return users
}

// newRoomIDLocked draws short uppercase codes until one is unused. Ids are
// meant to be typed and shared by humans, so the space stays small and
// uniqueness is enforced by retry instead.
func (h *Hub) newRoomIDLocked() string {
	for {
		b := make([]byte, roomIDLength)
		for i := range b {
			b[i] = roomIDAlphabet[rand.Intn(len(roomIDAlphabet))]
		}
		if _, taken := h.rooms[string(b)]; !taken {
			return string(b)
		}
	}
}

func defaultName(id string) string {
	if len(id) > 4 {
		id = id[:4]
	}
	return "User_" + id
}
