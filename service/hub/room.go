package hub

import (
	"sync"
)

type room struct {
	id      string
	kind    RoomKind
	members map[string]*Client // conn_id -> client
}

// Rooms tracks membership of connections in named logical channels.
// Rooms are created on first join and evicted as soon as membership
// drops to zero, so an idle process never accumulates dead rooms.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	byConn map[string]map[string]struct{} // conn_id -> room ids joined
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]*room),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to the room, creating it on first join.
// Joining twice is a no-op. The kind is fixed by the creating join.
func (rs *Rooms) Join(c *Client, roomID string, kind RoomKind) {
	if c == nil || roomID == "" {
		return
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	r := rs.rooms[roomID]
	if r == nil {
		r = &room{id: roomID, kind: kind, members: make(map[string]*Client)}
		rs.rooms[roomID] = r
	}
	r.members[c.ConnID] = c

	joined := rs.byConn[c.ConnID]
	if joined == nil {
		joined = make(map[string]struct{})
		rs.byConn[c.ConnID] = joined
	}
	joined[roomID] = struct{}{}
}

// Leave removes the connection from the room. Leaving a room the
// connection is not a member of is a no-op, matching the idempotent
// join. The room is reclaimed when its member set empties.
func (rs *Rooms) Leave(connID, roomID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.leaveLocked(connID, roomID)
}

// LeaveAll removes the connection from every room it was a member of,
// returning the room ids it left. Called on unregister/disconnect.
func (rs *Rooms) LeaveAll(connID string) []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	joined := rs.byConn[connID]
	if len(joined) == 0 {
		delete(rs.byConn, connID)
		return nil
	}
	out := make([]string, 0, len(joined))
	for roomID := range joined {
		out = append(out, roomID)
	}
	for _, roomID := range out {
		rs.leaveLocked(connID, roomID)
	}
	return out
}

func (rs *Rooms) leaveLocked(connID, roomID string) {
	r := rs.rooms[roomID]
	if r != nil {
		delete(r.members, connID)
		if len(r.members) == 0 {
			delete(rs.rooms, roomID)
		}
	}
	if joined := rs.byConn[connID]; joined != nil {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(rs.byConn, connID)
		}
	}
}

// MembersOf snapshots the room's current members. The dispatcher
// delivers against this snapshot; joins racing a publish see only
// later events.
func (rs *Rooms) MembersOf(roomID string) []*Client {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	r := rs.rooms[roomID]
	if r == nil {
		return nil
	}
	out := make([]*Client, 0, len(r.members))
	for _, c := range r.members {
		out = append(out, c)
	}
	return out
}

// IsMember reports whether the connection is currently in the room.
func (rs *Rooms) IsMember(connID, roomID string) bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	r := rs.rooms[roomID]
	if r == nil {
		return false
	}
	_, ok := r.members[connID]
	return ok
}

// KindOf returns the room kind, or "" when the room does not exist.
func (rs *Rooms) KindOf(roomID string) RoomKind {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	if r := rs.rooms[roomID]; r != nil {
		return r.kind
	}
	return ""
}

func (rs *Rooms) Count() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.rooms)
}

// RoomsOf lists the room ids the connection has joined.
func (rs *Rooms) RoomsOf(connID string) []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	joined := rs.byConn[connID]
	if len(joined) == 0 {
		return nil
	}
	out := make([]string, 0, len(joined))
	for roomID := range joined {
		out = append(out, roomID)
	}
	return out
}
