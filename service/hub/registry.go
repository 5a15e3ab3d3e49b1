package hub

import (
	"sync"
)

// PresenceFunc observes a user's online/offline edge: online fires on
// the user's first live connection, offline on the last one going away.
type PresenceFunc func(userID string, online bool)

// Registry tracks authenticated user identity -> live connections.
// All mutations are safe under concurrent register/unregister from
// independent connections. Presence edges are serialized per user:
// on a reconnect race the offline edge of the dying connection is
// always observed before the online edge of the new one.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Client // user -> conn_id -> client
	byConn map[string]*Client            // conn_id -> client

	onPresence PresenceFunc

	edgeMu    sync.Mutex
	userEdges map[string]*sync.Mutex // per-user edge ordering
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:    make(map[string]map[string]*Client),
		byConn:    make(map[string]*Client),
		userEdges: make(map[string]*sync.Mutex),
	}
}

// SetPresenceFunc installs the transition observer. Call before the
// first Register; the callback runs outside the registry lock but
// under the user's edge lock, so edges for one user never interleave.
func (r *Registry) SetPresenceFunc(fn PresenceFunc) { r.onPresence = fn }

// edgeLock returns the mutex held across a user's index mutation and
// its presence callback. Entries live for the process.
func (r *Registry) edgeLock(userID string) *sync.Mutex {
	r.edgeMu.Lock()
	defer r.edgeMu.Unlock()
	l := r.userEdges[userID]
	if l == nil {
		l = &sync.Mutex{}
		r.userEdges[userID] = l
	}
	return l
}

// Register adds an authenticated connection to both indexes.
func (r *Registry) Register(c *Client) {
	el := r.edgeLock(c.UserID)
	el.Lock()
	defer el.Unlock()

	r.mu.Lock()
	m := r.byUser[c.UserID]
	first := len(m) == 0
	if m == nil {
		m = make(map[string]*Client)
		r.byUser[c.UserID] = m
	}
	m[c.ConnID] = c
	r.byConn[c.ConnID] = c
	r.mu.Unlock()

	if first && r.onPresence != nil {
		r.onPresence(c.UserID, true)
	}
}

// Unregister removes the connection and reports the client that was
// removed (nil when unknown). The caller is responsible for tearing
// down room membership; the offline edge fires here when this was the
// user's last connection.
func (r *Registry) Unregister(connID string) *Client {
	r.mu.RLock()
	c, ok := r.byConn[connID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	el := r.edgeLock(c.UserID)
	el.Lock()
	defer el.Unlock()

	r.mu.Lock()
	if _, still := r.byConn[connID]; !still {
		// lost the race to a concurrent Unregister of the same conn
		r.mu.Unlock()
		return nil
	}
	delete(r.byConn, connID)
	last := false
	if m := r.byUser[c.UserID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byUser, c.UserID)
			last = true
		}
	}
	r.mu.Unlock()

	if last && r.onPresence != nil {
		r.onPresence(c.UserID, false)
	}
	return c
}

func (r *Registry) GetByConn(connID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

// ListByUser snapshots every live connection of a user.
func (r *Registry) ListByUser(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// Online reports whether the user has at least one live connection.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

func (r *Registry) CountConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

func (r *Registry) CountUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// listAll snapshots every connection (shutdown path).
func (r *Registry) listAll() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, c)
	}
	return out
}
