package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"sync"

	"github.com/coder/websocket"

	"github.com/aulanet/aulanet-backend/internal/model"
)

// Registry owns the room state for one server instance and is injected into
// the gateway rather than living as package globals.  A connection is
// tracked in byUser and byRole always, plus the per-student room (estudiante)
// or the flat admin set (admin).  All mutation is guarded by mu; broadcasts
// snapshot membership under the read lock and write outside it, so a
// concurrent join may or may not see the in-flight message but a removal is
// always safe.
//
// Note: this state is per-process.  Running more than one instance requires
// externalizing fan-out (or routing all sockets to one instance).
type Registry struct {
	mu       sync.RWMutex
	students map[uint64]map[*Conn]struct{}
	admins   map[*Conn]struct{}
	byRole   map[string]map[*Conn]struct{}
	byUser   map[uint64]map[*Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		students: make(map[uint64]map[*Conn]struct{}),
		admins:   make(map[*Conn]struct{}),
		byRole:   make(map[string]map[*Conn]struct{}),
		byUser:   make(map[uint64]map[*Conn]struct{}),
	}
}

// Add registers an authenticated connection in every registry its role
// belongs to.  Multiple tabs/devices of the same user coexist as separate
// connections.
func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	addToSet(r.byRole, c.Role, c)
	addToSet(r.byUser, c.UserID, c)

	switch c.Role {
	case model.RoleEstudiante:
		addToSet(r.students, c.StudentID, c)
	case model.RoleAdmin:
		r.admins[c] = struct{}{}
	}
}

// Remove deregisters a connection everywhere.  It is a no-op when the
// connection was already removed, so close paths may call it freely.
func (r *Registry) Remove(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removeFromSet(r.byRole, c.Role, c)
	removeFromSet(r.byUser, c.UserID, c)

	switch c.Role {
	case model.RoleEstudiante:
		removeFromSet(r.students, c.StudentID, c)
	case model.RoleAdmin:
		delete(r.admins, c)
	}
}

func addToSet[K comparable](m map[K]map[*Conn]struct{}, key K, c *Conn) {
	set, ok := m[key]
	if !ok {
		set = make(map[*Conn]struct{})
		m[key] = set
	}
	set[c] = struct{}{}
}

func removeFromSet[K comparable](m map[K]map[*Conn]struct{}, key K, c *Conn) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(m, key)
	}
}

// BroadcastStudent sends payload to every open socket in one student's room.
func (r *Registry) BroadcastStudent(ctx context.Context, studentID uint64, payload any) {
	r.mu.RLock()
	targets := snapshot(r.students[studentID])
	r.mu.RUnlock()
	r.push(ctx, targets, payload)
}

// BroadcastAdmins sends payload to every connected admin socket.
func (r *Registry) BroadcastAdmins(ctx context.Context, payload any) {
	r.mu.RLock()
	targets := snapshot(r.admins)
	r.mu.RUnlock()
	r.push(ctx, targets, payload)
}

// BroadcastRole sends payload to every socket whose principal holds role.
func (r *Registry) BroadcastRole(ctx context.Context, role string, payload any) {
	r.mu.RLock()
	targets := snapshot(r.byRole[role])
	r.mu.RUnlock()
	r.push(ctx, targets, payload)
}

// BroadcastUser sends payload to every socket of one user.  A non-empty
// role narrows delivery to that user's sockets holding the role, which lets
// callers target e.g. an advisor's session specifically.
func (r *Registry) BroadcastUser(ctx context.Context, userID uint64, payload any, role string) {
	r.mu.RLock()
	targets := snapshot(r.byUser[userID])
	r.mu.RUnlock()
	if role != "" {
		filtered := targets[:0]
		for _, c := range targets {
			if c.Role == role {
				filtered = append(filtered, c)
			}
		}
		targets = filtered
	}
	r.push(ctx, targets, payload)
}

// push serializes payload once and delivers it best-effort: a failed or
// broken socket is skipped, never aborting the rest of the set.
func (r *Registry) push(ctx context.Context, targets []*Conn, payload any) {
	if len(targets) == 0 {
		return
	}
	frame, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: drop broadcast, marshal failed: %v", err)
		return
	}
	for _, c := range targets {
		if err := c.Send(ctx, frame); err != nil {
			log.Printf("ws: send to user %d failed: %v", c.UserID, err)
		}
	}
}

func snapshot(set map[*Conn]struct{}) []*Conn {
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// RunHeartbeat sweeps all registered sockets every interval until ctx is
// done.  A socket that did not answer the previous sweep's ping is
// terminated and removed; a silently dead connection is therefore reclaimed
// within roughly two intervals.
func (r *Registry) RunHeartbeat(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep is one heartbeat pass: terminate sockets whose previous ping went
// unanswered, then mark the rest not-alive and ping them.  The ping runs in
// its own goroutine because Ping blocks until the pong (or timeout); success
// flips alive back on for the next sweep to observe.
func (r *Registry) Sweep(ctx context.Context) {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.byUser))
	for _, set := range r.byUser {
		for c := range set {
			conns = append(conns, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range conns {
		if !c.alive.Load() {
			c.Terminate(websocket.StatusGoingAway, "heartbeat timeout")
			r.Remove(c)
			continue
		}
		c.alive.Store(false)
		go func(c *Conn) {
			pctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			defer cancel()
			if err := c.sock.Ping(pctx); err == nil {
				c.alive.Store(true)
			}
		}(c)
	}
}

// Counts used by monitoring and tests.

func (r *Registry) StudentConns(studentID uint64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.students[studentID])
}

func (r *Registry) AdminConns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.admins)
}

func (r *Registry) RoleConns(role string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRole[role])
}

func (r *Registry) UserConns(userID uint64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}
