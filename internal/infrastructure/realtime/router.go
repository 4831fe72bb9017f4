package realtime

import (
	"sync"
)

// Router owns all live websocket sessions and the in-memory rooms they
// subscribe to. Rooms are addressed by the canonical room key derived
// from a participant pair; they exist only here, never in storage.
//
// The Router is constructed once per process and handed to request
// handlers explicitly. All maps are guarded by a single RWMutex since
// subscribe/unsubscribe calls arrive from arbitrary connections
// concurrently.
type Router struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection            // sessionID -> connection
	userSessions map[string]string                 // userID -> sessionID
	rooms        map[string]map[string]*Connection // roomKey -> sessionID -> connection
	sessionRooms map[string]map[string]struct{}    // sessionID -> set of roomKeys
}

// NewRouter constructs an initialized Router.
func NewRouter() *Router {
	return &Router{
		sessions:     make(map[string]*Connection),
		userSessions: make(map[string]string),
		rooms:        make(map[string]map[string]*Connection),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// Attach registers a connection for the given user. If a previous
// session exists for the same user it is replaced and closed, keeping
// one active socket per user.
func (r *Router) Attach(conn *Connection) {
	var previous *Connection

	r.mu.Lock()
	if existingID, ok := r.userSessions[conn.UserID]; ok {
		if existing := r.sessions[existingID]; existing != nil {
			previous = existing
			r.detachLocked(existingID)
		}
	}

	r.sessions[conn.ID] = conn
	r.userSessions[conn.UserID] = conn.ID
	r.sessionRooms[conn.ID] = make(map[string]struct{})
	r.mu.Unlock()

	conn.Start()

	if previous != nil {
		previous.Close(4001, "session replaced")
	}
}

// Detach removes the connection from every room it subscribed to and
// drops the session. It must run on every disconnect path so rooms never
// hold stale references.
func (r *Router) Detach(conn *Connection) {
	r.mu.Lock()
	r.detachLocked(conn.ID)
	r.mu.Unlock()
}

// Subscribe adds the connection to the room's subscriber set.
// Subscribing twice has no additional effect.
func (r *Router) Subscribe(roomKey string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[conn.ID]; !ok {
		return
	}

	room := r.rooms[roomKey]
	if room == nil {
		room = make(map[string]*Connection)
		r.rooms[roomKey] = room
	}
	room[conn.ID] = conn

	memberships := r.sessionRooms[conn.ID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		r.sessionRooms[conn.ID] = memberships
	}
	memberships[roomKey] = struct{}{}
}

// Unsubscribe removes the connection from the room.
func (r *Router) Unsubscribe(roomKey string, conn *Connection) {
	r.mu.Lock()
	r.leaveLocked(roomKey, conn.ID)
	r.mu.Unlock()
}

// Broadcast writes payload to every connection currently subscribed to
// the room, best-effort, and returns how many sends were accepted. There
// is no queuing for peers that are not subscribed; they catch up through
// the durable history.
func (r *Router) Broadcast(roomKey string, payload []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, conn := range r.rooms[roomKey] {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// NotifyUser delivers payload to the current connection of the given
// user, regardless of room membership.
func (r *Router) NotifyUser(userID string, payload []byte) bool {
	r.mu.RLock()
	sessionID, ok := r.userSessions[userID]
	if !ok {
		r.mu.RUnlock()
		return false
	}
	conn := r.sessions[sessionID]
	r.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.Send(payload) == nil
}

// Close terminates all tracked connections and clears router state.
func (r *Router) Close() {
	r.mu.Lock()
	sessions := make([]*Connection, 0, len(r.sessions))
	for _, conn := range r.sessions {
		sessions = append(sessions, conn)
	}
	r.sessions = make(map[string]*Connection)
	r.userSessions = make(map[string]string)
	r.rooms = make(map[string]map[string]*Connection)
	r.sessionRooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "router shutdown")
	}
}

func (r *Router) detachLocked(sessionID string) {
	conn, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)

	if current, ok := r.userSessions[conn.UserID]; ok && current == sessionID {
		delete(r.userSessions, conn.UserID)
	}

	for roomKey := range r.sessionRooms[sessionID] {
		r.leaveLocked(roomKey, sessionID)
	}
	delete(r.sessionRooms, sessionID)
}

func (r *Router) leaveLocked(roomKey string, sessionID string) {
	room := r.rooms[roomKey]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(r.rooms, roomKey)
	}
	if memberships, ok := r.sessionRooms[sessionID]; ok {
		delete(memberships, roomKey)
		if len(memberships) == 0 {
			delete(r.sessionRooms, sessionID)
		}
	}
}
