package service

import "sync"

// presenceEntry is the ephemeral per-session state announced into a room's
// typing channel. It lives only in memory and vanishes with the session.
type presenceEntry struct {
	UserID      string
	PersonaName string
	IsTyping    bool
}

// presenceRegistry tracks typing/presence state per room, keyed by session.
// It is deliberately not part of the persisted data model: state is added on
// subscribe and cleared on disconnect, with no timeout of its own.
type presenceRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]presenceEntry
}

func newPresenceRegistry() *presenceRegistry {
	return &presenceRegistry{rooms: make(map[string]map[string]presenceEntry)}
}

func (r *presenceRegistry) set(roomID, sessionID string, entry presenceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.rooms[roomID]
	if !ok {
		sessions = make(map[string]presenceEntry)
		r.rooms[roomID] = sessions
	}
	sessions[sessionID] = entry
}

func (r *presenceRegistry) clear(roomID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sessions, ok := r.rooms[roomID]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// typingNames returns the display names of users currently typing in the
// room, excluding the asking user's own sessions.
func (r *presenceRegistry) typingNames(roomID, excludeUserID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	seen := make(map[string]struct{})
	for _, entry := range r.rooms[roomID] {
		if !entry.IsTyping || entry.UserID == excludeUserID {
			continue
		}
		if _, dup := seen[entry.UserID]; dup {
			continue
		}
		seen[entry.UserID] = struct{}{}
		names = append(names, entry.PersonaName)
	}
	return names
}
