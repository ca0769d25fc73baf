package qdemux

import (
	"github.com/qdemux/qdemux/internal/utils"
)

// A sessionEntry is shared by every connection ID mapped to the same session.
// It knows the full set of IDs, so that teardown can remove all of them
// atomically, with no window where one ID still resolves.
type sessionEntry struct {
	session Session
	connIDs []ConnectionID
}

// sessionMap is the connection ID table: it maps connection IDs to sessions.
// A session is reachable under one or more IDs (its original ID, a
// dispatcher-assigned replacement, and IDs it issued later).
//
// It is not goroutine-safe: all dispatcher state is owned by a single event
// loop.
type sessionMap struct {
	entries map[ConnectionID]*sessionEntry
	logger  utils.Logger
}

func newSessionMap(logger utils.Logger) *sessionMap {
	return &sessionMap{
		entries: make(map[ConnectionID]*sessionEntry),
		logger:  logger,
	}
}

func (m *sessionMap) Lookup(id ConnectionID) (Session, bool) {
	entry, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return entry.session, true
}

// Insert adds a session under a new connection ID.
// It fails if the ID is already claimed.
func (m *sessionMap) Insert(id ConnectionID, s Session) bool {
	if _, ok := m.entries[id]; ok {
		return false
	}
	m.entries[id] = &sessionEntry{session: s, connIDs: []ConnectionID{id}}
	return true
}

// AddAlias makes the session reachable under existingID also reachable under
// newID. It fails if existingID is unknown or newID is already claimed.
func (m *sessionMap) AddAlias(existingID, newID ConnectionID) bool {
	entry, ok := m.entries[existingID]
	if !ok {
		return false
	}
	if _, ok := m.entries[newID]; ok {
		return false
	}
	entry.connIDs = append(entry.connIDs, newID)
	m.entries[newID] = entry
	return true
}

// RemoveAllIDs removes every connection ID mapped to the given session.
// It returns the removed IDs.
func (m *sessionMap) RemoveAllIDs(s Session) []ConnectionID {
	entry, ok := m.entries[s.ConnectionID()]
	if !ok || entry.session != s {
		// the canonical ID was retired; scan for the entry
		for _, e := range m.entries {
			if e.session == s {
				entry = e
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil
	}
	removed := entry.connIDs
	for _, id := range removed {
		delete(m.entries, id)
	}
	entry.connIDs = nil
	return removed
}

// Retire removes a single connection ID, driven by RETIRE_CONNECTION_ID.
// The session stays reachable under its remaining IDs.
func (m *sessionMap) Retire(id ConnectionID) {
	entry, ok := m.entries[id]
	if !ok {
		return
	}
	delete(m.entries, id)
	for i, cid := range entry.connIDs {
		if cid == id {
			entry.connIDs = append(entry.connIDs[:i], entry.connIDs[i+1:]...)
			break
		}
	}
	if len(entry.connIDs) == 0 {
		m.logger.Errorf("Retired the last connection ID of a session")
	}
}

// NumSessions counts unique sessions, not connection IDs.
func (m *sessionMap) NumSessions() int {
	seen := make(map[*sessionEntry]struct{}, len(m.entries))
	for _, entry := range m.entries {
		seen[entry] = struct{}{}
	}
	return len(seen)
}

// PerformActionOnSessions visits every session exactly once.
// The action must not mutate the map.
func (m *sessionMap) PerformActionOnSessions(action func(Session)) {
	seen := make(map[*sessionEntry]struct{}, len(m.entries))
	for _, entry := range m.entries {
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		action(entry.session)
	}
}

// SessionsSnapshot returns every session exactly once.
// Safe to use for operations that mutate the map, like closing all sessions.
func (m *sessionMap) SessionsSnapshot() []Session {
	sessions := make([]Session, 0, len(m.entries))
	m.PerformActionOnSessions(func(s Session) { sessions = append(sessions, s) })
	return sessions
}
