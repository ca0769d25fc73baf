package qdemux

import (
	"testing"

	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/internal/utils"

	"github.com/stretchr/testify/require"
)

func TestSessionMapInsertAndLookup(t *testing.T) {
	m := newSessionMap(utils.DefaultLogger)
	id1 := protocol.ParseConnectionID([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	id2 := protocol.ParseConnectionID([]byte{8, 7, 6, 5, 4, 3, 2, 1})
	s := &fakeSession{connID: id1}

	_, ok := m.Lookup(id1)
	require.False(t, ok)

	require.True(t, m.Insert(id1, s))
	found, ok := m.Lookup(id1)
	require.True(t, ok)
	require.Equal(t, s, found)

	// duplicate insert fails
	require.False(t, m.Insert(id1, &fakeSession{connID: id1}))

	// alias on unknown ID fails
	require.False(t, m.AddAlias(id2, id2))
	// alias on claimed ID fails
	require.True(t, m.Insert(id2, &fakeSession{connID: id2}))
	require.False(t, m.AddAlias(id1, id2))
}

func TestSessionMapAliases(t *testing.T) {
	m := newSessionMap(utils.DefaultLogger)
	id1 := protocol.ParseConnectionID([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	id2 := protocol.ParseConnectionID([]byte{8, 7, 6, 5, 4, 3, 2, 1})
	s := &fakeSession{connID: id1}

	require.True(t, m.Insert(id1, s))
	require.True(t, m.AddAlias(id1, id2))
	require.Equal(t, 1, m.NumSessions())

	s1, ok := m.Lookup(id1)
	require.True(t, ok)
	s2, ok := m.Lookup(id2)
	require.True(t, ok)
	require.Same(t, s1.(*fakeSession), s2.(*fakeSession))
}

// Closing a session removes all of its connection IDs atomically.
func TestSessionMapRemoveAllIDs(t *testing.T) {
	m := newSessionMap(utils.DefaultLogger)
	id1 := protocol.ParseConnectionID([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	id2 := protocol.ParseConnectionID([]byte{8, 7, 6, 5, 4, 3, 2, 1})
	id3 := protocol.ParseConnectionID([]byte{3, 3, 3, 3, 3, 3, 3, 3})
	s := &fakeSession{connID: id1}

	require.True(t, m.Insert(id1, s))
	require.True(t, m.AddAlias(id1, id2))
	require.True(t, m.AddAlias(id2, id3))

	removed := m.RemoveAllIDs(s)
	require.ElementsMatch(t, []ConnectionID{id1, id2, id3}, removed)
	for _, id := range []ConnectionID{id1, id2, id3} {
		_, ok := m.Lookup(id)
		require.False(t, ok)
	}
	require.Zero(t, m.NumSessions())

	// removing an unknown session is a no-op
	require.Nil(t, m.RemoveAllIDs(&fakeSession{connID: id1}))
}

func TestSessionMapRetire(t *testing.T) {
	m := newSessionMap(utils.DefaultLogger)
	id1 := protocol.ParseConnectionID([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	id2 := protocol.ParseConnectionID([]byte{8, 7, 6, 5, 4, 3, 2, 1})
	s := &fakeSession{connID: id1}

	require.True(t, m.Insert(id1, s))
	require.True(t, m.AddAlias(id1, id2))

	m.Retire(id1)
	_, ok := m.Lookup(id1)
	require.False(t, ok)
	_, ok = m.Lookup(id2)
	require.True(t, ok)
	require.Equal(t, 1, m.NumSessions())

	// removal by session still works after the canonical ID was retired
	removed := m.RemoveAllIDs(s)
	require.Equal(t, []ConnectionID{id2}, removed)
}

func TestSessionMapSnapshotVisitsEachSessionOnce(t *testing.T) {
	m := newSessionMap(utils.DefaultLogger)
	id1 := protocol.ParseConnectionID([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	id2 := protocol.ParseConnectionID([]byte{8, 7, 6, 5, 4, 3, 2, 1})
	id3 := protocol.ParseConnectionID([]byte{3, 3, 3, 3, 3, 3, 3, 3})
	s1 := &fakeSession{connID: id1}
	s2 := &fakeSession{connID: id3}

	require.True(t, m.Insert(id1, s1))
	require.True(t, m.AddAlias(id1, id2))
	require.True(t, m.Insert(id3, s2))

	require.Equal(t, 2, m.NumSessions())
	require.ElementsMatch(t, []Session{s1, s2}, m.SessionsSnapshot())

	var count int
	m.PerformActionOnSessions(func(Session) { count++ })
	require.Equal(t, 2, count)
}
