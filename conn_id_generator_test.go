package qdemux

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/stretchr/testify/require"

	"github.com/qdemux/qdemux/internal/protocol"
)

func TestConnIDGeneratorIdentity(t *testing.T) {
	gen := connIDGenerator{expectedLen: 8}
	id := connIDFromBytes(1, 2, 3, 4, 5, 6, 7, 8)
	require.Equal(t, id, gen.Replace(id, Version1))
}

func TestConnIDGeneratorReplacement(t *testing.T) {
	gen := connIDGenerator{expectedLen: 8}
	rng := rand.New(rand.NewSource(0x1337))

	for _, l := range []int{9, 12, 16, 20} {
		b := make([]byte, l)
		rng.Read(b)
		id := protocol.ParseConnectionID(b)

		replaced := gen.Replace(id, Version1)
		require.Equal(t, 8, replaced.Len())
		require.NotEqual(t, id, replaced)
		// deterministic: the same input always maps to the same output
		require.Equal(t, replaced, gen.Replace(id, Version1))
		// but the mapping depends on the version
		require.NotEqual(t, replaced, gen.Replace(id, Version2))
	}
}

func TestConnIDGeneratorLongerExpectedLength(t *testing.T) {
	// the hash is chained when a single digest is too short
	gen := connIDGenerator{expectedLen: 18}
	id := connIDFromBytes(1, 2, 3, 4)
	replaced := gen.Replace(id, Version1)
	require.Equal(t, 18, replaced.Len())
	require.Equal(t, replaced, gen.Replace(id, Version1))
}
