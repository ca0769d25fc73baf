package qdemux

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/qdemux/qdemux/internal/protocol"
)

// connIDGenerator computes the connection IDs the dispatcher hands out.
type connIDGenerator struct {
	expectedLen int
}

// Replace maps a client-chosen connection ID to the ID the dispatcher
// assigns to the session. IDs that already have the expected length are kept
// unchanged. The mapping is a pure function of (id, version): a packet still
// addressed to the original ID can be re-routed by recomputing it.
func (g *connIDGenerator) Replace(id ConnectionID, v Version) ConnectionID {
	if id.Len() == g.expectedLen {
		return id
	}
	b := make([]byte, 0, protocol.MaxConnectionIDLen)
	h := fnv.New64a()
	var versionLabel [4]byte
	binary.BigEndian.PutUint32(versionLabel[:], uint32(v))
	h.Write(versionLabel[:])
	h.Write(id.Bytes())
	b = h.Sum(b)
	// chain the hash until enough bytes are available
	for len(b) < g.expectedLen {
		h.Reset()
		h.Write(b)
		b = h.Sum(b)
	}
	return protocol.ParseConnectionID(b[:g.expectedLen])
}
