package qdemux

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"

	"github.com/qdemux/qdemux/internal/wire"
)

// statelessResetter derives stateless reset tokens from connection IDs.
// Tokens derived from the same key are stable across restarts, so a peer of
// a pre-restart connection still recognizes the reset.
type statelessResetter struct {
	key StatelessResetKey
}

func newStatelessResetter(key *StatelessResetKey) *statelessResetter {
	r := &statelessResetter{}
	if key != nil {
		r.key = *key
	} else {
		if _, err := rand.Read(r.key[:]); err != nil {
			panic("qdemux: could not generate stateless reset key")
		}
	}
	return r
}

func (r *statelessResetter) Token(connID ConnectionID) wire.StatelessResetToken {
	var token wire.StatelessResetToken
	h := hmac.New(sha256.New, r.key[:])
	h.Write(connID.Bytes())
	copy(token[:], h.Sum(nil))
	return token
}
