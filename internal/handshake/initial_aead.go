// Package handshake derives the Initial encryption keys and extracts the TLS
// ClientHello from Initial packets, which is all the cryptography the
// dispatcher needs before a session takes over the handshake.
package handshake

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/hkdf"

	"github.com/qdemux/qdemux/internal/protocol"
)

var (
	quicSaltV1 = []byte{0x38, 0x76, 0x2c, 0xf7, 0xf5, 0x59, 0x34, 0xb3, 0x4d, 0x17, 0x9a, 0xe6, 0xa4, 0xc8, 0x0c, 0xad, 0xcc, 0xbb, 0x7f, 0x0a}
	quicSaltV2 = []byte{0x0d, 0xed, 0xe3, 0xde, 0xf7, 0x00, 0xa6, 0xdb, 0x81, 0x93, 0x81, 0xbe, 0x6e, 0x26, 0x9d, 0xcb, 0xf9, 0xbd, 0x2e, 0xd9}
)

const (
	hpLabelV1  = "quic hp"
	keyLabelV1 = "quic key"
	ivLabelV1  = "quic iv"
	hpLabelV2  = "quicv2 hp"
	keyLabelV2 = "quicv2 key"
	ivLabelV2  = "quicv2 iv"
)

func getSalt(v protocol.Version) []byte {
	if v == protocol.Version2 {
		return quicSaltV2
	}
	return quicSaltV1
}

// NewInitialAEAD creates a new AEAD for Initial encryption / decryption.
func NewInitialAEAD(connID protocol.ConnectionID, pers protocol.Perspective, v protocol.Version) (LongHeaderSealer, LongHeaderOpener) {
	clientSecret, serverSecret := computeSecrets(connID, v)
	var mySecret, otherSecret []byte
	if pers == protocol.PerspectiveClient {
		mySecret = clientSecret
		otherSecret = serverSecret
	} else {
		mySecret = serverSecret
		otherSecret = clientSecret
	}
	myKey, myIV := computeInitialKeyAndIV(mySecret, v)
	otherKey, otherIV := computeInitialKeyAndIV(otherSecret, v)

	encrypter := newAESGCM(myKey)
	decrypter := newAESGCM(otherKey)

	hpLabel := hpLabelV1
	if v == protocol.Version2 {
		hpLabel = hpLabelV2
	}
	return newLongHeaderSealer(encrypter, myIV, newAESHeaderProtector(hkdfExpandLabel(crypto.SHA256, mySecret, []byte{}, hpLabel, 16), true)),
		newLongHeaderOpener(decrypter, otherIV, newAESHeaderProtector(hkdfExpandLabel(crypto.SHA256, otherSecret, []byte{}, hpLabel, 16), true))
}

func computeSecrets(connID protocol.ConnectionID, v protocol.Version) (clientSecret, serverSecret []byte) {
	initialSecret := hkdf.Extract(crypto.SHA256.New, connID.Bytes(), getSalt(v))
	clientSecret = hkdfExpandLabel(crypto.SHA256, initialSecret, []byte{}, "client in", crypto.SHA256.Size())
	serverSecret = hkdfExpandLabel(crypto.SHA256, initialSecret, []byte{}, "server in", crypto.SHA256.Size())
	return
}

func computeInitialKeyAndIV(secret []byte, v protocol.Version) (key, iv []byte) {
	keyLabel, ivLabel := keyLabelV1, ivLabelV1
	if v == protocol.Version2 {
		keyLabel, ivLabel = keyLabelV2, ivLabelV2
	}
	key = hkdfExpandLabel(crypto.SHA256, secret, []byte{}, keyLabel, 16)
	iv = hkdfExpandLabel(crypto.SHA256, secret, []byte{}, ivLabel, 12)
	return
}

func newAESGCM(key []byte) cipher.AEAD {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic("invalid AES key size")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		panic("creating AES-GCM failed")
	}
	return gcm
}
