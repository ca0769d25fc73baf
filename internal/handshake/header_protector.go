package handshake

import (
	"crypto/aes"
	"crypto/cipher"
)

// A headerProtector applies and removes QUIC header protection (RFC 9001, section 5.4).
// Applying and removing the protection is the same operation: XOR with a mask
// derived from a ciphertext sample.
type headerProtector interface {
	apply(sample []byte, firstByte *byte, pnBytes []byte)
}

type aesHeaderProtector struct {
	block   cipher.Block
	mask    [16]byte
	isLongHeader bool
}

var _ headerProtector = &aesHeaderProtector{}

func newAESHeaderProtector(hpKey []byte, isLongHeader bool) headerProtector {
	block, err := aes.NewCipher(hpKey)
	if err != nil {
		panic("invalid AES header protection key size")
	}
	return &aesHeaderProtector{block: block, isLongHeader: isLongHeader}
}

func (p *aesHeaderProtector) apply(sample []byte, firstByte *byte, pnBytes []byte) {
	if len(sample) != len(p.mask) {
		panic("invalid sample size")
	}
	p.block.Encrypt(p.mask[:], sample)
	if p.isLongHeader {
		// the lower 4 bits of the first byte are protected
		*firstByte ^= p.mask[0] & 0xf
	} else {
		// the lower 5 bits of the first byte are protected
		*firstByte ^= p.mask[0] & 0x1f
	}
	for i := range pnBytes {
		pnBytes[i] ^= p.mask[i+1]
	}
}
