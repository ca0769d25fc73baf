package handshake

import (
	"crypto/cipher"
	"encoding/binary"
)

// A LongHeaderSealer seals long header packets
type LongHeaderSealer interface {
	Seal(dst, src []byte, packetNumber int64, associatedData []byte) []byte
	EncryptHeader(sample []byte, firstByte *byte, pnBytes []byte)
	Overhead() int
}

// A LongHeaderOpener opens long header packets
type LongHeaderOpener interface {
	Open(dst, src []byte, packetNumber int64, associatedData []byte) ([]byte, error)
	DecryptHeader(sample []byte, firstByte *byte, pnBytes []byte)
}

type longHeaderSealer struct {
	aead        cipher.AEAD
	headerProtector headerProtector
	iv          []byte
	nonceBuf    []byte
}

var _ LongHeaderSealer = &longHeaderSealer{}

func newLongHeaderSealer(aead cipher.AEAD, iv []byte, hp headerProtector) LongHeaderSealer {
	return &longHeaderSealer{
		aead:        aead,
		headerProtector: hp,
		iv:          iv,
		nonceBuf:    make([]byte, aead.NonceSize()),
	}
}

func (s *longHeaderSealer) Seal(dst, src []byte, pn int64, ad []byte) []byte {
	computeNonce(s.nonceBuf, s.iv, pn)
	return s.aead.Seal(dst, s.nonceBuf, src, ad)
}

func (s *longHeaderSealer) EncryptHeader(sample []byte, firstByte *byte, pnBytes []byte) {
	s.headerProtector.apply(sample, firstByte, pnBytes)
}

func (s *longHeaderSealer) Overhead() int {
	return s.aead.Overhead()
}

type longHeaderOpener struct {
	aead        cipher.AEAD
	headerProtector headerProtector
	iv          []byte
	nonceBuf    []byte
}

var _ LongHeaderOpener = &longHeaderOpener{}

func newLongHeaderOpener(aead cipher.AEAD, iv []byte, hp headerProtector) LongHeaderOpener {
	return &longHeaderOpener{
		aead:        aead,
		headerProtector: hp,
		iv:          iv,
		nonceBuf:    make([]byte, aead.NonceSize()),
	}
}

func (o *longHeaderOpener) Open(dst, src []byte, pn int64, ad []byte) ([]byte, error) {
	computeNonce(o.nonceBuf, o.iv, pn)
	return o.aead.Open(dst, o.nonceBuf, src, ad)
}

func (o *longHeaderOpener) DecryptHeader(sample []byte, firstByte *byte, pnBytes []byte) {
	o.headerProtector.apply(sample, firstByte, pnBytes)
}

// The nonce is the IV XORed with the packet number, in network byte order.
func computeNonce(dst, iv []byte, pn int64) {
	copy(dst, iv)
	binary.BigEndian.PutUint64(dst[len(dst)-8:], uint64(pn))
	for i := 0; i < 8; i++ {
		dst[len(dst)-8+i] ^= iv[len(iv)-8+i]
	}
}
