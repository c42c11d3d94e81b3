// Package page implements the container's fixed 4096-byte page envelope:
// the typed header every page other than page 0 carries, and the digest
// policy that protects its payload.
//
// Grounded on pkg/ext's binary.Read/binary.Write struct layouts for
// on-disk tables, generalized from ext2 block-group bookkeeping to a
// single flat page header.
package page

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
)

// Size is the fixed page size in bytes, the container's block size.
const Size = 4096

// HeaderLen is the number of bytes occupied by the page envelope header;
// the remainder is payload.
const HeaderLen = 64

// PayloadLen is the number of payload bytes available per page.
const PayloadLen = Size - HeaderLen

// Type tags the purpose of a page.
type Type byte

// The page type tags.
const (
	TypeHeader Type = iota
	TypeCatalogRoot
	TypeContentData
	TypeAllocatorState
	TypeAuditLog
	TypeSnapshotMeta
)

// Codec tags the compression applied to a page's payload.
type Codec byte

// The codec tags.
const (
	CodecNone Codec = iota
	CodecLZ4
	CodecZstd
)

// Page is the decoded form of one 4096-byte unit of the backing file.
type Page struct {
	Type             Type
	Digest           [32]byte // all-zero means "unchecked"
	CodecTag         Codec
	Encrypted        bool
	UncompressedLen  uint32
	CompressedLen    uint32
	Payload          [PayloadLen]byte
}

// Encode serializes p into a 4096-byte buffer. If p.Digest is non-zero it
// is written as-is; callers that want digests computed from the current
// payload should call SetDigest first.
func Encode(p *Page) []byte {
	buf := make([]byte, Size)
	buf[0] = byte(p.Type)
	copy(buf[1:33], p.Digest[:])
	buf[33] = byte(p.CodecTag)
	binary.LittleEndian.PutUint32(buf[34:38], p.UncompressedLen)
	binary.LittleEndian.PutUint32(buf[38:42], p.CompressedLen)
	if p.Encrypted {
		buf[42] = 1
	}
	copy(buf[HeaderLen:], p.Payload[:])
	return buf
}

// Decode parses a 4096-byte buffer into a Page, verifying the digest if
// one is stored. ChecksumMismatch is returned unconditionally when the
// stored digest is non-zero and does not match the payload.
func Decode(buf []byte) (*Page, error) {
	if len(buf) != Size {
		return nil, cartridgeerr.Wrap(cartridgeerr.IO, "", fmt.Errorf("page buffer must be %d bytes, got %d", Size, len(buf)))
	}

	p := &Page{
		Type:            Type(buf[0]),
		CodecTag:        Codec(buf[33]),
		UncompressedLen: binary.LittleEndian.Uint32(buf[34:38]),
		CompressedLen:   binary.LittleEndian.Uint32(buf[38:42]),
		Encrypted:       buf[42] != 0,
	}
	copy(p.Digest[:], buf[1:33])
	copy(p.Payload[:], buf[HeaderLen:])

	if !isZero(p.Digest[:]) {
		sum := sha256.Sum256(p.Payload[:])
		if !bytes.Equal(sum[:], p.Digest[:]) {
			return nil, cartridgeerr.New(cartridgeerr.ChecksumMismatch, "")
		}
	}

	return p, nil
}

// SetDigest computes and stores the SHA-256 digest of p's payload.
func SetDigest(p *Page) {
	p.Digest = sha256.Sum256(p.Payload[:])
}

// ClearDigest marks the page as unchecked.
func ClearDigest(p *Page) {
	for i := range p.Digest {
		p.Digest[i] = 0
	}
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
