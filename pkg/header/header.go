// Package header encodes and decodes page 0 of a cartridge container: the
// fixed-layout superblock carrying magic, version, block accounting, the
// container's immutable slug and mutable title, growth bookkeeping, and
// the feature-flag/capability-fuse bitfield higher layers consult.
//
// Grounded on pkg/ext's Superblock, a binary.Read/binary.Write struct
// describing a whole-page fixed layout with reserved padding.
package header

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"regexp"
	"time"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
	"github.com/cartridgeio/cartridge/pkg/page"
)

// Magic identifies the on-disk format.
var Magic = [4]byte{'C', 'A', 'R', 'T'}

// VersionMajor and VersionMinor are the format version this package
// reads and writes.
const (
	VersionMajor uint16 = 2
	VersionMinor uint16 = 0
)

// BlockSize is the invariant block size in bytes.
const BlockSize uint32 = page.Size

// Feature flag bits, lowest byte of the flags field.
const (
	FlagCompression uint32 = 1 << iota
	FlagEncryption
	FlagPolicyActive
	FlagAuditActive
)

// CatalogRootBlockID is fixed: the catalog always lives in block 1.
const CatalogRootBlockID = 1

// AllocatorBlockID is fixed: allocator state always lives in block 2.
const AllocatorBlockID = 2

// ReservedBlocks is the number of blocks reserved for header, catalog,
// and allocator state, always the first three blocks.
const ReservedBlocks = 3

// DefaultGrowthThresholdPercent is the default growth trigger.
const DefaultGrowthThresholdPercent = 10

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateSlug reports whether slug is a valid kebab-case identifier of
// 1..255 bytes.
func ValidateSlug(slug string) error {
	if len(slug) < 1 || len(slug) > 255 {
		return cartridgeerr.New(cartridgeerr.InvalidSlug, slug)
	}
	if !slugPattern.MatchString(slug) {
		return cartridgeerr.New(cartridgeerr.InvalidSlug, slug)
	}
	return nil
}

// Header is the decoded content of page 0.
type Header struct {
	VersionMajor           uint16
	VersionMinor           uint16
	BlockSize              uint32
	TotalBlocks            uint64
	FreeBlocks             uint64
	CatalogRootBlockID     uint64
	Slug                   string
	Title                  string
	CreatedAt              time.Time
	ModifiedAt             time.Time
	GrowthCount            uint64
	GrowthThresholdPercent uint32
	Flags                  uint32
	CapabilityFuses        [256]byte
}

// New builds a fresh Header for a container being created with the given
// slug and title, sized to the minimal 3-block layout.
func New(slug, title string) (*Header, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if len(title) > 255 {
		return nil, cartridgeerr.New(cartridgeerr.InvalidSlug, title)
	}
	now := time.Now().UTC()
	return &Header{
		VersionMajor:           VersionMajor,
		VersionMinor:           VersionMinor,
		BlockSize:              BlockSize,
		TotalBlocks:            ReservedBlocks,
		FreeBlocks:             0,
		CatalogRootBlockID:     CatalogRootBlockID,
		Slug:                   slug,
		Title:                  title,
		CreatedAt:              now,
		ModifiedAt:             now,
		GrowthThresholdPercent: DefaultGrowthThresholdPercent,
	}, nil
}

// Encode serializes h into a 4096-byte page 0 buffer.
func Encode(h *Header) []byte {
	buf := make([]byte, page.Size)
	copy(buf[0:4], Magic[:])
	// buf[4:8] stays zero: the spec's 8-byte magic field is "CART" plus
	// four reserved bytes; VersionMajor/VersionMinor are the separate
	// fields at buf[8:12].
	binary.LittleEndian.PutUint16(buf[8:10], h.VersionMajor)
	binary.LittleEndian.PutUint16(buf[10:12], h.VersionMinor)
	binary.LittleEndian.PutUint32(buf[12:16], h.BlockSize)
	binary.LittleEndian.PutUint64(buf[16:24], h.TotalBlocks)
	binary.LittleEndian.PutUint64(buf[24:32], h.FreeBlocks)
	binary.LittleEndian.PutUint64(buf[32:40], h.CatalogRootBlockID)

	putFixedString(buf[40:296], h.Slug)
	putFixedString(buf[296:552], h.Title)

	binary.LittleEndian.PutUint64(buf[552:560], uint64(h.CreatedAt.UnixMicro()))
	binary.LittleEndian.PutUint64(buf[560:568], uint64(h.ModifiedAt.UnixMicro()))
	binary.LittleEndian.PutUint64(buf[568:576], h.GrowthCount)
	binary.LittleEndian.PutUint32(buf[576:580], h.GrowthThresholdPercent)
	binary.LittleEndian.PutUint32(buf[580:584], h.Flags)
	copy(buf[584:840], h.CapabilityFuses[:])
	// remainder (840..4096) stays zeroed.
	return buf
}

// Decode parses a 4096-byte page 0 buffer into a Header, failing fast on
// any open-time format problem.
func Decode(buf []byte) (*Header, error) {
	if len(buf) != page.Size {
		return nil, cartridgeerr.Wrap(cartridgeerr.CorruptedHeader, "", fmt.Errorf("header buffer must be %d bytes, got %d", page.Size, len(buf)))
	}
	if !bytes.Equal(buf[0:4], Magic[:]) {
		return nil, cartridgeerr.New(cartridgeerr.InvalidMagic, "")
	}

	h := &Header{}
	h.VersionMajor = binary.LittleEndian.Uint16(buf[8:10])
	h.VersionMinor = binary.LittleEndian.Uint16(buf[10:12])
	if h.VersionMajor != VersionMajor {
		return nil, cartridgeerr.New(cartridgeerr.UnsupportedVersion, "")
	}
	h.BlockSize = binary.LittleEndian.Uint32(buf[12:16])
	if h.BlockSize != BlockSize {
		return nil, cartridgeerr.New(cartridgeerr.InvalidBlockSize, "")
	}
	h.TotalBlocks = binary.LittleEndian.Uint64(buf[16:24])
	h.FreeBlocks = binary.LittleEndian.Uint64(buf[24:32])
	h.CatalogRootBlockID = binary.LittleEndian.Uint64(buf[32:40])
	if h.CatalogRootBlockID != CatalogRootBlockID {
		return nil, cartridgeerr.New(cartridgeerr.CorruptedHeader, "")
	}
	if h.TotalBlocks < ReservedBlocks {
		return nil, cartridgeerr.New(cartridgeerr.CorruptedHeader, "")
	}

	h.Slug = getFixedString(buf[40:296])
	h.Title = getFixedString(buf[296:552])
	if err := ValidateSlug(h.Slug); err != nil {
		return nil, cartridgeerr.Wrap(cartridgeerr.CorruptedHeader, "", err)
	}

	h.CreatedAt = time.UnixMicro(int64(binary.LittleEndian.Uint64(buf[552:560]))).UTC()
	h.ModifiedAt = time.UnixMicro(int64(binary.LittleEndian.Uint64(buf[560:568]))).UTC()
	h.GrowthCount = binary.LittleEndian.Uint64(buf[568:576])
	h.GrowthThresholdPercent = binary.LittleEndian.Uint32(buf[576:580])
	h.Flags = binary.LittleEndian.Uint32(buf[580:584])
	copy(h.CapabilityFuses[:], buf[584:840])

	return h, nil
}

func putFixedString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

func getFixedString(src []byte) string {
	n := bytes.IndexByte(src, 0)
	if n < 0 {
		n = len(src)
	}
	return string(src[:n])
}

// HasFlag reports whether flag bit is set.
func (h *Header) HasFlag(flag uint32) bool {
	return h.Flags&flag != 0
}

// SetFlag sets or clears flag bit.
func (h *Header) SetFlag(flag uint32, on bool) {
	if on {
		h.Flags |= flag
	} else {
		h.Flags &^= flag
	}
}

// Touch updates ModifiedAt to now; called on any mutation.
func (h *Header) Touch() {
	h.ModifiedAt = time.Now().UTC()
}
