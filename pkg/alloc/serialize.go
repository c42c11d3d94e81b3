package alloc

import (
	"encoding/binary"
	"fmt"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
)

// stateHeaderLen is the fixed-width prefix before the bitmap words:
// reserved(8) + total(8) + thresholdBlocks(8) + wordCount(8).
const stateHeaderLen = 32

// Marshal encodes the allocator's canonical bitmap (and enough metadata
// to reconstruct the extent view) into a byte slice meant to be stored,
// after compression, in the allocator-state page's payload.
func (a *Allocator) Marshal() ([]byte, error) {
	words := int64(len(a.bitmap))
	buf := make([]byte, stateHeaderLen+words*8)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(a.reserved))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(a.total))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(a.thresholdBlocks))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(words))
	for i, w := range a.bitmap {
		binary.LittleEndian.PutUint64(buf[stateHeaderLen+int64(i)*8:], w)
	}
	return buf, nil
}

// Unmarshal reconstructs an Allocator from bytes previously produced by
// Marshal. The extent view is rebuilt by scanning the bitmap, which
// guarantees the two sub-allocators start in sync (spec.md's "serve both
// allocators from the same underlying free set" scheme).
func Unmarshal(buf []byte) (*Allocator, error) {
	if len(buf) < stateHeaderLen {
		return nil, cartridgeerr.New(cartridgeerr.AllocatorDesync, "")
	}
	a := &Allocator{
		reserved:        int64(binary.LittleEndian.Uint64(buf[0:8])),
		total:           int64(binary.LittleEndian.Uint64(buf[8:16])),
		thresholdBlocks: int64(binary.LittleEndian.Uint64(buf[16:24])),
	}
	words := int64(binary.LittleEndian.Uint64(buf[24:32]))
	need := stateHeaderLen + words*8
	if int64(len(buf)) < need {
		return nil, cartridgeerr.Wrap(cartridgeerr.AllocatorDesync, "", fmt.Errorf("allocator state truncated: need %d bytes, have %d", need, len(buf)))
	}
	a.bitmap = make([]uint64, words)
	for i := int64(0); i < words; i++ {
		a.bitmap[i] = binary.LittleEndian.Uint64(buf[stateHeaderLen+i*8:])
	}
	a.rebuildExtents()
	return a, nil
}

// VerifyFreeBlocks returns AllocatorDesync if a.FreeCount() does not
// match the expected value read from the header.
func (a *Allocator) VerifyFreeBlocks(expected int64) error {
	if a.FreeCount() != expected {
		return cartridgeerr.New(cartridgeerr.AllocatorDesync, "")
	}
	return nil
}
