package heap

import (
	"bytes"
	"encoding/binary"

	"github.com/heapkit/heapkit/brk"
)

// Ref addresses a block by the segment offset of its payload's first
// byte. The zero value NilRef never addresses a block: the lowest
// possible payload sits one header above the segment base.
type Ref uint32

// NilRef is the empty reference.
const NilRef Ref = 0

// Block header layout, little-endian, placed immediately before the
// payload:
//
//	off 0   int32   size   payload capacity; negative while allocated,
//	                       positive while free, never zero
//	off 4   uint32  next   header offset of the next registry block,
//	                       invalidOff at the tail
//	off 8   [4]byte sig    "hkbl"
//	off 12  [4]byte        reserved, zero
//
// The sign convention folds the free flag into the size field, so a
// first-fit probe is a single comparison. The header is a fixed 16
// bytes; payload capacities are recorded exactly as requested, with no
// rounding.
const (
	headerSize = 16

	sizeOff = 0
	nextOff = 4
	sigOff  = 8

	invalidOff = uint32(0xFFFFFFFF)
)

// MaxBlockBytes is the largest payload a single block can carry.
const MaxBlockBytes = brk.MaxSegmentBytes - headerSize

var blockSig = []byte{'h', 'k', 'b', 'l'}

// Headers are byte-addressed and unaligned; all field access goes
// through explicit little-endian reads and writes.

func getI32(b []byte, off uint32) int32 {
	return int32(binary.LittleEndian.Uint32(b[off:]))
}

func putI32(b []byte, off uint32, v int32) {
	binary.LittleEndian.PutUint32(b[off:], uint32(v))
}

func getU32(b []byte, off uint32) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}

func putU32(b []byte, off uint32, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}

// writeHeader stamps a complete header at off. size carries the sign
// convention: negative for an allocated block.
func writeHeader(data []byte, off uint32, size int32, next uint32) {
	putI32(data, off+sizeOff, size)
	putU32(data, off+nextOff, next)
	copy(data[off+sigOff:off+sigOff+4], blockSig)
	putU32(data, off+12, 0)
}

// checkRef validates a caller-supplied reference and returns the header
// offset it addresses. The classical allocator trusted any pointer
// handed back to it; here a reference must sit inside the live window
// and carry the block signature, so stale, foreign, and fabricated
// references surface as ErrBadRef instead of corrupting the registry.
func (h *Heap) checkRef(ref Ref) (uint32, error) {
	if ref < headerSize {
		return 0, ErrBadRef
	}
	data := h.seg.Bytes()
	if int64(ref) >= int64(len(data)) {
		return 0, ErrBadRef
	}
	off := uint32(ref) - headerSize
	if !bytes.Equal(data[off+sigOff:off+sigOff+4], blockSig) {
		return 0, ErrBadRef
	}
	size := getI32(data, off+sizeOff)
	if size == 0 {
		return 0, ErrBadRef
	}
	capc := int64(size)
	if capc < 0 {
		capc = -capc
	}
	if int64(ref)+capc > int64(len(data)) {
		return 0, ErrBadRef
	}
	return off, nil
}
