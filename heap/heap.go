package heap

import (
	"sync"

	"github.com/heapkit/heapkit/brk"
)

// Heap is a first-fit allocator over a single brk.Segment. Bookkeeping
// lives in band: a 16-byte header precedes every payload and threads
// the block into the registry chain. One mutex serializes every
// operation for its full duration, segment calls included, so the
// break can never move between the adjacency check and the shrink in
// Release.
//
// Payload slices returned by Allocate, AllocateZeroed, Reallocate, and
// Bytes alias the segment's backing array and stay valid until the
// block is released.
type Heap struct {
	mu    sync.Mutex
	seg   brk.Segment
	first uint32 // header offset of the lowest block, invalidOff if none
	last  uint32 // header offset of the topmost block, invalidOff if none
	stats Stats

	onGrow func(delta int64) // test hook, called after each segment grow
}

// New returns an empty heap over seg. The heap assumes exclusive
// ownership of the segment's break from this point on.
func New(seg brk.Segment) *Heap {
	return &Heap{seg: seg, first: invalidOff, last: invalidOff}
}

// Allocate carves a block of exactly size bytes and returns its
// reference and payload. A free block is reused when the first-fit
// scan finds one with sufficient capacity; its recorded capacity is
// kept, so the payload slice may be shorter than the block. Otherwise
// the segment is extended by size plus one header. size must be
// positive; a failed extension returns ErrNoSpace with the heap
// unchanged.
func (h *Heap) Allocate(size int) (Ref, []byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alloc(size)
}

// AllocateZeroed allocates count*elemSize bytes and zero-fills them.
// The multiplication is checked: on overflow it returns ErrOverflow
// and nothing is allocated.
func (h *Heap) AllocateZeroed(count, elemSize int) (Ref, []byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.ZeroedCalls++
	if count <= 0 || elemSize <= 0 {
		return NilRef, nil, ErrBadSize
	}
	total := count * elemSize
	if total/count != elemSize {
		return NilRef, nil, ErrOverflow
	}
	ref, buf, err := h.alloc(total)
	if err != nil {
		return NilRef, nil, err
	}
	// A reused block carries whatever its last tenant wrote.
	clear(buf)
	return ref, buf, nil
}

// Reallocate resizes the block at ref to size bytes. A NilRef or a
// zero size degenerates to Allocate(size). When the recorded capacity
// already covers size the same reference is returned and nothing
// moves. Otherwise a new block is allocated, the old payload is copied
// in full, and the old block is released; if that allocation fails the
// old block is left untouched and its error returned. The whole
// operation runs under one lock acquisition.
func (h *Heap) Reallocate(ref Ref, size int) (Ref, []byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.ReallocCalls++
	if ref == NilRef || size == 0 {
		return h.alloc(size)
	}
	if size < 0 {
		return NilRef, nil, ErrBadSize
	}
	off, err := h.checkRef(ref)
	if err != nil {
		return NilRef, nil, err
	}
	data := h.seg.Bytes()
	recorded := getI32(data, off+sizeOff)
	if recorded > 0 {
		// Free blocks are not outstanding allocations.
		return NilRef, nil, ErrBadRef
	}
	capc := int(-recorded)
	if capc >= size {
		p := int(ref)
		return ref, data[p : p+size : p+size], nil
	}
	newRef, newBuf, err := h.alloc(size)
	if err != nil {
		return NilRef, nil, err
	}
	data = h.seg.Bytes() // the window may have grown
	p := int(ref)
	copy(newBuf, data[p:p+capc])
	if err := h.release(ref); err != nil {
		return NilRef, nil, err
	}
	return newRef, newBuf, nil
}

// Release returns the block at ref to the heap. Releasing NilRef is a
// no-op. The topmost block is reclaimed physically: the registry tail
// is detached and the segment shrunk by the block's capacity plus its
// header. Any other block is only marked free and kept for reuse.
// Invalid references return ErrBadRef; releasing a block twice returns
// ErrDoubleFree.
func (h *Heap) Release(ref Ref) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.release(ref)
}

// Bytes returns the full-capacity payload of the allocated block at
// ref. The slice stays valid until the block is released.
func (h *Heap) Bytes(ref Ref) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	capc, err := h.liveCap(ref)
	if err != nil {
		return nil, err
	}
	p := int(ref)
	return h.seg.Bytes()[p : p+capc : p+capc], nil
}

// UsableSize returns the recorded capacity of the allocated block at
// ref. Because capacities are never rounded or split, this is the
// size of the request that carved the block.
func (h *Heap) UsableSize(ref Ref) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.liveCap(ref)
}

// alloc is the allocation engine. Lock held.
func (h *Heap) alloc(size int) (Ref, []byte, error) {
	h.stats.AllocCalls++
	if size <= 0 {
		return NilRef, nil, ErrBadSize
	}
	if int64(size) > MaxBlockBytes {
		return NilRef, nil, ErrNoSpace
	}
	need := int32(size)

	if off := h.findFit(need); off != invalidOff {
		data := h.seg.Bytes()
		capc := getI32(data, off+sizeOff)
		putI32(data, off+sizeOff, -capc)
		h.stats.Reuses++
		h.stats.BytesAllocated += int64(size)
		h.stats.LiveBlocks++
		h.stats.FreeBlocks--
		h.stats.LiveBytes += int64(capc)
		h.stats.FreeBytes -= int64(capc)
		debugLogf("reuse off=%#x cap=%d need=%d", off, capc, need)
		p := int(off) + headerSize
		return Ref(p), data[p : p+size : p+size], nil
	}

	total := int64(headerSize) + int64(size)
	prev, err := h.seg.Sbrk(total)
	if err != nil {
		debugLogf("grow %d failed: %v", total, err)
		return NilRef, nil, ErrNoSpace
	}
	if h.onGrow != nil {
		h.onGrow(total)
	}
	data := h.seg.Bytes() // reslice: the window just grew
	off := uint32(prev)
	writeHeader(data, off, -need, invalidOff)
	h.appendBlock(data, off)
	h.stats.Grows++
	h.stats.GrowBytes += total
	h.stats.BytesAllocated += int64(size)
	h.stats.LiveBlocks++
	h.stats.LiveBytes += int64(size)
	debugLogf("grow off=%#x size=%d", off, size)
	p := int(off) + headerSize
	return Ref(p), data[p : p+size : p+size], nil
}

// release is the release engine. Lock held.
func (h *Heap) release(ref Ref) error {
	if ref == NilRef {
		return nil
	}
	off, err := h.checkRef(ref)
	if err != nil {
		return err
	}
	data := h.seg.Bytes()
	recorded := getI32(data, off+sizeOff)
	if recorded > 0 {
		return ErrDoubleFree
	}
	capc := -int64(recorded)
	h.stats.FreeCalls++
	h.stats.BytesFreed += capc

	// A block flush against the break is given back to the segment.
	// Query and shrink run under the same lock hold, so nothing can
	// move the break in between.
	if top, err := h.seg.Sbrk(0); err == nil && int64(ref)+capc == top && off == h.last {
		if _, err := h.seg.Sbrk(-(capc + headerSize)); err == nil {
			h.detachLast(data)
			h.stats.Reclaims++
			h.stats.ReclaimedBytes += capc + headerSize
			h.stats.LiveBlocks--
			h.stats.LiveBytes -= capc
			debugLogf("reclaim off=%#x cap=%d", off, capc)
			return nil
		}
		// The segment refused the shrink; degrade to a plain free.
	}

	putI32(data, off+sizeOff, int32(capc))
	h.stats.LiveBlocks--
	h.stats.FreeBlocks++
	h.stats.LiveBytes -= capc
	h.stats.FreeBytes += capc
	debugLogf("free off=%#x cap=%d", off, capc)
	return nil
}

// liveCap validates ref and returns the recorded capacity of the
// allocated block it addresses. Lock held.
func (h *Heap) liveCap(ref Ref) (int, error) {
	off, err := h.checkRef(ref)
	if err != nil {
		return 0, err
	}
	recorded := getI32(h.seg.Bytes(), off+sizeOff)
	if recorded > 0 {
		return 0, ErrBadRef
	}
	return int(-recorded), nil
}
