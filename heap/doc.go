// Package heap implements a first-fit block allocator over a single
// growable segment, in the shape of the classical sbrk-backed malloc.
//
// # Overview
//
// A Heap owns one brk.Segment and carves it into blocks. Every block
// is a fixed 16-byte header followed by its payload; the header records
// the payload capacity (sign-encoded: negative while allocated,
// positive while free), the link to the next block, and a signature
// that validates caller-supplied references. All headers together form
// the block registry: one singly-linked chain in strictly increasing
// address order.
//
// # Allocation policy
//
//   - First fit: a request scans the registry from the bottom and takes
//     the first free block large enough, whole. No splitting, no
//     coalescing, no size classes.
//   - Exact sizes: capacities are recorded as requested, never rounded.
//     Reusing a 64-byte block for 50 bytes keeps capacity 64 and leaves
//     14 bytes of slack.
//   - Growth at the top: when nothing fits, the segment is extended by
//     one header plus the request and the new block becomes the
//     registry tail.
//   - Reclamation at the top only: releasing the topmost block shrinks
//     the segment by the block and its header; releasing any other
//     block just flips it to free.
//
// # Concurrency
//
// One mutex serializes every operation for its full duration, segment
// calls included. Several heaps over separate segments are independent.
//
// # Usage
//
//	seg, err := brk.NewMem(64 << 20)
//	if err != nil {
//	    return err
//	}
//	h := heap.New(seg)
//
//	ref, buf, err := h.Allocate(64)
//	if err != nil {
//	    return err
//	}
//	copy(buf, payload)
//	// ...
//	if err := h.Release(ref); err != nil {
//	    return err
//	}
//
// Set HEAPKIT_LOG_ALLOC=1 to trace grows, reuses, frees, and reclaims
// on stderr.
package heap
