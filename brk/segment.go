// Package brk provides growable byte segments with program-break
// semantics.
//
// A Segment exposes a contiguous window [0, break) that is extended or
// shrunk only at the top, through a single Sbrk primitive modeled on
// the classic sbrk(2) contract. The guarantee that makes segments
// usable underneath an in-band allocator is backing-array stability:
// the array returned by Bytes never moves for the lifetime of the
// segment, so slices carved out of an earlier window stay valid across
// later grows and shrinks. Every implementation achieves this by
// reserving its maximum size up front and committing or exposing more
// of the same reservation on demand.
//
// Two backends are provided: Mem keeps the reservation on the Go heap,
// Anon reserves address space from the operating system and commits
// pages as the break advances.
//
// Segments are not safe for concurrent use; callers serialize access
// externally.
package brk

import "errors"

// MaxSegmentBytes is the largest reservation a segment accepts. Keeping
// segments under 2 GiB lets offsets and block sizes above this layer
// live in 32-bit fields.
const MaxSegmentBytes = 1<<31 - 1

var (
	ErrNoMemory   = errors.New("brk: cannot extend segment")
	ErrUnderflow  = errors.New("brk: shrink below segment base")
	ErrBadReserve = errors.New("brk: reserve size out of range")
	ErrClosed     = errors.New("brk: segment closed")
)

// Segment is an sbrk-style growable byte region.
type Segment interface {
	// Sbrk adjusts the break by delta bytes and reports the break as it
	// was before the call:
	//
	//	delta == 0   query: returns the current break.
	//	delta  > 0   grow: returns the previous break, the base of the
	//	             newly exposed space. New space reads as zero.
	//	delta  < 0   shrink: returns the previous break.
	//
	// On failure the break is unchanged and an error is returned:
	// ErrNoMemory when the segment cannot extend, ErrUnderflow when a
	// shrink would move the break below zero.
	Sbrk(delta int64) (int64, error)

	// Bytes returns the live window [0, break). The backing array is
	// stable for the lifetime of the segment.
	Bytes() []byte
}

// ceilTo rounds n up to the next multiple of step. step is a power of
// two in practice but the arithmetic does not require it.
func ceilTo(n, step int64) int64 {
	return (n + step - 1) / step * step
}
