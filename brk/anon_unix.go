//go:build unix

package brk

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Anon is a segment backed by an anonymous memory mapping. The whole
// reservation is mapped PROT_NONE at construction; growing the break
// commits pages with mprotect, shrinking decommits them again and gives
// the pages back with madvise. Address space is consumed up front but
// resident memory tracks the committed window.
type Anon struct {
	res       []byte // full reservation; inaccessible beyond committed
	brk       int64
	committed int64 // page-aligned commit boundary
	page      int64
	closed    bool
}

var _ Segment = (*Anon)(nil)

// NewAnon reserves address space for a segment of the given maximum
// size. No page is committed until the break first advances.
func NewAnon(reserve int64) (*Anon, error) {
	if reserve <= 0 || reserve > MaxSegmentBytes {
		return nil, ErrBadReserve
	}
	page := int64(os.Getpagesize())
	size := ceilTo(reserve, page)
	res, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("brk: reserve %d bytes: %w", size, err)
	}
	return &Anon{res: res[:reserve], page: page}, nil
}

// Reserve returns the fixed maximum size of the segment.
func (a *Anon) Reserve() int64 { return int64(len(a.res)) }

func (a *Anon) Sbrk(delta int64) (int64, error) {
	if a.closed {
		return 0, ErrClosed
	}
	prev := a.brk
	switch {
	case delta == 0:
		return prev, nil
	case delta > 0:
		if delta > int64(len(a.res))-a.brk {
			return 0, ErrNoMemory
		}
		newBrk := a.brk + delta
		if need := ceilTo(newBrk, a.page); need > a.committed {
			if err := unix.Mprotect(a.res[a.committed:need:need], unix.PROT_READ|unix.PROT_WRITE); err != nil {
				return 0, fmt.Errorf("%w: commit: %v", ErrNoMemory, err)
			}
			a.committed = need
		}
		a.brk = newBrk
		// The partial page at an earlier break survives decommit, so
		// regrown space is cleared to keep the zero-fill contract.
		clear(a.res[prev:newBrk])
		return prev, nil
	default:
		if delta < -a.brk {
			return 0, ErrUnderflow
		}
		newBrk := a.brk + delta
		if keep := ceilTo(newBrk, a.page); keep < a.committed {
			span := a.res[keep:a.committed:a.committed]
			// Best effort: the pages are semantically dead either way.
			_ = unix.Madvise(span, unix.MADV_DONTNEED)
			if err := unix.Mprotect(span, unix.PROT_NONE); err == nil {
				a.committed = keep
			}
		}
		a.brk = newBrk
		return prev, nil
	}
}

func (a *Anon) Bytes() []byte {
	if a.closed {
		return nil
	}
	return a.res[:a.brk]
}

// Close unmaps the reservation. Further Sbrk calls fail with ErrClosed.
// Close is idempotent.
func (a *Anon) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	full := a.res[:cap(a.res)]
	a.res = nil
	a.brk = 0
	a.committed = 0
	return unix.Munmap(full)
}
