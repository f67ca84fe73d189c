//go:build windows

package brk

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Anon is a segment backed by reserved virtual memory. The whole
// reservation is made with VirtualAlloc(MEM_RESERVE) at construction;
// growing the break commits pages, shrinking decommits them, so
// resident memory tracks the committed window.
type Anon struct {
	base      uintptr
	res       []byte
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
	base, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil, fmt.Errorf("brk: reserve %d bytes: %w", size, err)
	}
	res := unsafe.Slice((*byte)(unsafe.Pointer(base)), size)
	return &Anon{base: base, res: res[:reserve], page: page}, nil
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
			_, err := windows.VirtualAlloc(a.base+uintptr(a.committed),
				uintptr(need-a.committed), windows.MEM_COMMIT, windows.PAGE_READWRITE)
			if err != nil {
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
			err := windows.VirtualFree(a.base+uintptr(keep),
				uintptr(a.committed-keep), windows.MEM_DECOMMIT)
			if err == nil {
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

// Close releases the reservation. Further Sbrk calls fail with
// ErrClosed. Close is idempotent.
func (a *Anon) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.res = nil
	a.brk = 0
	a.committed = 0
	return windows.VirtualFree(a.base, 0, windows.MEM_RELEASE)
}
