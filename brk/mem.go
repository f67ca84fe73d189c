package brk

// Mem is a segment backed by a single reservation on the Go heap. The
// full reserve is allocated at construction; Sbrk moves a logical break
// within it, so the backing array never moves.
type Mem struct {
	buf    []byte
	brk    int64
	closed bool
}

var _ Segment = (*Mem)(nil)

// NewMem reserves a segment of the given maximum size. The break starts
// at zero.
func NewMem(reserve int64) (*Mem, error) {
	if reserve <= 0 || reserve > MaxSegmentBytes {
		return nil, ErrBadReserve
	}
	return &Mem{buf: make([]byte, reserve)}, nil
}

// Reserve returns the fixed maximum size of the segment.
func (m *Mem) Reserve() int64 { return int64(len(m.buf)) }

func (m *Mem) Sbrk(delta int64) (int64, error) {
	if m.closed {
		return 0, ErrClosed
	}
	prev := m.brk
	switch {
	case delta == 0:
		return prev, nil
	case delta > 0:
		if delta > int64(len(m.buf))-m.brk {
			return 0, ErrNoMemory
		}
		m.brk += delta
		// Space between the old and new break may have been used before
		// an earlier shrink; fresh break space always reads as zero.
		clear(m.buf[prev:m.brk])
		return prev, nil
	default:
		if delta < -m.brk {
			return 0, ErrUnderflow
		}
		m.brk += delta
		return prev, nil
	}
}

func (m *Mem) Bytes() []byte {
	if m.closed {
		return nil
	}
	return m.buf[:m.brk]
}

// Close releases the reservation. Further Sbrk calls fail with
// ErrClosed. Close is idempotent.
func (m *Mem) Close() error {
	m.buf = nil
	m.brk = 0
	m.closed = true
	return nil
}
