//go:build !unix && !windows

package brk

// Anon falls back to a heap-backed reservation on platforms without
// anonymous mappings or reservable virtual memory. The Segment contract
// is identical; only the residency behavior differs.
type Anon struct {
	*Mem
}

var _ Segment = (*Anon)(nil)

// NewAnon reserves a segment of the given maximum size.
func NewAnon(reserve int64) (*Anon, error) {
	m, err := NewMem(reserve)
	if err != nil {
		return nil, err
	}
	return &Anon{Mem: m}, nil
}
