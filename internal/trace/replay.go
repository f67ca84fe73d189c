package trace

import (
	"fmt"
	"io"

	"github.com/heapkit/heapkit/heap"
)

// Summary counts what a replay did.
type Summary struct {
	Ops      int `json:"ops"`
	Allocs   int `json:"allocs"`
	Zeroed   int `json:"zeroed"`
	Reallocs int `json:"reallocs"`
	Frees    int `json:"frees"`
	Dumps    int `json:"dumps"`
	Live     int `json:"live"` // slots still bound at the end
}

// Replay executes ops against h in order. dump operations write the
// heap's text dump to w. Replay is strict: the first failing operation
// aborts with an error naming its source line. Slot misuse (alloc into
// a bound slot, free of an unbound one) is a trace bug and also
// aborts.
func Replay(h *heap.Heap, ops []Op, w io.Writer) (*Summary, error) {
	if w == nil {
		w = io.Discard
	}
	slots := make(map[int]heap.Ref)
	sum := &Summary{}

	for _, op := range ops {
		sum.Ops++
		switch op.Kind {
		case KindAlloc, KindZeroed:
			if _, bound := slots[op.Slot]; bound {
				return sum, fmt.Errorf("trace: line %d: slot %d already bound", op.Line, op.Slot)
			}
			var (
				ref heap.Ref
				err error
			)
			if op.Kind == KindAlloc {
				ref, _, err = h.Allocate(op.Size)
				sum.Allocs++
			} else {
				ref, _, err = h.AllocateZeroed(op.Count, op.Elem)
				sum.Zeroed++
			}
			if err != nil {
				return sum, fmt.Errorf("trace: line %d: %s: %w", op.Line, op.Kind, err)
			}
			slots[op.Slot] = ref

		case KindRealloc:
			// An unbound slot holds NilRef, so this allocates.
			ref, _, err := h.Reallocate(slots[op.Slot], op.Size)
			if err != nil {
				return sum, fmt.Errorf("trace: line %d: realloc: %w", op.Line, err)
			}
			slots[op.Slot] = ref
			sum.Reallocs++

		case KindFree:
			ref, bound := slots[op.Slot]
			if !bound {
				return sum, fmt.Errorf("trace: line %d: slot %d not bound", op.Line, op.Slot)
			}
			if err := h.Release(ref); err != nil {
				return sum, fmt.Errorf("trace: line %d: free: %w", op.Line, err)
			}
			delete(slots, op.Slot)
			sum.Frees++

		case KindDump:
			if err := h.DumpState(w); err != nil {
				return sum, fmt.Errorf("trace: line %d: dump: %w", op.Line, err)
			}
			sum.Dumps++

		default:
			return sum, fmt.Errorf("trace: line %d: unknown kind %d", op.Line, int(op.Kind))
		}
	}
	sum.Live = len(slots)
	return sum, nil
}
