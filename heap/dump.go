package heap

import (
	"encoding/json"
	"fmt"
	"io"
)

// Block is one registry row as seen by Walk and Dump.
type Block struct {
	Ref  Ref  `json:"ref"`  // payload offset
	Size int  `json:"size"` // recorded capacity
	Free bool `json:"free"`
	Next Ref  `json:"next"` // payload offset of the next block, NilRef at the tail
}

// Format selects a Dump output encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// DumpOptions controls Dump output.
type DumpOptions struct {
	Format Format
}

// DefaultDumpOptions returns the text format.
func DefaultDumpOptions() DumpOptions {
	return DumpOptions{Format: FormatText}
}

// Walk calls fn for every registry block in address order until fn
// returns false. fn runs with the heap lock held and must not call
// back into the heap.
func (h *Heap) Walk(fn func(Block) bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.walk(fn)
}

// walk enumerates the registry. Lock held.
func (h *Heap) walk(fn func(Block) bool) error {
	data := h.seg.Bytes()
	// The registry cannot hold more blocks than headers fit under the
	// break; a longer walk means a cycle.
	maxSteps := len(data)/headerSize + 1
	steps := 0
	for off := h.first; off != invalidOff; {
		if int64(off)+headerSize > int64(len(data)) {
			return ErrCorrupt
		}
		if steps++; steps > maxSteps {
			return ErrCorrupt
		}
		size := int64(getI32(data, off+sizeOff))
		next := getU32(data, off+nextOff)
		b := Block{
			Ref:  Ref(off + headerSize),
			Size: int(size),
			Free: size > 0,
		}
		if size < 0 {
			b.Size = int(-size)
		}
		if next != invalidOff {
			b.Next = Ref(next + headerSize)
		}
		if !fn(b) {
			return nil
		}
		off = next
	}
	return nil
}

// Dump writes a point-in-time description of the heap: the break, every
// registry block in address order, and the stats snapshot.
func (h *Heap) Dump(w io.Writer, opts DumpOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var blocks []Block
	err := h.walk(func(b Block) bool {
		blocks = append(blocks, b)
		return true
	})
	if err != nil {
		return err
	}
	stats := h.snapshotStats()

	if opts.Format == FormatJSON {
		doc := struct {
			Break  int64   `json:"break"`
			Blocks []Block `json:"blocks"`
			Stats  Stats   `json:"stats"`
		}{stats.Break, blocks, stats}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	_, err = fmt.Fprintf(w, "heap: break=%d blocks=%d (%d allocated, %d free)\n",
		stats.Break, len(blocks), stats.LiveBlocks, stats.FreeBlocks)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		state := "allocated"
		if b.Free {
			state = "free"
		}
		next := "-"
		if b.Next != NilRef {
			next = fmt.Sprintf("%#08x", uint32(b.Next))
		}
		_, err = fmt.Fprintf(w, "  off=%#08x ref=%#08x size=%-10d %-9s next=%s\n",
			uint32(b.Ref)-headerSize, uint32(b.Ref), b.Size, state, next)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "stats: allocs=%d frees=%d reuses=%d grows=%d reclaims=%d live_bytes=%d free_bytes=%d\n",
		stats.AllocCalls, stats.FreeCalls, stats.Reuses, stats.Grows,
		stats.Reclaims, stats.LiveBytes, stats.FreeBytes)
	return err
}

// DumpState writes the text dump. It is the registry listing the
// classical allocator printed from head to tail, plus the counters.
func (h *Heap) DumpState(w io.Writer) error {
	return h.Dump(w, DefaultDumpOptions())
}
