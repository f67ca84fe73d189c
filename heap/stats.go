package heap

// Stats carries cumulative operation counters and live gauges for one
// heap. Counters only ever grow; gauges describe the registry as it is
// now. AllocCalls counts every entry into the allocation engine,
// including the ones AllocateZeroed and Reallocate make on the
// caller's behalf.
type Stats struct {
	AllocCalls   int `json:"alloc_calls"`
	FreeCalls    int `json:"free_calls"`
	ReallocCalls int `json:"realloc_calls"`
	ZeroedCalls  int `json:"zeroed_calls"`

	Reuses   int `json:"reuses"`   // first-fit hits on free blocks
	Grows    int `json:"grows"`    // segment extensions
	Reclaims int `json:"reclaims"` // physical top-of-heap releases

	GrowBytes      int64 `json:"grow_bytes"`
	ReclaimedBytes int64 `json:"reclaimed_bytes"`
	BytesAllocated int64 `json:"bytes_allocated"`
	BytesFreed     int64 `json:"bytes_freed"`

	LiveBlocks int   `json:"live_blocks"`
	FreeBlocks int   `json:"free_blocks"`
	LiveBytes  int64 `json:"live_bytes"`
	FreeBytes  int64 `json:"free_bytes"`

	// Break is the segment break at the time of the snapshot.
	Break int64 `json:"break"`
}

// Stats returns a snapshot of the heap's counters and gauges.
func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotStats()
}

// snapshotStats copies the counters and stamps the current break.
// Lock held.
func (h *Heap) snapshotStats() Stats {
	s := h.stats
	s.Break = int64(len(h.seg.Bytes()))
	return s
}
