package heap

// The block registry is a single chain threaded through the in-band
// next fields, in strictly increasing address order. Links are only
// ever appended at the top of the heap and only the tail is ever
// detached, so the chain order never needs repair.

// findFit walks the registry from the first block and returns the
// header offset of the first free block whose capacity covers need, or
// invalidOff. Free blocks store positive sizes, so one comparison
// covers both the free check and the fit check. No splitting: a hit
// hands back the whole block, slack included.
func (h *Heap) findFit(need int32) uint32 {
	data := h.seg.Bytes()
	for off := h.first; off != invalidOff; off = getU32(data, off+nextOff) {
		if getI32(data, off+sizeOff) >= need {
			return off
		}
	}
	return invalidOff
}

// appendBlock links a freshly carved block at the tail. The header at
// off must already be written with next = invalidOff.
func (h *Heap) appendBlock(data []byte, off uint32) {
	if h.last == invalidOff {
		h.first = off
	} else {
		putU32(data, h.last+nextOff, off)
	}
	h.last = off
}

// detachLast unlinks the registry tail. The chain carries no back
// links, so the new tail is found by rewalking from the first block.
// The walk compares offsets only and never reads the departing block,
// whose bytes may already sit beyond the break.
func (h *Heap) detachLast(data []byte) {
	if h.first == h.last {
		h.first = invalidOff
		h.last = invalidOff
		return
	}
	cur := h.first
	for getU32(data, cur+nextOff) != h.last {
		cur = getU32(data, cur+nextOff)
	}
	putU32(data, cur+nextOff, invalidOff)
	h.last = cur
}
