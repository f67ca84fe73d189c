package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReallocateNilRefActsAsAllocate(t *testing.T) {
	h, _ := newTestHeap(t, 1<<16)

	ref, buf, err := h.Reallocate(NilRef, 80)
	require.NoError(t, err)
	require.NotEqual(t, NilRef, ref)
	assert.Len(t, buf, 80)

	// Zero size goes down the same path and fails the same way.
	_, _, err = h.Reallocate(NilRef, 0)
	assert.ErrorIs(t, err, ErrBadSize)
	_, _, err = h.Reallocate(ref, 0)
	assert.ErrorIs(t, err, ErrBadSize)

	// The zero-size failure left the block alone.
	size, err := h.UsableSize(ref)
	require.NoError(t, err)
	assert.Equal(t, 80, size)
}

func TestReallocateWithinCapacityKeepsBlock(t *testing.T) {
	h, m := newTestHeap(t, 1<<16)

	ref, buf, err := h.Allocate(100)
	require.NoError(t, err)
	for i := range buf {
		buf[i] = byte(i)
	}

	before, err := m.Sbrk(0)
	require.NoError(t, err)

	// Shrinking: same block, same bytes, shorter view.
	got, view, err := h.Reallocate(ref, 30)
	require.NoError(t, err)
	assert.Equal(t, ref, got, "a fitting reallocation never moves the block")
	require.Len(t, view, 30)
	for i := range view {
		assert.Equal(t, byte(i), view[i])
	}

	// Growing back within the recorded capacity: still the same block.
	got, view, err = h.Reallocate(ref, 100)
	require.NoError(t, err)
	assert.Equal(t, ref, got)
	assert.Len(t, view, 100)

	after, err := m.Sbrk(0)
	require.NoError(t, err)
	assert.Equal(t, before, after, "in-place reallocation never touches the segment")

	size, err := h.UsableSize(ref)
	require.NoError(t, err)
	assert.Equal(t, 100, size, "capacity is not trimmed by a shrinking reallocation")
}

func TestReallocateGrowCopiesAndReleases(t *testing.T) {
	h, _ := newTestHeap(t, 1<<16)

	ref, buf, err := h.Allocate(40)
	require.NoError(t, err)
	for i := range buf {
		buf[i] = 0xC3
	}
	_, _, err = h.Allocate(8) // pin: the old block is not at the top
	require.NoError(t, err)

	got, view, err := h.Reallocate(ref, 200)
	require.NoError(t, err)
	require.NotEqual(t, ref, got, "growth past capacity moves the block")
	require.Len(t, view, 200)
	for i := range 40 {
		require.Equalf(t, byte(0xC3), view[i], "byte %d of the old payload must be copied", i)
	}

	// The old block was released and is reusable at its old address.
	back, _, err := h.Allocate(40)
	require.NoError(t, err)
	assert.Equal(t, ref, back)

	// The old handle no longer validates.
	_, err = h.UsableSize(got)
	require.NoError(t, err)
}

func TestReallocateTopBlockReclaimedAfterMove(t *testing.T) {
	h, m := newTestHeap(t, 1<<16)

	// Lay a free block at the bottom for the move to land in, then grow
	// the top block. Its old storage abuts the break, so the move
	// physically shrinks the heap.
	low, _, err := h.Allocate(256)
	require.NoError(t, err)
	top, buf, err := h.Allocate(64)
	require.NoError(t, err)
	buf[0] = 0x7E
	require.NoError(t, h.Release(low))

	got, view, err := h.Reallocate(top, 128)
	require.NoError(t, err)
	assert.Equal(t, low, got, "the move lands in the first fitting free block")
	assert.Equal(t, byte(0x7E), view[0])

	brkNow, err := m.Sbrk(0)
	require.NoError(t, err)
	assert.Equal(t, int64(16+256), brkNow, "the vacated top block is reclaimed")
}

func TestReallocateFailureLeavesOldBlock(t *testing.T) {
	h, _ := newTestHeap(t, 128)

	ref, buf, err := h.Allocate(64)
	require.NoError(t, err)
	buf[0] = 0x11

	_, _, err = h.Reallocate(ref, 4096)
	require.ErrorIs(t, err, ErrNoSpace)

	view, err := h.Bytes(ref)
	require.NoError(t, err, "the old block survives a failed reallocation")
	assert.Equal(t, byte(0x11), view[0])
	size, err := h.UsableSize(ref)
	require.NoError(t, err)
	assert.Equal(t, 64, size)
}

func TestReallocateRejectsBadRefs(t *testing.T) {
	h, _ := newTestHeap(t, 1<<16)

	ref, _, err := h.Allocate(64)
	require.NoError(t, err)
	_, _, err = h.Allocate(8) // pin
	require.NoError(t, err)

	_, _, err = h.Reallocate(ref+4, 128)
	assert.ErrorIs(t, err, ErrBadRef)
	_, _, err = h.Reallocate(ref, -1)
	assert.ErrorIs(t, err, ErrBadSize)

	require.NoError(t, h.Release(ref))
	_, _, err = h.Reallocate(ref, 128)
	assert.ErrorIs(t, err, ErrBadRef, "a freed block is not an outstanding allocation")
}
