package trace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapkit/brk"
	"github.com/heapkit/heapkit/heap"
)

func newTestHeap(t *testing.T) *heap.Heap {
	t.Helper()
	m, err := brk.NewMem(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return heap.New(m)
}

func TestReplayEndToEnd(t *testing.T) {
	// The canonical walk: reuse below the top, reclaim at the top,
	// leaving exactly one live block.
	ops, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	h := newTestHeap(t)
	var dump bytes.Buffer
	sum, err := Replay(h, ops, &dump)
	require.NoError(t, err)

	assert.Equal(t, 6, sum.Ops)
	assert.Equal(t, 3, sum.Allocs)
	assert.Equal(t, 2, sum.Frees)
	assert.Equal(t, 1, sum.Dumps)
	assert.Equal(t, 1, sum.Live)

	assert.Contains(t, dump.String(), "blocks=1 (1 allocated, 0 free)")
	assert.Contains(t, dump.String(), "size=64")

	st := h.Stats()
	assert.Equal(t, 1, st.Reuses, "alloc 3 50 reuses the freed 64-byte block")
	assert.Equal(t, 1, st.Reclaims, "free 2 reclaims the top block")
}

func TestReplayReallocRebinds(t *testing.T) {
	script := `
alloc 1 32
realloc 1 256
free 1
realloc 2 16
free 2
`
	ops, err := Parse(strings.NewReader(script))
	require.NoError(t, err)

	h := newTestHeap(t)
	sum, err := Replay(h, ops, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Reallocs, "realloc on an unbound slot allocates")
	assert.Equal(t, 0, sum.Live)
	assert.Equal(t, 0, h.Stats().LiveBlocks)
}

func TestReplaySlotMisuse(t *testing.T) {
	h := newTestHeap(t)

	ops, err := Parse(strings.NewReader("alloc 1 32\nalloc 1 64\n"))
	require.NoError(t, err)
	_, err = Replay(h, ops, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2: slot 1 already bound")

	ops, err = Parse(strings.NewReader("free 9\n"))
	require.NoError(t, err)
	_, err = Replay(h, ops, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slot 9 not bound")
}

func TestReplayStopsOnHeapError(t *testing.T) {
	ops, err := Parse(strings.NewReader("alloc 1 1048576\n"))
	require.NoError(t, err)

	m, err := brk.NewMem(128)
	require.NoError(t, err)
	defer m.Close()

	sum, err := Replay(heap.New(m), ops, nil)
	require.ErrorIs(t, err, heap.ErrNoSpace)
	assert.Contains(t, err.Error(), "line 1")
	assert.Equal(t, 1, sum.Ops)
}
