package stress

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapkit/brk"
	"github.com/heapkit/heapkit/heap"
)

func newTestHeap(t *testing.T, reserve int64) *heap.Heap {
	t.Helper()
	m, err := brk.NewMem(reserve)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return heap.New(m)
}

func TestRunDrainsCleanly(t *testing.T) {
	h := newTestHeap(t, 16<<20)

	cfg := DefaultConfig()
	cfg.Workers = 4
	cfg.Ops = 500
	cfg.Seed = 99

	res, err := Run(h, cfg)
	require.NoError(t, err, "no corruption and no unexpected heap errors")

	assert.Equal(t, 0, res.NoSpace, "the reserve is ample for this mix")
	assert.Positive(t, res.Allocs)
	assert.Positive(t, res.Frees)
	assert.Equal(t, res.Allocs+res.Zeroed, res.Frees,
		"every block a worker made was drained; realloc frees internally")

	st := res.Final
	assert.Equal(t, 0, st.LiveBlocks, "the drain releases every live block")
	assert.Positive(t, st.Reuses+st.Reclaims)
}

func TestRunIsSeedDeterministicPerWorker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.Ops = 300
	cfg.Seed = 1234

	h1 := newTestHeap(t, 16<<20)
	r1, err := Run(h1, cfg)
	require.NoError(t, err)

	h2 := newTestHeap(t, 16<<20)
	r2, err := Run(h2, cfg)
	require.NoError(t, err)

	assert.Equal(t, r1.Allocs, r2.Allocs)
	assert.Equal(t, r1.Reallocs, r2.Reallocs)
	assert.Equal(t, r1.Frees, r2.Frees)
	assert.Equal(t, r1.BytesRequested, r2.BytesRequested)
	assert.Equal(t, r1.Final.Grows, r2.Final.Grows,
		"a single worker with a fixed seed is fully deterministic")
}

func TestRunSurvivesExhaustion(t *testing.T) {
	// A deliberately tiny segment: allocations fail with ErrNoSpace,
	// which the workload counts instead of failing.
	h := newTestHeap(t, 4096)

	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.Ops = 200
	cfg.MinSize = 256
	cfg.MaxSize = 1024

	res, err := Run(h, cfg)
	require.NoError(t, err)
	assert.Positive(t, res.NoSpace, "the tiny segment must refuse some requests")
	assert.Equal(t, 0, res.Final.LiveBlocks)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"ops", func(c *Config) { c.Ops = 0 }, "ops"},
		{"sizes", func(c *Config) { c.MinSize = 512; c.MaxSize = 16 }, "min_size"},
		{"bias range", func(c *Config) { c.ReleaseBias = 1.5 }, "release_bias"},
		{"bias sum", func(c *Config) { c.ReleaseBias = 0.6; c.ReallocBias = 0.3; c.ZeroedBias = 0.2 }, "sum"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "load.yml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 9\nmax_size: 8192\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Workers)
	assert.Equal(t, 8192, cfg.MaxSize)
	assert.Equal(t, DefaultConfig().MinSize, cfg.MinSize, "unset fields keep their defaults")
	assert.Equal(t, DefaultConfig().Seed, cfg.Seed)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("worker_count: 9\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker_count")
}

func TestLoadValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.yml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestReportFormats(t *testing.T) {
	h := newTestHeap(t, 16<<20)
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.Ops = 200

	res, err := Run(h, cfg)
	require.NoError(t, err)

	var text bytes.Buffer
	require.NoError(t, res.Report(&text))
	out := text.String()
	assert.Contains(t, out, "2 workers")
	assert.Contains(t, out, "latency (us)")
	assert.Contains(t, out, "alloc")

	var buf bytes.Buffer
	require.NoError(t, res.ReportJSON(&buf))
	var doc struct {
		Workers int                       `json:"workers"`
		Latency map[string]LatencySummary `json:"latency_us"`
		Final   heap.Stats                `json:"final"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 2, doc.Workers)
	require.Contains(t, doc.Latency, "alloc")
	assert.Positive(t, doc.Latency["alloc"].N)
	assert.Equal(t, 0, doc.Final.LiveBlocks)
}
