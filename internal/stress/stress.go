// Package stress exercises a heap with a configurable concurrent
// workload and reports operation latencies. Every live block is
// stamped with a worker-private byte and verified before it is
// touched again, so payload overlap between workers surfaces as
// corruption instead of passing silently.
package stress

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/heapkit/heapkit/heap"
)

// Config describes a workload. Biases are probabilities in [0,1];
// whatever they leave of the unit interval goes to plain allocations.
type Config struct {
	Workers     int     `yaml:"workers"`
	Ops         int     `yaml:"ops"`
	MinSize     int     `yaml:"min_size"`
	MaxSize     int     `yaml:"max_size"`
	ReleaseBias float64 `yaml:"release_bias"`
	ReallocBias float64 `yaml:"realloc_bias"`
	ZeroedBias  float64 `yaml:"zeroed_bias"`
	Seed        int64   `yaml:"seed"`
}

// DefaultConfig returns a balanced mix that keeps the live set small
// and the reclaim path busy.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		Ops:         2000,
		MinSize:     16,
		MaxSize:     4096,
		ReleaseBias: 0.5,
		ReallocBias: 0.1,
		ZeroedBias:  0.1,
		Seed:        1,
	}
}

// Load reads a YAML workload file over the defaults. Unknown fields
// are rejected.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("stress: open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("stress: parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("stress: workers must be at least 1, got %d", c.Workers)
	}
	if c.Ops < 1 {
		return fmt.Errorf("stress: ops must be at least 1, got %d", c.Ops)
	}
	if c.MinSize < 1 || c.MaxSize < c.MinSize {
		return fmt.Errorf("stress: need 1 <= min_size <= max_size, got %d..%d", c.MinSize, c.MaxSize)
	}
	for _, b := range []struct {
		name string
		v    float64
	}{
		{"release_bias", c.ReleaseBias},
		{"realloc_bias", c.ReallocBias},
		{"zeroed_bias", c.ZeroedBias},
	} {
		if b.v < 0 || b.v > 1 {
			return fmt.Errorf("stress: %s must be in [0,1], got %g", b.name, b.v)
		}
	}
	if sum := c.ReleaseBias + c.ReallocBias + c.ZeroedBias; sum > 1 {
		return fmt.Errorf("stress: biases sum to %g, must not exceed 1", sum)
	}
	return nil
}

// Run drives cfg.Workers goroutines against h, cfg.Ops operations
// each, then drains every surviving block. Any detected corruption or
// unexpected heap error aborts the run.
func Run(h *heap.Heap, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	workers := make([]*worker, cfg.Workers)
	var wg sync.WaitGroup
	for i := range workers {
		w := &worker{
			id:    i,
			stamp: byte(1 + i%255),
			rng:   rand.New(rand.NewSource(cfg.Seed + int64(i))),
		}
		workers[i] = w
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(h, cfg)
		}()
	}
	wg.Wait()

	res := &Result{Config: cfg, Elapsed: time.Since(start)}
	for _, w := range workers {
		if w.err != nil {
			return nil, w.err
		}
		res.Allocs += w.counts[opAlloc]
		res.Zeroed += w.counts[opZeroed]
		res.Reallocs += w.counts[opRealloc]
		res.Frees += w.counts[opFree]
		res.NoSpace += w.noSpace
		res.BytesRequested += w.bytes
		for k := range res.lat {
			res.lat[k] = append(res.lat[k], w.lat[k]...)
		}
	}
	res.Final = h.Stats()
	return res, nil
}

type opKind int

const (
	opAlloc opKind = iota
	opZeroed
	opRealloc
	opFree
	opKinds
)

var opNames = [opKinds]string{"alloc", "zeroed", "realloc", "free"}

type worker struct {
	id    int
	stamp byte
	rng   *rand.Rand

	counts  [opKinds]int
	lat     [opKinds][]float64 // microseconds
	bytes   int64
	noSpace int
	err     error
}

type block struct {
	ref  heap.Ref
	buf  []byte
	size int
}

func (w *worker) run(h *heap.Heap, cfg Config) {
	var live []block

	for op := 0; op < cfg.Ops; op++ {
		r := w.rng.Float64()
		switch {
		case r < cfg.ReleaseBias && len(live) > 0:
			i := w.rng.Intn(len(live))
			if !w.verify(live[i], live[i].size) {
				return
			}
			if !w.release(h, live[i]) {
				return
			}
			live = append(live[:i], live[i+1:]...)

		case r < cfg.ReleaseBias+cfg.ReallocBias && len(live) > 0:
			i := w.rng.Intn(len(live))
			if !w.verify(live[i], live[i].size) {
				return
			}
			next, ok := w.realloc(h, live[i], w.size(cfg))
			if !ok {
				return
			}
			live[i] = next

		case r < cfg.ReleaseBias+cfg.ReallocBias+cfg.ZeroedBias:
			b, ok := w.zalloc(h, cfg)
			if !ok {
				return
			}
			if b.ref != heap.NilRef {
				live = append(live, b)
			}

		default:
			b, ok := w.alloc(h, w.size(cfg))
			if !ok {
				return
			}
			if b.ref != heap.NilRef {
				live = append(live, b)
			}
		}
	}

	for _, b := range live {
		if !w.verify(b, b.size) {
			return
		}
		if !w.release(h, b) {
			return
		}
	}
}

func (w *worker) size(cfg Config) int {
	return cfg.MinSize + w.rng.Intn(cfg.MaxSize-cfg.MinSize+1)
}

// verify checks the first n stamped bytes of a live block. A foreign
// byte means another block was handed the same storage.
func (w *worker) verify(b block, n int) bool {
	for i := 0; i < n; i++ {
		if b.buf[i] != w.stamp {
			w.err = fmt.Errorf("stress: worker %d: block %#x corrupted at byte %d: got %#x want %#x",
				w.id, b.ref, i, b.buf[i], w.stamp)
			return false
		}
	}
	return true
}

func (w *worker) stampBuf(buf []byte) {
	for i := range buf {
		buf[i] = w.stamp
	}
}

func (w *worker) alloc(h *heap.Heap, size int) (block, bool) {
	t0 := time.Now()
	ref, buf, err := h.Allocate(size)
	if err != nil {
		if errors.Is(err, heap.ErrNoSpace) {
			w.noSpace++
			return block{}, true
		}
		w.err = fmt.Errorf("stress: worker %d: alloc %d: %w", w.id, size, err)
		return block{}, false
	}
	w.observe(opAlloc, t0)
	w.bytes += int64(size)
	w.stampBuf(buf)
	return block{ref: ref, buf: buf, size: size}, true
}

func (w *worker) zalloc(h *heap.Heap, cfg Config) (block, bool) {
	count := 1 + w.rng.Intn(4)
	elem := w.size(cfg)/count + 1
	t0 := time.Now()
	ref, buf, err := h.AllocateZeroed(count, elem)
	if err != nil {
		if errors.Is(err, heap.ErrNoSpace) {
			w.noSpace++
			return block{}, true
		}
		w.err = fmt.Errorf("stress: worker %d: zalloc %dx%d: %w", w.id, count, elem, err)
		return block{}, false
	}
	w.observe(opZeroed, t0)
	w.bytes += int64(count * elem)
	for i, c := range buf {
		if c != 0 {
			w.err = fmt.Errorf("stress: worker %d: zalloc byte %d not zero", w.id, i)
			return block{}, false
		}
	}
	w.stampBuf(buf)
	return block{ref: ref, buf: buf, size: count * elem}, true
}

func (w *worker) realloc(h *heap.Heap, b block, size int) (block, bool) {
	t0 := time.Now()
	ref, buf, err := h.Reallocate(b.ref, size)
	if err != nil {
		if errors.Is(err, heap.ErrNoSpace) {
			w.noSpace++
			return b, true // the old block is untouched
		}
		w.err = fmt.Errorf("stress: worker %d: realloc %#x to %d: %w", w.id, b.ref, size, err)
		return b, false
	}
	w.observe(opRealloc, t0)
	w.bytes += int64(size)

	keep := b.size
	if size < keep {
		keep = size
	}
	next := block{ref: ref, buf: buf, size: size}
	if !w.verify(next, keep) {
		return b, false
	}
	w.stampBuf(buf)
	return next, true
}

func (w *worker) release(h *heap.Heap, b block) bool {
	t0 := time.Now()
	if err := h.Release(b.ref); err != nil {
		w.err = fmt.Errorf("stress: worker %d: free %#x: %w", w.id, b.ref, err)
		return false
	}
	w.observe(opFree, t0)
	return true
}

func (w *worker) observe(k opKind, t0 time.Time) {
	w.counts[k]++
	w.lat[k] = append(w.lat[k], float64(time.Since(t0).Nanoseconds())/1e3)
}
