package stress

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"

	"github.com/heapkit/heapkit/heap"
)

// Result aggregates a finished run.
type Result struct {
	Config  Config
	Elapsed time.Duration

	Allocs   int
	Zeroed   int
	Reallocs int
	Frees    int
	NoSpace  int

	BytesRequested int64
	Final          heap.Stats

	lat [opKinds][]float64
}

func (r *Result) totalOps() int {
	return r.Allocs + r.Zeroed + r.Reallocs + r.Frees
}

// LatencySummary holds the distribution of one operation's latencies
// in microseconds.
type LatencySummary struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean_us"`
	P50  float64 `json:"p50_us"`
	P90  float64 `json:"p90_us"`
	P99  float64 `json:"p99_us"`
	Max  float64 `json:"max_us"`
}

func summarize(samples []float64) LatencySummary {
	if len(samples) == 0 {
		return LatencySummary{}
	}
	s := LatencySummary{N: len(samples)}
	s.Mean, _ = stats.Mean(samples)
	s.P50, _ = stats.Percentile(samples, 50)
	s.P90, _ = stats.Percentile(samples, 90)
	s.P99, _ = stats.Percentile(samples, 99)
	s.Max, _ = stats.Max(samples)
	return s
}

// Latency returns the summary for one op kind by its report name
// (alloc, zeroed, realloc, free).
func (r *Result) Latency(name string) LatencySummary {
	for k, n := range opNames {
		if n == name {
			return summarize(r.lat[k])
		}
	}
	return LatencySummary{}
}

// Report writes the human-readable run summary.
func (r *Result) Report(w io.Writer) error {
	opsPerSec := float64(r.totalOps()) / r.Elapsed.Seconds()
	_, err := fmt.Fprintf(w, "stress: %d workers, %d ops in %s (%.0f ops/s)\n",
		r.Config.Workers, r.totalOps(), r.Elapsed.Round(time.Millisecond), opsPerSec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "  allocs=%d zeroed=%d reallocs=%d frees=%d nospace=%d\n",
		r.Allocs, r.Zeroed, r.Reallocs, r.Frees, r.NoSpace)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "  requested %s, final break %s, grows=%d reuses=%d reclaims=%d\n",
		humanize.Bytes(uint64(r.BytesRequested)), humanize.Bytes(uint64(r.Final.Break)),
		r.Final.Grows, r.Final.Reuses, r.Final.Reclaims)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "  latency (us)  %10s %10s %10s %10s %10s\n", "mean", "p50", "p90", "p99", "max")
	if err != nil {
		return err
	}
	for k := opKind(0); k < opKinds; k++ {
		s := summarize(r.lat[k])
		if s.N == 0 {
			continue
		}
		_, err = fmt.Fprintf(w, "  %-12s  %10.2f %10.2f %10.2f %10.2f %10.2f\n",
			opNames[k], s.Mean, s.P50, s.P90, s.P99, s.Max)
		if err != nil {
			return err
		}
	}
	return nil
}

// ReportJSON writes the run summary as indented JSON.
func (r *Result) ReportJSON(w io.Writer) error {
	doc := struct {
		Workers        int                       `json:"workers"`
		Ops            int                       `json:"ops"`
		ElapsedMs      float64                   `json:"elapsed_ms"`
		Allocs         int                       `json:"allocs"`
		Zeroed         int                       `json:"zeroed"`
		Reallocs       int                       `json:"reallocs"`
		Frees          int                       `json:"frees"`
		NoSpace        int                       `json:"nospace"`
		BytesRequested int64                     `json:"bytes_requested"`
		Latency        map[string]LatencySummary `json:"latency_us"`
		Final          heap.Stats                `json:"final"`
	}{
		Workers:        r.Config.Workers,
		Ops:            r.totalOps(),
		ElapsedMs:      float64(r.Elapsed.Nanoseconds()) / 1e6,
		Allocs:         r.Allocs,
		Zeroed:         r.Zeroed,
		Reallocs:       r.Reallocs,
		Frees:          r.Frees,
		NoSpace:        r.NoSpace,
		BytesRequested: r.BytesRequested,
		Latency:        map[string]LatencySummary{},
		Final:          r.Final,
	}
	for k := opKind(0); k < opKinds; k++ {
		if len(r.lat[k]) > 0 {
			doc.Latency[opNames[k]] = summarize(r.lat[k])
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
