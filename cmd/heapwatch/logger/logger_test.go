package logger

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// resetLogger restores the discard handler after a test rewires L.
func resetLogger(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		L = slog.New(slog.NewJSONHandler(io.Discard, nil))
	})
}

func TestInitEmptyPathKeepsDiscard(t *testing.T) {
	resetLogger(t)

	before := L
	if err := Init("", slog.LevelDebug); err != nil {
		t.Fatalf("Init with empty path should succeed, got %v", err)
	}
	if L != before {
		t.Error("Init with empty path should not replace the handler")
	}

	// All levels must be safe to call with no destination.
	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
}

func TestInitWritesJSONRecords(t *testing.T) {
	resetLogger(t)

	path := filepath.Join(t.TempDir(), "session.log")
	if err := Init(path, slog.LevelInfo); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Debug("below threshold")
	Info("workload starting", "workers", 4)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("log line is not JSON: %v\nLine: %s", err, scanner.Text())
		}
		records = append(records, rec)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record (debug filtered out), got %d", len(records))
	}
	if records[0]["msg"] != "workload starting" {
		t.Errorf("msg = %v, want %q", records[0]["msg"], "workload starting")
	}
	if records[0]["workers"] != float64(4) {
		t.Errorf("workers = %v, want 4", records[0]["workers"])
	}
}

func TestInitReplacesPreviousSession(t *testing.T) {
	resetLogger(t)

	path := filepath.Join(t.TempDir(), "session.log")
	if err := os.WriteFile(path, []byte("stale previous run\n"), 0o644); err != nil {
		t.Fatalf("failed to seed old log: %v", err)
	}

	if err := Init(path, slog.LevelInfo); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info("fresh session")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log should hold the new session's record")
	}
	if string(data[:5]) == "stale" {
		t.Error("Init should truncate the previous session's log")
	}
}
