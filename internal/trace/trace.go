// Package trace parses and replays allocation trace files: line-based
// scripts of heap operations used by heapctl and by end-to-end tests.
//
// Format, one operation per line, fields whitespace-separated, `#`
// starts a comment:
//
//	alloc   <slot> <size>
//	zalloc  <slot> <count> <elemSize>
//	realloc <slot> <size>
//	free    <slot>
//	dump
//
// Slots are positive integers chosen by the trace author; alloc and
// zalloc bind a slot, realloc rebinds it (an unbound slot reallocates
// from nothing, which allocates), free clears it. Files may be UTF-8
// or UTF-16 with a byte-order mark.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Kind identifies a trace operation.
type Kind int

const (
	KindAlloc Kind = iota
	KindZeroed
	KindRealloc
	KindFree
	KindDump
)

func (k Kind) String() string {
	switch k {
	case KindAlloc:
		return "alloc"
	case KindZeroed:
		return "zalloc"
	case KindRealloc:
		return "realloc"
	case KindFree:
		return "free"
	case KindDump:
		return "dump"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Op is one parsed trace operation.
type Op struct {
	Kind  Kind
	Slot  int
	Size  int // alloc, realloc
	Count int // zalloc
	Elem  int // zalloc
	Line  int // 1-based source line, for error reporting
}

// Parse reads a trace script. The reader may carry a UTF-8 or UTF-16
// byte-order mark; BOM-less input is treated as UTF-8.
func Parse(r io.Reader) ([]Op, error) {
	utf8 := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	scanner := bufio.NewScanner(utf8)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var ops []Op
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		op, err := parseOp(fields)
		if err != nil {
			return nil, fmt.Errorf("trace: line %d: %w", lineNo, err)
		}
		op.Line = lineNo
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: read: %w", err)
	}
	return ops, nil
}

func parseOp(fields []string) (Op, error) {
	verb := fields[0]
	switch verb {
	case "alloc", "realloc":
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("%s takes <slot> <size>", verb)
		}
		slot, err := parseSlot(fields[1])
		if err != nil {
			return Op{}, err
		}
		size, err := strconv.Atoi(fields[2])
		if err != nil {
			return Op{}, fmt.Errorf("bad size %q", fields[2])
		}
		kind := KindAlloc
		if verb == "realloc" {
			kind = KindRealloc
		}
		return Op{Kind: kind, Slot: slot, Size: size}, nil

	case "zalloc":
		if len(fields) != 4 {
			return Op{}, fmt.Errorf("zalloc takes <slot> <count> <elemSize>")
		}
		slot, err := parseSlot(fields[1])
		if err != nil {
			return Op{}, err
		}
		count, err := strconv.Atoi(fields[2])
		if err != nil {
			return Op{}, fmt.Errorf("bad count %q", fields[2])
		}
		elem, err := strconv.Atoi(fields[3])
		if err != nil {
			return Op{}, fmt.Errorf("bad element size %q", fields[3])
		}
		return Op{Kind: KindZeroed, Slot: slot, Count: count, Elem: elem}, nil

	case "free":
		if len(fields) != 2 {
			return Op{}, fmt.Errorf("free takes <slot>")
		}
		slot, err := parseSlot(fields[1])
		if err != nil {
			return Op{}, err
		}
		return Op{Kind: KindFree, Slot: slot}, nil

	case "dump":
		if len(fields) != 1 {
			return Op{}, fmt.Errorf("dump takes no arguments")
		}
		return Op{Kind: KindDump}, nil

	default:
		return Op{}, fmt.Errorf("unknown operation %q", verb)
	}
}

func parseSlot(s string) (int, error) {
	slot, err := strconv.Atoi(s)
	if err != nil || slot < 1 {
		return 0, fmt.Errorf("bad slot %q", s)
	}
	return slot, nil
}
