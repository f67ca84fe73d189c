package heap

import (
	"fmt"
	"os"
)

// debugHeap turns every debugLogf into a stderr line regardless of the
// environment. Compile-time switch for development only.
const debugHeap = false

// logAlloc enables allocation tracing at startup via the environment.
var logAlloc = os.Getenv("HEAPKIT_LOG_ALLOC") != ""

func debugLogf(format string, args ...any) {
	if debugHeap || logAlloc {
		fmt.Fprintf(os.Stderr, "[heap] "+format+"\n", args...)
	}
}
