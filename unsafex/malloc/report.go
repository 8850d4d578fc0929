package malloc

import (
	"fmt"
	"log"
	"os"

	"github.com/segheap/blockmalloc/cache/mempool"
	"github.com/segheap/blockmalloc/unsafex"
)

// fatalLog writes the process-terminating diagnostics with flags
// stripped, so spec.md §7's wording reaches stderr byte-for-byte
// instead of being prefixed with a timestamp the way log.Default()
// would.
var fatalLog = log.New(os.Stderr, "", 0)

// Reporter is the debug/print sink external collaborator named by
// spec.md §1 and §4.6: Verify calls it with a description of the first
// anomaly it finds instead of mutating anything or panicking.
type Reporter interface {
	Reportf(format string, args ...interface{})

	// ReportList dumps every block from sentinel.next up to (but not
	// including) sentinel itself, the same start-to-end sublist walk
	// original_source/printing.h's print_sublist performs, so a reader
	// can see the whole chain around a broken link or cycle instead of
	// just the one pointer Reportf names.
	ReportList(label string, sentinel *header)
}

// maxListDump bounds ReportList's walk. The list under inspection may
// itself contain the corrupt cycle Verify just detected, so the walk
// cannot simply run until it reaches the sentinel again.
const maxListDump = 4096

// stderrReporter is the default Reporter.
type stderrReporter struct {
	w *os.File
}

func newStderrReporter() *stderrReporter {
	return &stderrReporter{w: os.Stderr}
}

func (r *stderrReporter) Reportf(format string, args ...interface{}) {
	fmt.Fprintln(r.w, fmt.Sprintf(format, args...))
}

// ReportList accumulates one line per block into a buffer borrowed
// from cache/mempool, growing it with mempool.AppendStr as the walk
// proceeds (AppendStr reallocates into a larger size class and frees
// the old buffer itself once a dump outgrows its current one), then
// writes the whole dump in a single zero-copy call via
// unsafex.BinaryToString before returning the buffer to the pool.
func (r *stderrReporter) ReportList(label string, sentinel *header) {
	buf := mempool.Malloc(0)
	buf = mempool.AppendStr(buf, label)
	buf = mempool.AppendStr(buf, ":\n")

	curr := sentinel.next
	for i := 0; curr != sentinel && i < maxListDump; i, curr = i+1, curr.next {
		buf = mempool.AppendStr(buf, fmt.Sprintf("  block %p size=%d state=%d\n", curr, getSize(curr), getState(curr)))
	}

	r.w.WriteString(unsafex.BinaryToString(buf))
	mempool.Free(buf)
}

// fatalDoubleFree prints spec.md §7's exact double-free diagnostic and
// terminates the process. Unlike Reportf, the wording here is part of
// this package's documented contract, not a debug convenience, so it
// is never routed through the Reporter.
func fatalDoubleFree() {
	fatalLog.Println("Double Free Detected")
	fatalLog.Println("Assertion Failed!")
	os.Exit(1)
}
