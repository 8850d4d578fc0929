package malloc

import (
	"fmt"
	"unsafe"
)

// contigOracle hands out successive slices of one big backing buffer,
// so every arena it produces is physically contiguous with the last —
// used to exercise the growth-time coalescing path (spec.md §4.4a, S6).
type contigOracle struct {
	buf []byte
	off uintptr
}

func newContigOracle(total int) *contigOracle {
	return &contigOracle{buf: make([]byte, total)}
}

func (o *contigOracle) sbrk(n uintptr) (unsafe.Pointer, error) {
	if o.off+n > uintptr(len(o.buf)) {
		return nil, errOutOfMemory
	}
	p := unsafe.Pointer(&o.buf[o.off])
	o.off += n
	return p, nil
}

// gappedOracle allocates a fresh backing slice per call with deliberate
// padding, guaranteeing every arena is non-contiguous with the last —
// used to exercise the discontiguous-growth path (S5).
type gappedOracle struct{}

func (gappedOracle) sbrk(n uintptr) (unsafe.Pointer, error) {
	b := make([]byte, n+64)
	return unsafe.Pointer(&b[32]), nil
}

// unsafeAt returns a pointer off bytes into buf, as a convenience for
// tests that lay out headers by hand inside a plain byte slice.
func unsafeAt(buf []byte, off uintptr) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(&buf[0]), off)
}

// spyReporter records every message handed to it, for tests asserting
// that Verify found (or didn't find) a specific anomaly.
type spyReporter struct {
	messages []string
	lists    []string
}

func (s *spyReporter) Reportf(format string, args ...interface{}) {
	s.messages = append(s.messages, fmt.Sprintf(format, args...))
}

func (s *spyReporter) ReportList(label string, sentinel *header) {
	s.lists = append(s.lists, label)
}

// newTestHeap builds a Heap against the given oracle, bypassing
// NewHeap's platform-default oracle selection.
func newTestHeap(o oracle, opts Options) *Heap {
	h := &Heap{
		opts:     opts,
		arenas:   newArenaManager(o, opts.ArenaSize, opts.MaxNumChunks),
		freeList: newFreeList(opts.NumLists),
		reporter: &spyReporter{},
	}

	block, err := h.arenas.allocChunk(opts.ArenaSize)
	if err != nil {
		panic(err)
	}
	h.arenas.registerChunk(left(block))
	h.arenas.lastFencepost = right(block)
	h.freeList.insert(block)

	return h
}
