package malloc

import (
	"fmt"
	"sync"
	"unsafe"
)

// Options configures a Heap. The zero value is not valid; use
// DefaultOptions and override individual fields.
type Options struct {
	// ArenaSize is the number of bytes requested from the oracle each
	// time the heap grows. Must be large enough to hold two fenceposts
	// and at least one minimum-size block.
	ArenaSize uintptr

	// NumLists is the number of size classes in the segregated
	// free-list table (spec.md §3, §6 "NUM_LISTS").
	NumLists int

	// MaxNumChunks bounds how many distinct (non-coalesced) arenas
	// Verify and debug dumps will walk (spec.md §6 "MAX_NUM_CHUNKS").
	// Arenas beyond this count remain fully usable; they are simply
	// untracked for diagnostics.
	MaxNumChunks int
}

// DefaultOptions mirrors the reference constants: a 4KB arena and 59
// size classes, matching spec.md §6.
func DefaultOptions() Options {
	return Options{
		ArenaSize:    4096,
		NumLists:     59,
		MaxNumChunks: 1024,
	}
}

func (o Options) validate() error {
	if o.NumLists < 1 {
		return fmt.Errorf("malloc: NumLists must be >= 1, got %d", o.NumLists)
	}
	if o.MaxNumChunks < 1 {
		return fmt.Errorf("malloc: MaxNumChunks must be >= 1, got %d", o.MaxNumChunks)
	}
	minArena := 2*allocHeaderSize + unallocHeaderSize
	if o.ArenaSize < minArena {
		return fmt.Errorf("malloc: ArenaSize must be >= %d, got %d", minArena, o.ArenaSize)
	}
	return nil
}

// Heap is a single segregated free-list allocator instance: an arena
// manager, a free-list index, and a debug Reporter, all guarded by one
// mutex (spec.md §5 "concurrency model").
type Heap struct {
	mu       sync.Mutex
	opts     Options
	arenas   *arenaManager
	freeList *freeList
	reporter Reporter
}

// NewHeap constructs an independent Heap, obtaining its first arena
// immediately (mirroring the reference allocator's eager init()).
func NewHeap(opts Options) (*Heap, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	h := &Heap{
		opts:     opts,
		arenas:   newArenaManager(newDefaultOracle(), opts.ArenaSize, opts.MaxNumChunks),
		freeList: newFreeList(opts.NumLists),
		reporter: newStderrReporter(),
	}

	block, err := h.arenas.allocChunk(opts.ArenaSize)
	if err != nil {
		return nil, err
	}
	h.arenas.registerChunk(left(block))
	h.arenas.lastFencepost = right(block)
	h.freeList.insert(block)

	return h, nil
}

// SetReporter replaces the default stderr Reporter, e.g. to capture
// Verify diagnostics in a test.
func (h *Heap) SetReporter(r Reporter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reporter = r
}

// Allocate returns a pointer to at least size bytes of uninitialized
// memory, or nil if size is zero (spec.md §4.1). Running out of OS
// memory is fatal: the process exits (spec.md §7).
func (h *Heap) Allocate(size uintptr) unsafe.Pointer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocate(size)
}

// AllocateZeroed returns a pointer to count*size bytes, all zeroed.
// Fixes the reference bug (spec.md §9) where only the first `size`
// bytes were cleared regardless of count.
func (h *Heap) AllocateZeroed(count, size uintptr) unsafe.Pointer {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := count * size
	p := h.allocate(total)
	if p == nil {
		return nil
	}
	zero(p, total)
	return p
}

// Reallocate resizes the allocation at p to size bytes, preserving the
// lesser of the old and new sizes of content and freeing the original
// block. A nil p behaves as Allocate(size) (spec.md §9's reference-bug
// fixes: the reference copies `size` bytes unconditionally, which both
// over-reads on shrink and can't accept a nil p). A non-nil p with
// size == 0 still frees p before returning nil, matching the reference
// allocator's myRealloc, which calls myFree(ptr) unconditionally; it
// cannot be left to fall out of the general path below, since allocate
// itself rejects size == 0 before ever reaching the copy-then-free.
func (h *Heap) Reallocate(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p == nil {
		return h.allocate(size)
	}

	if size == 0 {
		h.deallocate(p)
		return nil
	}

	hdr := headerFromData(p)
	oldPayload := getSize(hdr) - allocHeaderSize

	newP := h.allocate(size)
	if newP == nil {
		return nil
	}

	n := oldPayload
	if size < n {
		n = size
	}
	memcopy(newP, p, n)
	h.deallocate(p)
	return newP
}

// Deallocate returns the block at p to the heap. A nil p is a no-op. A
// block already marked unallocated is a double free: fatal, per
// spec.md §7.
func (h *Heap) Deallocate(p unsafe.Pointer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deallocate(p)
}

// Verify walks every tracked arena and free list, checking boundary
// tags, block states, free-list link symmetry and acyclicity, class
// membership and the class occupancy bitmap, and returns whether the
// heap is consistent. It does not check the other invariants of
// spec.md §8 (e.g. that no two adjacent blocks are both free).
// The first anomaly found is described to the Reporter.
func (h *Heap) Verify() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verify()
}

var (
	defaultHeap     *Heap
	defaultHeapOnce sync.Once
)

// bootstrap lazily constructs the package-level default Heap used by
// the free functions Allocate/AllocateZeroed/Reallocate/Free/Verify.
// Construction failures (e.g. the oracle refusing the very first
// arena) are fatal, since there is no caller to hand an error to at
// package-function call sites — mirroring the reference allocator's
// init(), which has the same property.
func bootstrap() *Heap {
	defaultHeapOnce.Do(func() {
		h, err := NewHeap(DefaultOptions())
		if err != nil {
			panic(fmt.Sprintf("malloc: bootstrap failed: %v", err))
		}
		defaultHeap = h
	})
	return defaultHeap
}

// Allocate is Heap.Allocate on the package-level default heap.
func Allocate(size uintptr) unsafe.Pointer { return bootstrap().Allocate(size) }

// AllocateZeroed is Heap.AllocateZeroed on the package-level default heap.
func AllocateZeroed(count, size uintptr) unsafe.Pointer {
	return bootstrap().AllocateZeroed(count, size)
}

// Reallocate is Heap.Reallocate on the package-level default heap.
func Reallocate(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	return bootstrap().Reallocate(p, size)
}

// Free is Heap.Deallocate on the package-level default heap.
func Free(p unsafe.Pointer) { bootstrap().Deallocate(p) }

// Verify is Heap.Verify on the package-level default heap.
func Verify() bool { return bootstrap().Verify() }
