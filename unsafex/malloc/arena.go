package malloc

import "unsafe"

// arenaManager requests fixed-size regions from an oracle and lays out
// each one as [left fencepost | payload | right fencepost], per
// spec.md §3 "Arena" and §4.2.
type arenaManager struct {
	oracle oracle

	// arenaSize is the fixed size requested for every arena.
	arenaSize uintptr

	// chunks holds the left fencepost of every distinct (non-coalesced)
	// OS region, up to maxNumChunks entries. Arenas beyond that
	// capacity remain fully functional but aren't tracked here — they
	// just won't show up in Verify's arena-by-arena walk or in debug
	// dumps.
	chunks []*header

	// lastFencepost is the right fencepost of the most recently
	// obtained arena, used to detect physical contiguity with the next
	// one (spec.md §4.4 "Heap growth").
	lastFencepost *header

	// base is the address of the very first byte ever obtained, kept
	// only so diagnostics can report offsets relative to it.
	base unsafe.Pointer
}

func newArenaManager(o oracle, arenaSize uintptr, maxNumChunks int) *arenaManager {
	return &arenaManager{
		oracle:    o,
		arenaSize: arenaSize,
		chunks:    make([]*header, 0, maxNumChunks),
	}
}

// initFencepost marks fp as a fencepost of size allocHeaderSize with
// the given left-size boundary tag.
func initFencepost(fp *header, leftSize uintptr) {
	setSizeAndState(fp, allocHeaderSize, stateFencepost)
	fp.leftSize = leftSize
}

// allocChunk obtains size bytes from the oracle and installs
// fenceposts at both ends, per spec.md §4.2. It returns the header of
// the single unallocated block spanning the arena's payload.
func (m *arenaManager) allocChunk(size uintptr) (*header, error) {
	mem, err := m.oracle.sbrk(size)
	if err != nil {
		return nil, err
	}

	left := (*header)(mem)
	initFencepost(left, allocHeaderSize)

	right := headerAt(left, size-allocHeaderSize)
	initFencepost(right, size-2*allocHeaderSize)

	block := headerAt(left, allocHeaderSize)
	setSizeAndState(block, size-2*allocHeaderSize, stateUnallocated)
	block.leftSize = allocHeaderSize

	if m.base == nil {
		m.base = mem
	}
	return block, nil
}

// registerChunk records hdr (an arena's left fencepost) in the
// registry if there is room, per spec.md §6 "MAX_NUM_CHUNKS".
func (m *arenaManager) registerChunk(hdr *header) {
	if len(m.chunks) < cap(m.chunks) {
		m.chunks = append(m.chunks, hdr)
	}
}
