package malloc

import "unsafe"

// state is the allocation state of a block. It is packed into the low
// 2 bits of header.size, since every block size is a multiple of 8.
type state uintptr

const (
	stateUnallocated state = 0
	stateAllocated   state = 1
	stateFencepost   state = 2

	stateMask = 0x3
)

// header is the metadata prefix of every block. size and leftSize are
// always present; next/prev are only meaningful while the
// block is unallocated. Once a block is allocated, the bytes occupied
// by next/prev belong to the caller's data and must not be touched by
// the allocator.
//
// size packs the total block size (including this header) in its high
// bits and the block's state in its low 2 bits — see getSize/setSize.
type header struct {
	size     uintptr
	leftSize uintptr
	next     *header
	prev     *header
}

const (
	// allocHeaderSize is the metadata overhead of an allocated block:
	// only the fields that are always present.
	allocHeaderSize = unsafe.Sizeof(header{}) - 2*unsafe.Sizeof((*header)(nil))

	// unallocHeaderSize is the full header, including the free-list
	// links, and therefore the minimum viable block size.
	unallocHeaderSize = unsafe.Sizeof(header{})
)

func getSize(h *header) uintptr {
	return h.size &^ stateMask
}

func setSize(h *header, size uintptr) {
	h.size = size | (h.size & stateMask)
}

func getState(h *header) state {
	return state(h.size & stateMask)
}

func setState(h *header, st state) {
	h.size = (h.size &^ stateMask) | uintptr(st)
}

func setSizeAndState(h *header, size uintptr, st state) {
	h.size = (size &^ stateMask) | uintptr(st)
}

// headerAt returns the header located off bytes from h.
func headerAt(h *header, off uintptr) *header {
	return (*header)(unsafe.Add(unsafe.Pointer(h), off))
}

// right returns the header immediately to the right of h in memory.
func right(h *header) *header {
	return headerAt(h, getSize(h))
}

// left returns the header immediately to the left of h in memory,
// using h's own boundary tag (leftSize).
func left(h *header) *header {
	return (*header)(unsafe.Add(unsafe.Pointer(h), -h.leftSize))
}

// dataPointer returns the address of the first byte of user data for
// an allocated block, which overlaps the header's next/prev fields.
func dataPointer(h *header) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), allocHeaderSize)
}

// headerFromData recovers the block header from a pointer previously
// handed out to the caller.
func headerFromData(p unsafe.Pointer) *header {
	return (*header)(unsafe.Add(p, -int(allocHeaderSize)))
}

// roundUp8 rounds n up to the next multiple of 8.
func roundUp8(n uintptr) uintptr {
	return (n + 7) &^ 7
}
