package malloc

import "unsafe"

// deallocate returns the block backing p to its free list, coalescing
// with either physical neighbor that is itself free (spec.md §4.5).
// Must be called with h.mu held.
func (h *Heap) deallocate(p unsafe.Pointer) {
	if p == nil {
		return
	}

	hdr := headerFromData(p)
	if getState(hdr) == stateUnallocated {
		fatalDoubleFree()
		return
	}
	setState(hdr, stateUnallocated)

	l := left(hdr)
	r := right(hdr)
	lFree := getState(l) == stateUnallocated
	rFree := getState(r) == stateUnallocated

	switch {
	case lFree && rFree:
		h.coalesceBoth(l, hdr, r)
	case lFree:
		h.coalesceLeft(l, hdr)
	case rFree:
		h.coalesceRight(hdr, r)
	default:
		h.freeList.insert(hdr)
	}
}

// coalesceBoth merges l, hdr and r (l and r both already free) into a
// single block taking l's place in memory and on its free list.
func (h *Heap) coalesceBoth(l, hdr, r *header) {
	oldClass := h.freeList.classOf(getSize(l))
	rClass := h.freeList.classOf(getSize(r))

	tail := right(r)
	size := getSize(l) + getSize(hdr) + getSize(r)

	h.freeList.removeFromClass(r, rClass)
	setSize(l, size)
	tail.leftSize = size

	if newClass := h.freeList.classOf(size); newClass != oldClass {
		h.freeList.update(l, oldClass)
	}
}

// coalesceLeft merges hdr into its already-free left neighbor l.
func (h *Heap) coalesceLeft(l, hdr *header) {
	oldClass := h.freeList.classOf(getSize(l))

	r := right(hdr)
	size := getSize(l) + getSize(hdr)

	setSize(l, size)
	r.leftSize = size

	if newClass := h.freeList.classOf(size); newClass != oldClass {
		h.freeList.update(l, oldClass)
	}
}

// coalesceRight merges hdr's already-free right neighbor r into hdr,
// then inserts hdr (not previously on any list — it was allocated
// until this call) under its new, combined size.
func (h *Heap) coalesceRight(hdr, r *header) {
	rClass := h.freeList.classOf(getSize(r))

	tail := right(r)
	size := getSize(hdr) + getSize(r)

	h.freeList.removeFromClass(r, rClass)
	setSizeAndState(hdr, size, stateUnallocated)
	tail.leftSize = size

	h.freeList.insert(hdr)
}
