package malloc

import (
	"os"
	"unsafe"
)

// actualSize converts a caller-requested payload size into the total
// block size that must be found or carved from a free list: the
// payload rounded up to 8 bytes, plus the allocated-block header, and
// never less than a free block's minimum size (spec.md §4.1, §4.4).
func actualSize(size uintptr) uintptr {
	total := allocHeaderSize + roundUp8(size)
	if total < unallocHeaderSize {
		total = unallocHeaderSize
	}
	return total
}

// allocate finds or carves a block of at least `size` payload bytes
// and returns a pointer to its data, or nil if size is zero (spec.md
// §4.4 "reject size == 0"). If the oracle cannot supply another arena,
// the error is written to stderr and the process exits (spec.md §7
// OutOfMemory). Must be called with h.mu held.
func (h *Heap) allocate(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	actual := actualSize(size)
	i0 := h.freeList.classOf(actual)

	for {
		if blk := h.searchClasses(i0, actual); blk != nil {
			return dataPointer(blk)
		}
		if err := h.growHeap(); err != nil {
			fatalLog.Println(err)
			os.Exit(1)
		}
	}
}

// searchClasses walks the free-list classes from i0 upward, using the
// class occupancy bitmap to skip empty ones, and returns a block
// already marked allocated and unlinked — splitting a larger candidate
// if an exact or near-exact fit isn't available (spec.md §4.4 steps
// 1-2). It returns nil if no class in range holds a usable candidate.
func (h *Heap) searchClasses(i0 int, actual uintptr) *header {
	fl := h.freeList
	numLists := fl.numLists

	for i := i0; i < numLists; {
		if i != numLists-1 {
			next := fl.bitmap.nextSet(i)
			if next == -1 {
				// Nothing non-empty left below the terminal bucket; jump
				// straight there (it must still be examined even if the
				// bitmap reports it unset, since a zero bit there simply
				// means "no blocks", not "skip").
				i = numLists - 1
			} else {
				i = next
			}
		}

		sentinel := &fl.sentinels[i]
		for curr := sentinel.next; curr != sentinel; {
			next := curr.next
			if blk := h.tryTake(curr, i, actual); blk != nil {
				return blk
			}
			curr = next
		}

		if i == numLists-1 {
			return nil
		}
		i++
	}
	return nil
}

// tryTake attempts to satisfy `actual` from candidate block `curr`,
// currently known to be a member of free-list class `class`. It
// returns nil without modifying curr if curr is too small.
func (h *Heap) tryTake(curr *header, class int, actual uintptr) *header {
	currSize := getSize(curr)
	if currSize < actual {
		return nil
	}

	if currSize == actual || currSize-actual < unallocHeaderSize {
		h.freeList.removeFromClass(curr, class)
		setState(curr, stateAllocated)
		return curr
	}

	return h.split(curr, class, currSize, actual)
}

// split carves a block of size `actual` off the right-hand end of
// curr (total size currSize, currently in class `class`), leaving a
// smaller free block on the left in curr's place. This matches
// spec.md §4.4's split-tail policy: the returned block, not the
// remainder, is the one about to be handed to the caller, so it needs
// no free-list linkage at all.
func (h *Heap) split(curr *header, class int, currSize, actual uintptr) *header {
	remaining := currSize - actual
	setSize(curr, remaining)

	newBlock := right(curr)
	setSizeAndState(newBlock, actual, stateAllocated)
	newBlock.leftSize = remaining

	tail := right(newBlock)
	tail.leftSize = actual

	if newClass := h.freeList.classOf(remaining); newClass != class {
		h.freeList.update(curr, class)
	}

	return newBlock
}

// growHeap obtains a new arena from the oracle and either coalesces it
// with the end of the previous arena (if physically contiguous) or
// registers it as an independent chunk, per spec.md §4.4a. This is the
// redesigned, restart-based growth path: unlike the reference
// allocator, the caller loops back to searchClasses instead of this
// function recursing into the allocation itself.
func (h *Heap) growHeap() error {
	newBlock, err := h.arenas.allocChunk(h.opts.ArenaSize)
	if err != nil {
		return err
	}

	firstFencepost := left(newBlock)
	prevSecondFencepost := left(firstFencepost)
	secondFencepost := right(newBlock)

	if h.arenas.lastFencepost != nil && prevSecondFencepost == h.arenas.lastFencepost {
		h.coalesceNewArena(prevSecondFencepost, newBlock, secondFencepost)
	} else {
		h.arenas.registerChunk(firstFencepost)
		h.freeList.insert(newBlock)
	}
	h.arenas.lastFencepost = secondFencepost
	return nil
}

// coalesceNewArena merges a freshly obtained, physically contiguous
// arena into the tail of the previous one, per spec.md §4.4a's two
// cases: the previous arena's last block is either already free (grow
// it in place) or allocated (the two fenceposts plus the new block
// become one fresh free block).
func (h *Heap) coalesceNewArena(prevSecondFencepost, newBlock, secondFencepost *header) {
	prevBlock := left(prevSecondFencepost)

	var coalescedSize uintptr
	if getState(prevBlock) == stateUnallocated {
		oldClass := h.freeList.classOf(getSize(prevBlock))
		coalescedSize = getSize(prevBlock) + 2*allocHeaderSize + getSize(newBlock)
		setSize(prevBlock, coalescedSize)
		if newClass := h.freeList.classOf(coalescedSize); newClass != oldClass {
			h.freeList.update(prevBlock, oldClass)
		}
	} else {
		coalescedSize = 2*allocHeaderSize + getSize(newBlock)
		setSizeAndState(prevSecondFencepost, coalescedSize, stateUnallocated)
		h.freeList.insert(prevSecondFencepost)
	}
	secondFencepost.leftSize = coalescedSize
}

// zero clears n bytes starting at p.
func zero(p unsafe.Pointer, n uintptr) {
	b := unsafe.Slice((*byte)(p), int(n))
	for i := range b {
		b[i] = 0
	}
}

// memcopy copies n bytes from src to dst. The two ranges must not
// overlap, which always holds for Reallocate's use (dst is a freshly
// carved block distinct from src).
func memcopy(dst, src unsafe.Pointer, n uintptr) {
	d := unsafe.Slice((*byte)(dst), int(n))
	s := unsafe.Slice((*byte)(src), int(n))
	copy(d, s)
}
