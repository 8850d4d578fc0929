package malloc

import "fmt"

// verify inspects every registered arena and every free-list class,
// reporting the first inconsistency it finds to h.reporter and
// returning whether the heap passed all checks (spec.md §4.6, §8).
// Must be called with h.mu held. Pure inspection: nothing is mutated.
func (h *Heap) verify() bool {
	for _, fp := range h.arenas.chunks {
		if !h.verifyArena(fp) {
			return false
		}
	}
	for i := 0; i < h.freeList.numLists; i++ {
		if !h.verifyClass(i) {
			return false
		}
	}
	return true
}

// verifyArena walks one arena from its left fencepost to the first
// fencepost to its right, checking that every block's boundary tag
// agrees with its right neighbor's recorded left-size, and that every
// block in between is marked allocated or unallocated. The first
// fencepost reached is taken as the arena's right end; a block inside
// the arena marked as a fencepost ends the walk there and is not
// reported.
func (h *Heap) verifyArena(leftFencepost *header) bool {
	if getState(leftFencepost) != stateFencepost {
		h.reporter.Reportf("verify: arena registry entry %p is not a fencepost", leftFencepost)
		return false
	}

	curr := leftFencepost
	for {
		next := right(curr)
		if next.leftSize != getSize(curr) {
			h.reporter.Reportf(
				"verify: boundary tag mismatch at %p: size=%d but right neighbor leftSize=%d",
				curr, getSize(curr), next.leftSize)
			return false
		}

		st := getState(next)
		if st == stateFencepost {
			return true
		}
		if st != stateAllocated && st != stateUnallocated {
			h.reporter.Reportf("verify: block at %p has invalid state %d", next, st)
			return false
		}
		curr = next
	}
}

// verifyClass checks list i's circularity, prev/next symmetry, class
// membership, and the occupancy bitmap bit that should track it.
func (h *Heap) verifyClass(i int) bool {
	fl := h.freeList
	sentinel := &fl.sentinels[i]

	if isEmptySentinel(sentinel) != !fl.bitmap.isSet(i) {
		h.reporter.Reportf("verify: class %d occupancy bitmap disagrees with emptiness", i)
		return false
	}

	slow, fast := sentinel.next, sentinel.next
	for slow != sentinel {
		if getState(slow) != stateUnallocated {
			h.reporter.Reportf("verify: block %p on free list %d is not marked unallocated", slow, i)
			return false
		}
		if slow.next.prev != slow || slow.prev.next != slow {
			h.reporter.Reportf("verify: free list %d broken link symmetry at %p", i, slow)
			h.reporter.ReportList(fmt.Sprintf("verify: free list %d around the break", i), sentinel)
			return false
		}
		if c := fl.classOf(getSize(slow)); c != i {
			h.reporter.Reportf("verify: block %p belongs to class %d but found on list %d", slow, c, i)
			return false
		}

		slow = slow.next
		for step := 0; step < 2 && fast != sentinel; step++ {
			fast = fast.next
		}

		if fast != sentinel && fast == slow {
			h.reporter.Reportf("verify: free list %d contains a cycle not passing through its sentinel", i)
			h.reporter.ReportList(fmt.Sprintf("verify: free list %d up to the cycle", i), sentinel)
			return false
		}
	}
	return true
}
