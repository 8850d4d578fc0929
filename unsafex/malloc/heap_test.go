package malloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, opts.validate())

	bad := opts
	bad.NumLists = 0
	assert.Error(t, bad.validate())

	bad = opts
	bad.ArenaSize = 1
	assert.Error(t, bad.validate())
}

func TestHeapAllocateAndDeallocate(t *testing.T) {
	h := newTestHeap(newContigOracle(4096), DefaultOptions())

	p := h.Allocate(100)
	require.NotNil(t, p)
	h.Deallocate(p)
	assert.True(t, h.Verify())
}

func TestHeapAllocateZeroedClearsAllBytes(t *testing.T) {
	h := newTestHeap(newContigOracle(4096), DefaultOptions())

	// The whole count*size span must come back cleared, not just the
	// first `size` bytes (spec.md §9's fix for the reference's bug).
	const count, size = 8, 16
	p := h.AllocateZeroed(count, size)
	require.NotNil(t, p)

	b := unsafe.Slice((*byte)(p), count*size)
	for i, v := range b {
		require.Zerof(t, v, "byte %d of a fresh AllocateZeroed(%d,%d) region was not cleared", i, count, size)
	}
}

func TestHeapReallocateNilActsAsAllocate(t *testing.T) {
	h := newTestHeap(newContigOracle(4096), DefaultOptions())

	p := h.Reallocate(nil, 64)
	require.NotNil(t, p)
	assert.Equal(t, stateAllocated, getState(headerFromData(p)))
}

func TestHeapReallocateZeroFreesOriginal(t *testing.T) {
	h := newTestHeap(newContigOracle(4096), DefaultOptions())

	p := h.Allocate(64)
	require.NotNil(t, p)

	got := h.Reallocate(p, 0)
	assert.Nil(t, got, "size == 0 must be rejected, same as Allocate")
	assert.Equal(t, stateUnallocated, getState(headerFromData(p)), "reallocating to size == 0 must still free the original block")
}

func TestHeapReallocatePreservesContent(t *testing.T) {
	h := newTestHeap(newContigOracle(4096), DefaultOptions())

	p := h.Allocate(32)
	require.NotNil(t, p)
	src := unsafe.Slice((*byte)(p), 32)
	for i := range src {
		src[i] = byte(i)
	}

	q := h.Reallocate(p, 16)
	require.NotNil(t, q)
	dst := unsafe.Slice((*byte)(q), 16)
	for i := range dst {
		assert.Equal(t, byte(i), dst[i], "shrinking reallocate must preserve the retained prefix")
	}
}

func TestHeapReallocateGrowPreservesAndExtends(t *testing.T) {
	h := newTestHeap(newContigOracle(4096), DefaultOptions())

	p := h.Allocate(16)
	require.NotNil(t, p)
	src := unsafe.Slice((*byte)(p), 16)
	for i := range src {
		src[i] = byte(i + 1)
	}

	q := h.Reallocate(p, 48)
	require.NotNil(t, q)
	dst := unsafe.Slice((*byte)(q), 48)
	for i := 0; i < 16; i++ {
		assert.Equal(t, byte(i+1), dst[i], "growing reallocate must preserve the original content")
	}
}

func TestHeapConcurrentAllocations(t *testing.T) {
	opts := DefaultOptions()
	opts.ArenaSize = 4096
	h := newTestHeap(newContigOracle(4096*64), opts)

	const workers = 8
	const perWorker = 50
	done := make(chan struct{})

	for w := 0; w < workers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perWorker; i++ {
				p := h.Allocate(uintptr(16 + i%64))
				if p != nil {
					h.Deallocate(p)
				}
			}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}

	assert.True(t, h.Verify())
}

func TestNewHeapRejectsInvalidOptions(t *testing.T) {
	_, err := NewHeap(Options{})
	assert.Error(t, err)
}
