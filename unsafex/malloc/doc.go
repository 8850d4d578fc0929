// Package malloc implements a general-purpose dynamic memory allocator
// suitable as a drop-in substitute for the platform allocator inside a
// single process.
//
// The allocator manages one or more OS-backed arenas as a segregated
// free list with boundary-tag coalescing. Each block carries a small
// header that is reused for free-list linkage while the block is free
// and becomes the first bytes of user data once the block is handed
// out. Requests are rounded up to an 8-byte multiple, matched against
// a size-class table by a first-fit search, and split so that the
// allocated portion comes off the tail of the chosen free block. Freed
// blocks are coalesced with their immediate left and right neighbors
// in O(1) using the boundary tags, so adjacent free space never
// persists as two separate blocks.
//
// A single mutex protects every exported operation; there is no
// per-thread caching and memory is never returned to the OS.
//
// The package-level functions (Allocate, AllocateZeroed, Reallocate,
// Free, Verify) operate on a lazily bootstrapped, process-wide
// Heap. Callers that want an isolated instance should use NewHeap.
package malloc
