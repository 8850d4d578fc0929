//go:build unix

package malloc

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapOracle requests anonymous, private pages directly from the
// kernel via mmap(2). Each arena is its own mapping: the kernel is
// free to place mappings however it likes, so contiguity between
// successive arenas is the exception rather than the rule — exactly
// the "unless a foreign caller interposes" caveat in spec.md §6. The
// allocation engine's arena-coalescing path (alloc.go) is what turns
// the occasional contiguous pair into a single free block; it is
// never relied upon for correctness.
type mmapOracle struct {
	mu sync.Mutex
}

func newDefaultOracle() oracle {
	return &mmapOracle{}
}

func (o *mmapOracle) sbrk(n uintptr) (unsafe.Pointer, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	b, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", errOutOfMemory, n, err)
	}
	return unsafe.Pointer(&b[0]), nil
}
