//go:build !unix

package malloc

import (
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// sliceOracle backs arenas with ordinary Go memory on platforms where
// mmap isn't available through golang.org/x/sys/unix. dirtmake.Bytes
// skips the runtime's zero-fill, since every byte of a fresh arena is
// about to be overwritten by fenceposts and a single free block header
// anyway (arena.go's allocChunk).
//
// Each call allocates an independent Go slice, so — like mmapOracle —
// arenas are not contiguous in the general case.
type sliceOracle struct{}

func newDefaultOracle() oracle {
	return sliceOracle{}
}

func (sliceOracle) sbrk(n uintptr) (unsafe.Pointer, error) {
	b := dirtmake.Bytes(int(n), int(n))
	return unsafe.Pointer(&b[0]), nil
}
