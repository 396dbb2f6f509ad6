//go:build linux

package wsialloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// dmaHeapAllocationData mirrors struct dma_heap_allocation_data from
// <linux/dma-heap.h>.
type dmaHeapAllocationData struct {
	Len        uint64
	Fd         uint32
	FdFlags    uint32
	HeapFlags  uint64
}

const dmaHeapIoctlAlloc = 0xc0184800 // _IOWR(DMA_HEAP_IOC_MAGIC, 0x0, struct dma_heap_allocation_data)

// dmaHeapAlloc issues DMA_HEAP_IOCTL_ALLOC against an open dma-heap fd,
// returning a CLOEXEC, read/write dma-buf fd of at least size bytes.
func dmaHeapAlloc(heapFd int, size uint64) (int, error) {
	data := dmaHeapAllocationData{
		Len:     size,
		FdFlags: unix.O_RDWR | unix.O_CLOEXEC,
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(heapFd), uintptr(dmaHeapIoctlAlloc), uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		return -1, errno
	}
	return int(data.Fd), nil
}
