// Package wsialloc is a window-system/platform agnostic multi-plane buffer
// allocator, grounded on original_source/util/wsialloc/wsialloc.h and
// wsialloc_ion.c. It hands back dma-buf file descriptors, one per plane
// (or one shared fd with per-plane offsets when the backend picks a
// non-disjoint format), for the Wayland and DRM backends to wrap as
// Vulkan external memory (external_memory.go) and native buffers
// (wl_buffer / KMS framebuffer).
package wsialloc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MaxPlanes mirrors WSIALLOC_MAX_PLANES.
const MaxPlanes = 4

// FormatFlag mirrors wsialloc_format_flag.
type FormatFlag uint64

const FormatNonDisjoint FormatFlag = 0x1

// AllocateFlag mirrors wsialloc_allocate_flag.
type AllocateFlag uint64

const (
	AllocateProtected                    AllocateFlag = 0x1
	AllocateNoMemory                     AllocateFlag = 0x2
	AllocateHighestFixedRateCompression  AllocateFlag = 0x4
)

// Format is a candidate {fourcc, modifier} pair the caller offers up for
// allocation, mirroring wsialloc_format.
type Format struct {
	Fourcc   uint32
	Modifier uint64
	Flags    FormatFlag
}

// AllocateInfo mirrors wsialloc_allocate_info.
type AllocateInfo struct {
	Formats []Format
	Width   uint32
	Height  uint32
	Flags   AllocateFlag
}

// Result mirrors wsialloc_allocate_result.
type Result struct {
	Format            Format
	AverageRowStrides [MaxPlanes]int
	Offsets           [MaxPlanes]uint32
	BufferFDs         [MaxPlanes]int
	PlaneCount        int
	IsDisjoint        bool
}

// Error mirrors wsialloc_error.
type Error int

const (
	ErrNone Error = iota
	ErrInvalid
	ErrNotSupported
	ErrNoResource
)

func (e Error) Error() string {
	switch e {
	case ErrInvalid:
		return "wsialloc: invalid parameters"
	case ErrNotSupported:
		return "wsialloc: format/modifier not supported"
	case ErrNoResource:
		return "wsialloc: no memory or system resource available"
	default:
		return "wsialloc: no error"
	}
}

// Allocator is the WSI buffer allocator. The default implementation backs
// allocations with Linux's dma-heap (/dev/dma_heap/system), the modern
// successor to the ION allocator wsialloc_ion.c used. Allocator is a
// concrete type and that dma-heap is its only backing store.
type Allocator struct {
	heapPath string
}

// New opens a WSI allocator backed by the system dma-heap. Analogous to
// wsialloc_new().
func New() (*Allocator, error) {
	const defaultHeap = "/dev/dma_heap/system"
	fd, err := unix.Open(defaultHeap, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("wsialloc: open %s: %w", defaultHeap, err)
	}
	unix.Close(fd)
	return &Allocator{heapPath: defaultHeap}, nil
}

// Delete releases resources held by the allocator itself. Outstanding
// allocations made from it remain valid, mirroring wsialloc_delete's
// deferred-close contract.
func (a *Allocator) Delete() {}

// Alloc allocates a buffer for the first supported format in info.Formats,
// mirroring wsialloc_alloc. The caller owns every fd in the result and must
// close each unique one exactly once. A successful VkDeviceMemory import in
// external_memory.go hands its fd to the driver; external_memory.go does not
// close fds whose import fails.
func (a *Allocator) Alloc(info AllocateInfo) (Result, error) {
	if info.Width == 0 || info.Height == 0 || len(info.Formats) == 0 {
		return Result{}, ErrInvalid
	}

formats:
	for _, f := range info.Formats {
		planes := planeCountForFourcc(f.Fourcc)
		stride := rowStride(f.Fourcc, info.Width)
		size := uint64(stride) * uint64(info.Height)
		if size == 0 {
			continue
		}

		if info.Flags&AllocateFlag(AllocateNoMemory) != 0 {
			res := Result{Format: f, PlaneCount: planes, IsDisjoint: false}
			for p := 0; p < planes; p++ {
				res.AverageRowStrides[p] = stride
				res.BufferFDs[p] = -1
			}
			return res, nil
		}

		disjoint := f.Flags&FormatNonDisjoint == 0 && planes > 1
		res := Result{Format: f, PlaneCount: planes, IsDisjoint: disjoint}

		if disjoint {
			for p := 0; p < planes; p++ {
				fd, err := a.allocDmaBuf(size)
				if err != nil {
					closeAll(res.BufferFDs[:p])
					continue formats
				}
				res.BufferFDs[p] = fd
				res.AverageRowStrides[p] = stride
				res.Offsets[p] = 0
			}
			return res, nil
		}

		totalSize := size * uint64(planes)
		fd, err := a.allocDmaBuf(totalSize)
		if err != nil {
			continue
		}
		for p := 0; p < planes; p++ {
			res.BufferFDs[p] = fd
			res.AverageRowStrides[p] = stride
			res.Offsets[p] = uint32(uint64(p) * size)
		}
		return res, nil
	}

	return Result{}, ErrNotSupported
}

func (a *Allocator) allocDmaBuf(size uint64) (int, error) {
	heapFd, err := unix.Open(a.heapPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	defer unix.Close(heapFd)

	bufFd, err := dmaHeapAlloc(heapFd, size)
	if err != nil {
		return -1, err
	}
	return bufFd, nil
}

func closeAll(fds []int) {
	seen := map[int]bool{}
	for _, fd := range fds {
		if fd <= 0 || seen[fd] {
			continue
		}
		seen[fd] = true
		unix.Close(fd)
	}
}

// rowStride picks the naive tightly-packed stride for the format; a real
// allocator would consult GPU tiling alignment requirements here.
func rowStride(fourcc uint32, width uint32) int {
	bpp := bytesPerPixel(fourcc)
	return int(width) * bpp
}

func bytesPerPixel(fourcc uint32) int {
	switch fourcc {
	case FourccNV12, FourccNV21:
		return 1
	default:
		return 4
	}
}

func planeCountForFourcc(fourcc uint32) int {
	switch fourcc {
	case FourccNV12, FourccNV21:
		return 2
	default:
		return 1
	}
}

// DRM fourcc codes the layer's backends need; kept minimal and grounded on
// drm_fourcc.h via original_source/util/drm/format_table.h.
const (
	FourccXRGB8888 uint32 = 0x34325258 // 'XR24'
	FourccARGB8888 uint32 = 0x34325241 // 'AR24'
	FourccXBGR8888 uint32 = 0x34324258 // 'XB24'
	FourccABGR8888 uint32 = 0x34324241 // 'AB24'
	FourccNV12     uint32 = 0x3231564e // 'NV12'
	FourccNV21     uint32 = 0x3132564e // 'NV21'
)

// ModifierLinear mirrors DRM_FORMAT_MOD_LINEAR.
const ModifierLinear uint64 = 0
