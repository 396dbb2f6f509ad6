package wsi

import vk "github.com/vulkan-go/vulkan"

// ImageStatus is one of the five states spec.md §4.4 defines for a
// presentable image.
type ImageStatus int

const (
	ImageInvalid ImageStatus = iota
	ImageFree
	ImageAcquired
	ImagePending
	ImagePresented
)

func (s ImageStatus) String() string {
	switch s {
	case ImageFree:
		return "FREE"
	case ImageAcquired:
		return "ACQUIRED"
	case ImagePending:
		return "PENDING"
	case ImagePresented:
		return "PRESENTED"
	default:
		return "INVALID"
	}
}

// SwapchainImage is a VkImage plus its present-fence, present-semaphore,
// status and whatever backend-specific payload (device memory, dma-buf
// carrier, DRM framebuffer id, native pixmap) the owning backend stashed
// in Payload. Adapted from the teacher's PerFrame (instance.go), which
// bundled a command buffer, fence and semaphore per in-flight frame;
// here the per-slot bundle is a presentable image instead of a render
// target.
type SwapchainImage struct {
	Image            vk.Image
	PresentFence     *syncFdFenceSync
	PresentSemaphore vk.Semaphore
	Status           ImageStatus
	Payload          any
}
