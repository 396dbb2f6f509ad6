package wsi

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsierr"
)

// headlessImageData is the backend payload for a headless image: plain
// device memory, no platform object. Grounded on
// original_source/wsi/headless/swapchain.cpp's image_data.
type headlessImageData struct {
	memory vk.DeviceMemory
}

type headlessBackend struct {
	surface *LayerSurface
}

func newHeadlessBackend(ls *LayerSurface) *headlessBackend {
	return &headlessBackend{surface: ls}
}

// initPlatform opts out of the worker goroutine only for
// shared-demand-refresh, matching the original's init_platform.
func (b *headlessBackend) initPlatform(sc *Swapchain) (bool, error) {
	return sc.PresentMode != vk.PresentModeSharedDemandRefresh, nil
}

// createAndBindImage allocates memory of the lowest memory type the image's
// requirements allow (no property flags are checked) and binds it, the
// headless path's only allocation strategy (spec.md §4.6).
func (b *headlessBackend) createAndBindImage(sc *Swapchain, info vk.ImageCreateInfo) (*SwapchainImage, error) {
	device := sc.internalDevice()

	var image vk.Image
	if ret := vk.CreateImage(device, &info, nil, &image); wsierr.IsError(ret) {
		return nil, wrapResult(ret)
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, image, &memReqs)
	memReqs.Deref()

	memTypeIndex, ok := firstSetBit(memReqs.MemoryTypeBits)
	if !ok {
		vk.DestroyImage(device, image, nil)
		return nil, wsierr.New(wsierr.KindOutOfDeviceMemory, vk.ErrorOutOfDeviceMemory)
	}

	var memory vk.DeviceMemory
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memTypeIndex,
	}
	if ret := vk.AllocateMemory(device, &allocInfo, nil, &memory); wsierr.IsError(ret) {
		vk.DestroyImage(device, image, nil)
		return nil, wrapResult(ret)
	}
	if ret := vk.BindImageMemory(device, image, memory, 0); wsierr.IsError(ret) {
		vk.FreeMemory(device, memory, nil)
		vk.DestroyImage(device, image, nil)
		return nil, wrapResult(ret)
	}

	fence, err := newSyncFdFenceSync(device, false)
	if err != nil {
		vk.FreeMemory(device, memory, nil)
		vk.DestroyImage(device, image, nil)
		return nil, err
	}

	var semaphore vk.Semaphore
	vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &semaphore)

	return &SwapchainImage{
		Image:            image,
		PresentFence:     fence,
		PresentSemaphore: semaphore,
		Payload:          &headlessImageData{memory: memory},
	}, nil
}

// presentImage has no display to hand off to: it simply returns the
// image to FREE, per spec.md §4.6.
func (b *headlessBackend) presentImage(sc *Swapchain, index int) error {
	sc.unpresentImage(index)
	return nil
}

func (b *headlessBackend) imageWaitPresent(sc *Swapchain, index int, timeoutNanos uint64) error {
	return nil
}

func (b *headlessBackend) destroyImage(sc *Swapchain, img *SwapchainImage) {
	device := sc.internalDevice()
	if img.Image != vk.Image(vk.NullHandle) {
		vk.DestroyImage(device, img.Image, nil)
		img.Image = vk.Image(vk.NullHandle)
	}
	if img.PresentSemaphore != vk.Semaphore(vk.NullHandle) {
		vk.DestroySemaphore(device, img.PresentSemaphore, nil)
	}
	if data, ok := img.Payload.(*headlessImageData); ok && data.memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(device, data.memory, nil)
		data.memory = vk.DeviceMemory(vk.NullHandle)
	}
}

// getFreeBuffer has no out-of-band event source; the base's
// freeImageSem wait does all the work.
func (b *headlessBackend) getFreeBuffer(sc *Swapchain, timeoutInOut *uint64) (bool, error) {
	return false, nil
}

func firstSetBit(mask uint32) (uint32, bool) {
	for i := uint32(0); i < 32; i++ {
		if mask&(1<<i) != 0 {
			return i, true
		}
	}
	return 0, false
}

// headlessSurfaceProperties answers capability queries for a headless
// surface: one format, the present modes spec.md §4.6 lists, and an
// effectively unconstrained extent since there is no real window.
type headlessSurfaceProperties struct{}

func (headlessSurfaceProperties) Capabilities(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) (vk.SurfaceCapabilitiesKHR, error) {
	return vk.SurfaceCapabilitiesKHR{
		MinImageCount: 1,
		MaxImageCount: 0,
		CurrentExtent: vk.Extent2D{Width: 0xffffffff, Height: 0xffffffff},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 0xffffffff, Height: 0xffffffff},
		MaxImageArrayLayers:      1,
		SupportedTransforms:      vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit),
		CurrentTransform:         vk.SurfaceTransformIdentityBit,
		SupportedCompositeAlpha:  vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit),
		SupportedUsageFlags:      vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit),
	}, nil
}

func (headlessSurfaceProperties) Formats(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) ([]vk.SurfaceFormatKHR, error) {
	return []vk.SurfaceFormatKHR{
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}, nil
}

func (headlessSurfaceProperties) PresentModes(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) ([]vk.PresentModeKHR, error) {
	return []vk.PresentModeKHR{
		vk.PresentModeFifo,
		vk.PresentModeFifoRelaxed,
		vk.PresentModeSharedDemandRefresh,
		vk.PresentModeSharedContinuousRefresh,
	}, nil
}

func (headlessSurfaceProperties) RequiredDeviceExtensions() []string {
	return nil
}

func (headlessSurfaceProperties) GetProcAddr(name string) uintptr {
	return 0
}

// CreateHeadlessSurfaceEXT forwards to the ICD then attaches a
// headless LayerSurface, per spec.md §4.3.
func CreateHeadlessSurfaceEXT(instance vk.Instance, pCreateInfo *vk.HeadlessSurfaceCreateInfoEXT, pAllocator *vk.AllocationCallbacks,
	pSurface *vk.SurfaceKHR, callNext func(vk.Instance, *vk.HeadlessSurfaceCreateInfoEXT, *vk.AllocationCallbacks, *vk.SurfaceKHR) vk.Result) vk.Result {

	ret := callNext(instance, pCreateInfo, pAllocator, pSurface)
	if wsierr.IsError(ret) {
		return ret
	}
	isd := instanceFor(instance)
	if isd == nil {
		return ret
	}
	attachSurface(isd, *pSurface, PlatformHeadless, headlessSurfaceProperties{}, nil)
	return vk.Success
}
