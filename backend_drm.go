package wsi

import (
	"os"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsialloc"
	"github.com/vklayer/wsi/internal/wsierr"
)

// drmImageData is the backend payload for a DRM image: the imported planes
// and the KMS framebuffer id wrapping them. It does not record whether the
// image is currently scanned out; destroyImage removes the framebuffer
// either way.
type drmImageData struct {
	planes []importedPlane
	fbID   uint32
}

type drmBackend struct {
	surface *LayerSurface
	dev     *drmDevice
	allocator *wsialloc.Allocator
	firstFlip bool
}

func newDRMBackend(ls *LayerSurface) *drmBackend {
	return &drmBackend{surface: ls, firstFlip: true}
}

// driDevicePath resolves the DRI node to open, defaulting to card0 but
// honouring WSI_DISPLAY_DRI_DEV the way original_source/wsi/display's
// surface_properties.cpp reads it.
func driDevicePath() string {
	if v := os.Getenv("WSI_DISPLAY_DRI_DEV"); v != "" {
		return v
	}
	return "/dev/dri/card0"
}

// initPlatform opens the DRI device (a fresh open on every call; nothing is
// shared between swapchains) and always uses a worker goroutine: every DRM
// present mode in this layer waits for a page-flip completion event.
func (b *drmBackend) initPlatform(sc *Swapchain) (bool, error) {
	path := driDevicePath()
	waitForDRIDevice(path)
	dev, err := openDRMDevice(path)
	if err != nil {
		return false, wsierr.Wrap(wsierr.KindInitializationFailed, err)
	}
	b.dev = dev

	alloc, err := wsialloc.New()
	if err != nil {
		dev.close()
		return false, wsierr.Wrap(wsierr.KindInitializationFailed, err)
	}
	b.allocator = alloc
	return true, nil
}

// createAndBindImage allocates a linear dma-buf sized to the swapchain's
// image extent, imports it, and wraps it in a KMS framebuffer, grounded on
// original_source/wsi/display/swapchain.cpp's allocate_wsialloc +
// create_framebuffer.
func (b *drmBackend) createAndBindImage(sc *Swapchain, info vk.ImageCreateInfo) (*SwapchainImage, error) {
	candidates := fourccForVkFormat(info.Format)
	if len(candidates) == 0 {
		return nil, wsierr.New(wsierr.KindFormatNotSupported, vk.ErrorFormatNotSupported)
	}
	formats := make([]wsialloc.Format, 0, len(candidates))
	for _, fourcc := range candidates {
		formats = append(formats, wsialloc.Format{Fourcc: fourcc, Modifier: wsialloc.ModifierLinear})
	}

	result, err := b.allocator.Alloc(wsialloc.AllocateInfo{
		Formats: formats,
		Width:   info.Extent.Width,
		Height:  info.Extent.Height,
	})
	if err != nil {
		return nil, wsierr.Wrap(wsierr.KindOutOfDeviceMemory, err)
	}

	external, modInfo, _ := imageDrmFormatModifierExplicitCreateInfo(result)
	modInfo.PNext = unsafe.Pointer(&external)
	info.PNext = unsafe.Pointer(&modInfo)
	info.Tiling = vk.ImageTilingDrmFormatModifierExt

	device := sc.internalDevice()
	var image vk.Image
	if ret := vk.CreateImage(device, &info, nil, &image); wsierr.IsError(ret) {
		return nil, wrapResult(ret)
	}

	planes, err := importDmaBufImage(sc.Device, image, result)
	if err != nil {
		vk.DestroyImage(device, image, nil)
		return nil, err
	}

	strides := make([]uint32, result.PlaneCount)
	offsets := make([]uint32, result.PlaneCount)
	for p := 0; p < result.PlaneCount; p++ {
		strides[p] = uint32(result.AverageRowStrides[p])
		offsets[p] = result.Offsets[p]
	}
	fbID, err := b.dev.addFramebuffer(info.Extent.Width, info.Extent.Height, result.Format.Fourcc,
		result.BufferFDs[:result.PlaneCount], strides, offsets, result.Format.Modifier)
	if err != nil {
		destroyImportedPlanes(device, planes)
		vk.DestroyImage(device, image, nil)
		return nil, wsierr.Wrap(wsierr.KindInitializationFailed, err)
	}

	fence, err := newFenceSync(device)
	if err != nil {
		b.dev.removeFramebuffer(fbID)
		destroyImportedPlanes(device, planes)
		vk.DestroyImage(device, image, nil)
		return nil, err
	}
	var semaphore vk.Semaphore
	vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &semaphore)

	return &SwapchainImage{
		Image:            image,
		PresentFence:     &syncFdFenceSync{fenceSync: *fence},
		PresentSemaphore: semaphore,
		Payload:          &drmImageData{planes: planes, fbID: fbID},
	}, nil
}

// presentImage sets the CRTC on the first present (there is nothing to
// flip from yet) and page-flips on every subsequent one, blocking for the
// flip-completion event before marking index the new on-screen image.
// The image this replaces on screen, not index itself, is what becomes
// FREE (presentOnScreen finds it by scanning for PRESENTED), grounded on
// original_source/wsi/display/drm_display.cpp's page-flip handling.
func (b *drmBackend) presentImage(sc *Swapchain, index int) error {
	data := sc.Images[index].Payload.(*drmImageData)

	if b.firstFlip {
		if err := b.dev.setCrtc(data.fbID); err != nil {
			return wsierr.Wrap(wsierr.KindSurfaceLost, err)
		}
		b.firstFlip = false
		sc.presentOnScreen(index)
		return nil
	}

	if err := b.dev.pageFlip(data.fbID, nil); err != nil {
		return wsierr.Wrap(wsierr.KindSurfaceLost, err)
	}
	if err := b.dev.waitPageFlipEvent(); err != nil {
		return wsierr.Wrap(wsierr.KindSurfaceLost, err)
	}
	sc.presentOnScreen(index)
	return nil
}

func (b *drmBackend) imageWaitPresent(sc *Swapchain, index int, timeoutNanos uint64) error {
	return nil
}

func (b *drmBackend) destroyImage(sc *Swapchain, img *SwapchainImage) {
	device := sc.internalDevice()
	if data, ok := img.Payload.(*drmImageData); ok {
		b.dev.removeFramebuffer(data.fbID)
		destroyImportedPlanes(device, data.planes)
	}
	if img.Image != vk.Image(vk.NullHandle) {
		vk.DestroyImage(device, img.Image, nil)
		img.Image = vk.Image(vk.NullHandle)
	}
	if img.PresentSemaphore != vk.Semaphore(vk.NullHandle) {
		vk.DestroySemaphore(device, img.PresentSemaphore, nil)
	}
}

func (b *drmBackend) getFreeBuffer(sc *Swapchain, timeoutInOut *uint64) (bool, error) {
	return false, nil
}

// drmSurfaceProperties answers capability queries from the connector's
// preferred mode, grounded on
// original_source/wsi/display/surface_properties.cpp.
type drmSurfaceProperties struct{}

func (drmSurfaceProperties) Capabilities(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) (vk.SurfaceCapabilitiesKHR, error) {
	dev, err := openDRMDevice(driDevicePath())
	if err != nil {
		return vk.SurfaceCapabilitiesKHR{}, wsierr.Wrap(wsierr.KindSurfaceLost, err)
	}
	defer dev.close()
	extent := vk.Extent2D{Width: dev.width(), Height: dev.height()}
	return vk.SurfaceCapabilitiesKHR{
		MinImageCount:           2,
		MaxImageCount:           4,
		CurrentExtent:           extent,
		MinImageExtent:          extent,
		MaxImageExtent:          extent,
		MaxImageArrayLayers:     1,
		SupportedTransforms:     vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit),
		CurrentTransform:        vk.SurfaceTransformIdentityBit,
		SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit),
		SupportedUsageFlags:     vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit),
	}, nil
}

func (drmSurfaceProperties) Formats(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) ([]vk.SurfaceFormatKHR, error) {
	return []vk.SurfaceFormatKHR{{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}}, nil
}

func (drmSurfaceProperties) PresentModes(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) ([]vk.PresentModeKHR, error) {
	return []vk.PresentModeKHR{vk.PresentModeFifo}, nil
}

func (drmSurfaceProperties) RequiredDeviceExtensions() []string {
	return []string{"VK_EXT_image_drm_format_modifier", "VK_KHR_external_memory_fd", "VK_EXT_external_memory_dma_buf"}
}

func (drmSurfaceProperties) GetProcAddr(name string) uintptr {
	return 0
}

// CreateDisplayPlaneSurfaceKHR forwards to the ICD and attaches a DRM
// LayerSurface; direct-display mode selection (VkDisplayModeKHR,
// VkDisplayPlaneKHR enumeration) is resolved once at backend initPlatform
// time from WSI_DISPLAY_DRI_DEV rather than from the create-info's plane
// index, a deliberate simplification noted in the design ledger.
func CreateDisplayPlaneSurfaceKHR(instance vk.Instance, pCreateInfo *vk.DisplaySurfaceCreateInfoKHR, pAllocator *vk.AllocationCallbacks,
	pSurface *vk.SurfaceKHR, callNext func(vk.Instance, *vk.DisplaySurfaceCreateInfoKHR, *vk.AllocationCallbacks, *vk.SurfaceKHR) vk.Result) vk.Result {

	ret := callNext(instance, pCreateInfo, pAllocator, pSurface)
	if wsierr.IsError(ret) {
		return ret
	}
	isd := instanceFor(instance)
	if isd == nil {
		return ret
	}
	attachSurface(isd, *pSurface, PlatformDRM, drmSurfaceProperties{}, nil)
	return vk.Success
}
