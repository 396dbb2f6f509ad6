package wsi

import (
	"time"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsialloc"
	"github.com/vklayer/wsi/internal/wsierr"
)

// x11ImageData is the backend payload for an X11 image. The DRI3/Present
// path wraps plane 0 (X11 pixmaps are single dma-buf objects; this layer
// only ever allocates non-planar formats for this backend, matching the
// source's restriction to RGB formats for X11) in pixmap; the software
// fallback path instead owns memory/rowPitch directly and leaves pixmap
// zero.
type x11ImageData struct {
	planes   []importedPlane
	pixmap   uint32
	memory   vk.DeviceMemory
	rowPitch uint32
}

type x11Backend struct {
	surface      *LayerSurface
	conn         *x11Connection
	window       uint32
	gc           uint32
	allocator    *wsialloc.Allocator
	serial       uint32
	windowExtent vk.Extent2D
	depth        uint8

	// swWSI is true when DRI3/Present are unavailable or too old, per
	// original_source/wsi/x11/swapchain.cpp's init_platform version
	// check: images fall back to host-visible memory uploaded with
	// xcb_put_image instead of DRI3 pixmaps.
	swWSI bool
}

func newX11Backend(ls *LayerSurface) *x11Backend {
	return &x11Backend{surface: ls}
}

// initPlatform recovers the app's xcb_window_t (stashed in
// LayerSurface.Impl by CreateXcbSurfaceKHR/CreateXlibSurfaceKHR), checks
// the DRI3/Present extension versions, opens the Present special-event
// queue when both are new enough, and always uses a worker goroutine,
// matching the source's unconditional use_presentation_thread = true for
// X11. Grounded on original_source/wsi/x11/swapchain.cpp's init_platform.
func (b *x11Backend) initPlatform(sc *Swapchain) (bool, error) {
	impl, _ := sc.Surface.Impl.(*x11SurfaceImpl)
	if impl == nil {
		return false, wsierr.New(wsierr.KindSurfaceLost, vk.ErrorSurfaceLostKhr)
	}
	b.conn = impl.conn
	b.window = impl.window
	b.gc = b.conn.createGC(b.window)

	width, height, depth := b.conn.windowGeometry(b.window)
	b.windowExtent = vk.Extent2D{Width: uint32(width), Height: uint32(height)}
	b.depth = depth

	hasDRI3, hasPresent := b.conn.dri3AndPresentVersionOK()
	b.swWSI = !(hasDRI3 && hasPresent)
	if b.swWSI {
		return true, nil
	}
	b.conn.registerPresentEvents(b.window)

	alloc, err := wsialloc.New()
	if err != nil {
		return false, wsierr.Wrap(wsierr.KindInitializationFailed, err)
	}
	b.allocator = alloc
	return true, nil
}

// createAndBindImage allocates a single-plane dma-buf, imports it, and
// wraps it as a DRI3 pixmap, grounded on
// original_source/wsi/x11/swapchain.hpp's create_and_bind_swapchain_image
// (restricted here to non-planar formats, as DRI3 PixmapFromBuffer takes
// one fd); falls back to createAndBindImageSW when DRI3/Present are
// unavailable.
func (b *x11Backend) createAndBindImage(sc *Swapchain, info vk.ImageCreateInfo) (*SwapchainImage, error) {
	if b.swWSI {
		return b.createAndBindImageSW(sc, info)
	}
	candidates := fourccForVkFormat(info.Format)
	if len(candidates) == 0 {
		return nil, wsierr.New(wsierr.KindFormatNotSupported, vk.ErrorFormatNotSupported)
	}
	formats := make([]wsialloc.Format, 0, len(candidates))
	for _, fourcc := range candidates {
		formats = append(formats, wsialloc.Format{Fourcc: fourcc, Modifier: wsialloc.ModifierLinear, Flags: wsialloc.FormatNonDisjoint})
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

	const depth, bpp = 24, 32
	pixmap := b.conn.pixmapFromFd(b.window, result.BufferFDs[0], uint16(info.Extent.Width), uint16(info.Extent.Height),
		uint32(result.AverageRowStrides[0]), depth, bpp)

	fence, err := newFenceSync(device)
	if err != nil {
		b.conn.freePixmap(pixmap)
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
		Payload:          &x11ImageData{planes: planes, pixmap: pixmap},
	}, nil
}

// createAndBindImageSW is the software WSI fallback: a linear-tiled,
// host-visible image uploaded with xcb_put_image instead of scanned out
// as a DRI3 pixmap, grounded on
// original_source/wsi/x11/swapchain.cpp's sw_wsi branch of
// create_and_bind_swapchain_image/present_image.
func (b *x11Backend) createAndBindImageSW(sc *Swapchain, info vk.ImageCreateInfo) (*SwapchainImage, error) {
	info.Tiling = vk.ImageTilingLinear

	device := sc.internalDevice()
	var image vk.Image
	if ret := vk.CreateImage(device, &info, nil, &image); wsierr.IsError(ret) {
		return nil, wrapResult(ret)
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, image, &memReqs)
	memReqs.Deref()

	typeIndex, ok := hostVisibleMemoryType(sc.Device.MemProperties, memReqs.MemoryTypeBits)
	if !ok {
		vk.DestroyImage(device, image, nil)
		return nil, wsierr.New(wsierr.KindOutOfDeviceMemory, vk.ErrorOutOfDeviceMemory)
	}

	var memory vk.DeviceMemory
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: typeIndex,
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

	subresource := vk.ImageSubresource{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit)}
	var layout vk.SubresourceLayout
	vk.GetImageSubresourceLayout(device, image, &subresource, &layout)
	layout.Deref()

	fence, err := newFenceSync(device)
	if err != nil {
		vk.FreeMemory(device, memory, nil)
		vk.DestroyImage(device, image, nil)
		return nil, err
	}
	var semaphore vk.Semaphore
	vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &semaphore)

	return &SwapchainImage{
		Image:            image,
		PresentFence:     &syncFdFenceSync{fenceSync: *fence},
		PresentSemaphore: semaphore,
		Payload:          &x11ImageData{memory: memory, rowPitch: uint32(layout.RowPitch)},
	}, nil
}

// hostVisibleMemoryType picks the lowest-index memory type that is both
// allowed by typeBits and host-visible.
func hostVisibleMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32) (uint32, bool) {
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		t := props.MemoryTypes[i]
		t.Deref()
		if t.PropertyFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
			return i, true
		}
	}
	return 0, false
}

// presentImage hands the pixmap to the Present extension for the DRI3
// path (the image is freed later, asynchronously, when getFreeBuffer
// observes its IDLE_NOTIFY event) or, for the software fallback, uploads
// the mapped image directly and frees it immediately since there is no
// X-side buffer lifecycle to wait on. Grounded on
// original_source/wsi/x11/swapchain.cpp's present_image.
func (b *x11Backend) presentImage(sc *Swapchain, index int) error {
	data := sc.Images[index].Payload.(*x11ImageData)
	if b.swWSI {
		return b.presentImageSW(sc, index, data)
	}
	b.serial++
	b.conn.presentPixmap(b.window, data.pixmap, b.serial)
	return nil
}

func (b *x11Backend) presentImageSW(sc *Swapchain, index int, data *x11ImageData) error {
	device := sc.internalDevice()
	var ptr unsafe.Pointer
	if ret := vk.MapMemory(device, data.memory, 0, vk.WholeSize, 0, &ptr); wsierr.IsError(ret) {
		return wrapResult(ret)
	}
	size := int(data.rowPitch) * int(b.windowExtent.Height)
	pix := unsafe.Slice((*byte)(ptr), size)
	b.conn.putImage(b.window, b.gc, uint16(b.windowExtent.Width), uint16(b.windowExtent.Height), 0, b.depth, pix)
	vk.UnmapMemory(device, data.memory)
	sc.unpresentImage(index)
	return nil
}

func (b *x11Backend) imageWaitPresent(sc *Swapchain, index int, timeoutNanos uint64) error {
	return nil
}

func (b *x11Backend) destroyImage(sc *Swapchain, img *SwapchainImage) {
	device := sc.internalDevice()
	if data, ok := img.Payload.(*x11ImageData); ok {
		if data.pixmap != 0 {
			b.conn.freePixmap(data.pixmap)
		}
		destroyImportedPlanes(device, data.planes)
		if data.memory != vk.DeviceMemory(vk.NullHandle) {
			vk.FreeMemory(device, data.memory, nil)
		}
	}
	if img.Image != vk.Image(vk.NullHandle) {
		vk.DestroyImage(device, img.Image, nil)
		img.Image = vk.Image(vk.NullHandle)
	}
	if img.PresentSemaphore != vk.Semaphore(vk.NullHandle) {
		vk.DestroySemaphore(device, img.PresentSemaphore, nil)
	}
}

// getFreeBuffer drains the Present-extension special-event queue: an
// IDLE_NOTIFY for a pixmap this swapchain owns frees that image;
// CONFIGURE_NOTIFY reports surface loss (pixmap_flags bit 0) or
// suboptimal (a size mismatch) the same way acquiring would. The software
// fallback has no event source and defers entirely to the base's
// freeImageSem wait. Grounded on
// original_source/wsi/x11/swapchain.cpp's get_free_buffer.
func (b *x11Backend) getFreeBuffer(sc *Swapchain, timeoutInOut *uint64) (bool, error) {
	if b.swWSI {
		return false, nil
	}

	deadline := time.Now().Add(time.Duration(*timeoutInOut))
	for {
		if ev, ok := b.conn.pollPresentEvent(); ok {
			switch ev.evtype {
			case x11PresentEventConfigureNotify:
				if ev.pixmapFlags&0x1 != 0 {
					return false, wsierr.New(wsierr.KindSurfaceLost, vk.ErrorSurfaceLostKhr)
				}
				if ev.width != uint16(b.windowExtent.Width) || ev.height != uint16(b.windowExtent.Height) {
					return false, wsierr.New(wsierr.KindSuboptimal, vk.Suboptimal)
				}
			case x11PresentEventIdleNotify:
				if b.freeIdlePixmap(sc, ev.pixmap) {
					*timeoutInOut = 0
					return false, nil
				}
			}
		}
		if sc.anyImageFree() || *timeoutInOut == 0 || !time.Now().Before(deadline) {
			return false, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// freeIdlePixmap frees the image whose pixmap matches, found by scanning
// as original_source's IDLE_NOTIFY handler does.
func (b *x11Backend) freeIdlePixmap(sc *Swapchain, pixmap uint32) bool {
	for i, img := range sc.Images {
		data, ok := img.Payload.(*x11ImageData)
		if ok && data.pixmap == pixmap && img.Status != ImageFree {
			sc.unpresentImage(i)
			return true
		}
	}
	return false
}

// x11SurfaceImpl is what CreateXcbSurfaceKHR/CreateXlibSurfaceKHR stash in
// LayerSurface.Impl.
type x11SurfaceImpl struct {
	conn   *x11Connection
	window uint32
}

type x11SurfaceProperties struct{}

func (x11SurfaceProperties) Capabilities(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) (vk.SurfaceCapabilitiesKHR, error) {
	return vk.SurfaceCapabilitiesKHR{
		MinImageCount:           2,
		MaxImageCount:           4,
		CurrentExtent:           vk.Extent2D{Width: 0xffffffff, Height: 0xffffffff},
		MinImageExtent:          vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent:          vk.Extent2D{Width: 0xffffffff, Height: 0xffffffff},
		MaxImageArrayLayers:     1,
		SupportedTransforms:     vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit),
		CurrentTransform:        vk.SurfaceTransformIdentityBit,
		SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit),
		SupportedUsageFlags:     vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit),
	}, nil
}

func (x11SurfaceProperties) Formats(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) ([]vk.SurfaceFormatKHR, error) {
	return []vk.SurfaceFormatKHR{{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}}, nil
}

func (x11SurfaceProperties) PresentModes(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) ([]vk.PresentModeKHR, error) {
	return []vk.PresentModeKHR{vk.PresentModeFifo, vk.PresentModeImmediate}, nil
}

func (x11SurfaceProperties) RequiredDeviceExtensions() []string {
	return []string{"VK_EXT_image_drm_format_modifier", "VK_KHR_external_memory_fd", "VK_EXT_external_memory_dma_buf"}
}

func (x11SurfaceProperties) GetProcAddr(name string) uintptr {
	return 0
}

// CreateXcbSurfaceKHR forwards to the ICD, connects an XCB client of its
// own (events unrelated to presentation stay with the app's connection),
// and attaches an X11 LayerSurface.
func CreateXcbSurfaceKHR(instance vk.Instance, pCreateInfo *vk.XcbSurfaceCreateInfoKHR, pAllocator *vk.AllocationCallbacks,
	pSurface *vk.SurfaceKHR, callNext func(vk.Instance, *vk.XcbSurfaceCreateInfoKHR, *vk.AllocationCallbacks, *vk.SurfaceKHR) vk.Result) vk.Result {

	ret := callNext(instance, pCreateInfo, pAllocator, pSurface)
	if wsierr.IsError(ret) {
		return ret
	}
	isd := instanceFor(instance)
	if isd == nil {
		return ret
	}
	pCreateInfo.Deref()

	conn, err := connectX11()
	if err != nil {
		return ret
	}
	impl := &x11SurfaceImpl{conn: conn, window: uint32(pCreateInfo.Window)}
	attachSurface(isd, *pSurface, PlatformX11, x11SurfaceProperties{}, impl)
	return vk.Success
}

// CreateXlibSurfaceKHR mirrors CreateXcbSurfaceKHR for the Xlib-windowed
// path; the window id is identical between the two APIs.
func CreateXlibSurfaceKHR(instance vk.Instance, pCreateInfo *vk.XlibSurfaceCreateInfoKHR, pAllocator *vk.AllocationCallbacks,
	pSurface *vk.SurfaceKHR, callNext func(vk.Instance, *vk.XlibSurfaceCreateInfoKHR, *vk.AllocationCallbacks, *vk.SurfaceKHR) vk.Result) vk.Result {

	ret := callNext(instance, pCreateInfo, pAllocator, pSurface)
	if wsierr.IsError(ret) {
		return ret
	}
	isd := instanceFor(instance)
	if isd == nil {
		return ret
	}
	pCreateInfo.Deref()

	conn, err := connectX11()
	if err != nil {
		return ret
	}
	impl := &x11SurfaceImpl{conn: conn, window: uint32(pCreateInfo.Window)}
	attachSurface(isd, *pSurface, PlatformX11, x11SurfaceProperties{}, impl)
	return vk.Success
}
