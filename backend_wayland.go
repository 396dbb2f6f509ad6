package wsi

import (
	"time"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"honnef.co/go/libwayland/client"

	"github.com/vklayer/wsi/internal/wsialloc"
	"github.com/vklayer/wsi/internal/wsierr"
	"github.com/vklayer/wsi/internal/wsilog"
)

// waylandFrameEventTimeout bounds how long presentImage waits for the
// compositor's frame-done event before presenting anyway, grounded on
// original_source/wsi/wayland/surface.cpp's wait_next_frame_event (a
// hardcoded 1000ms there, named here instead of inlined).
const waylandFrameEventTimeout = time.Second

// waylandImageData is the backend payload for a Wayland image: the planes
// imported as VkDeviceMemory plus the wl_buffer wrapping them. The
// buffer's release handler frees the image directly (no separate flag to
// poll), mirroring original_source/wsi/wayland/swapchain.cpp's
// release_buffer.
type waylandImageData struct {
	planes []importedPlane
	buffer *client.WlBuffer
}

type waylandBackend struct {
	surface   *LayerSurface
	conn      *wlConn
	wlSurface *client.WlSurface
	allocator *wsialloc.Allocator

	// syncIface is the per-surface zwp_linux_surface_synchronization_v1
	// object, nil if the compositor never advertised
	// zwp_linux_explicit_synchronization_v1 (presentImage then attaches
	// without an acquire fence).
	syncIface *client.ZwpLinuxSurfaceSynchronizationV1

	// framePending/frameDone track the one outstanding wl_surface.frame
	// callback FIFO presents register, per
	// original_source/wsi/wayland/surface.cpp's present_pending.
	framePending bool
	frameDone    chan struct{}
}

func newWaylandBackend(ls *LayerSurface) *waylandBackend {
	return &waylandBackend{surface: ls}
}

// initPlatform recovers the wl_display/wl_surface the surface was created
// from (stashed in LayerSurface.Impl by CreateWaylandSurfaceKHR), opens a
// wsialloc allocator, and opts into the worker goroutine for every present
// mode but mailbox, which this layer forwards to the compositor
// synchronously on QueuePresentKHR instead of queuing (matching the
// source's choice to only use a presentation thread for FIFO).
func (b *waylandBackend) initPlatform(sc *Swapchain) (bool, error) {
	impl, _ := sc.Surface.Impl.(*waylandSurfaceImpl)
	if impl == nil {
		return false, wsierr.New(wsierr.KindSurfaceLost, vk.ErrorSurfaceLostKhr)
	}
	conn, err := newWlConn(impl.display)
	if err != nil {
		return false, wsierr.Wrap(wsierr.KindInitializationFailed, err)
	}
	b.conn = conn
	b.wlSurface = impl.surface

	syncIface, err := conn.surfaceSync(impl.surface)
	if err != nil {
		wsilog.Warnf("wayland backend: zwp_linux_explicit_synchronization_v1 unavailable (%v), presenting without acquire fences", err)
	} else {
		b.syncIface = syncIface
	}

	alloc, err := wsialloc.New()
	if err != nil {
		return false, wsierr.Wrap(wsierr.KindInitializationFailed, err)
	}
	b.allocator = alloc

	return sc.PresentMode != vk.PresentModeMailbox, nil
}

// createAndBindImage allocates a dma-buf through wsialloc for one of the
// fourcc candidates fourccForVkFormat lists, imports it as device memory,
// binds the VkImage, and wraps it as a wl_buffer via
// zwp_linux_buffer_params_v1, grounded on
// original_source/wsi/wayland/swapchain.cpp's allocate_wsialloc/
// internal_bind_swapchain_image/create_and_bind_swapchain_image.
func (b *waylandBackend) createAndBindImage(sc *Swapchain, info vk.ImageCreateInfo) (*SwapchainImage, error) {
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

	external, modInfo, layouts := imageDrmFormatModifierExplicitCreateInfo(result)
	modInfo.PNext = unsafe.Pointer(&external)
	info.PNext = unsafe.Pointer(&modInfo)
	info.Tiling = vk.ImageTilingDrmFormatModifierExt
	_ = layouts

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
	for p := 0; p < result.PlaneCount; p++ {
		strides[p] = uint32(result.AverageRowStrides[p])
	}
	buffer, err := b.conn.createBuffer(int32(info.Extent.Width), int32(info.Extent.Height),
		result.Format.Fourcc, result.Format.Modifier, result.BufferFDs[:result.PlaneCount], strides, result.Offsets[:result.PlaneCount])
	if err != nil {
		destroyImportedPlanes(device, planes)
		vk.DestroyImage(device, image, nil)
		return nil, wsierr.Wrap(wsierr.KindInitializationFailed, err)
	}

	data := &waylandImageData{planes: planes, buffer: buffer}
	buffer.SetReleaseHandler(func() {
		b.releaseBuffer(sc, buffer)
	})

	fence, err := newSyncFdFenceSync(device, true)
	if err != nil {
		destroyImportedPlanes(device, planes)
		vk.DestroyImage(device, image, nil)
		return nil, err
	}

	var semaphore vk.Semaphore
	vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &semaphore)

	return &SwapchainImage{
		Image:            image,
		PresentFence:     fence,
		PresentSemaphore: semaphore,
		Payload:          data,
	}, nil
}

// releaseBuffer is the wl_buffer.release handler: it scans for the image
// that owns wayBuffer and frees it, mirroring
// original_source/wsi/wayland/swapchain.cpp's release_buffer.
func (b *waylandBackend) releaseBuffer(sc *Swapchain, wayBuffer *client.WlBuffer) {
	for i, img := range sc.Images {
		data, ok := img.Payload.(*waylandImageData)
		if ok && data.buffer == wayBuffer {
			sc.unpresentImage(i)
			return
		}
	}
}

// presentImage waits out any frame callback the previous FIFO present
// registered, attaches and damages the buffer, sets an acquire fence over
// explicit sync if the compositor supports it, registers the next frame
// callback for FIFO, and commits. It never frees the image itself: that
// happens asynchronously when the compositor releases the wl_buffer,
// grounded on original_source/wsi/wayland/swapchain.cpp's present_image.
func (b *waylandBackend) presentImage(sc *Swapchain, index int) error {
	data := sc.Images[index].Payload.(*waylandImageData)

	if err := b.waitNextFrameEvent(); err != nil {
		return wsierr.Wrap(wsierr.KindSurfaceLost, err)
	}

	b.wlSurface.Attach(data.buffer, 0, 0)

	if b.syncIface != nil {
		fd, err := sc.Images[index].PresentFence.exportSyncFd()
		if err != nil {
			return wsierr.Wrap(wsierr.KindSurfaceLost, err)
		}
		if fd >= 0 {
			if err := b.syncIface.SetAcquireFence(fd); err != nil {
				return wsierr.Wrap(wsierr.KindSurfaceLost, err)
			}
		}
	}

	b.wlSurface.DamageBuffer(0, 0, 1<<30, 1<<30)

	if sc.PresentMode == vk.PresentModeFifo {
		if err := b.setFrameCallback(); err != nil {
			return wsierr.Wrap(wsierr.KindSurfaceLost, err)
		}
	}

	b.wlSurface.Commit()
	return nil
}

// waitNextFrameEvent blocks until the compositor's frame-done callback
// fires or waylandFrameEventTimeout elapses, whichever is first; a no-op
// unless the previous present registered a callback (Mailbox never does),
// grounded on original_source/wsi/wayland/surface.cpp's
// wait_next_frame_event.
func (b *waylandBackend) waitNextFrameEvent() error {
	if !b.framePending {
		return nil
	}
	select {
	case <-b.frameDone:
	case <-time.After(waylandFrameEventTimeout):
		wsilog.Warnf("wayland backend: frame event wait timed out, presenting anyway")
	}
	b.framePending = false
	return nil
}

// setFrameCallback registers a wl_surface.frame callback for the redraw
// this present starts, so the next presentImage's waitNextFrameEvent can
// throttle on it.
func (b *waylandBackend) setFrameCallback() error {
	cb, err := b.wlSurface.Frame()
	if err != nil {
		return err
	}
	done := make(chan struct{})
	cb.SetDoneHandler(func(uint32) { close(done) })
	b.frameDone = done
	b.framePending = true
	return nil
}

func (b *waylandBackend) imageWaitPresent(sc *Swapchain, index int, timeoutNanos uint64) error {
	return nil
}

func (b *waylandBackend) destroyImage(sc *Swapchain, img *SwapchainImage) {
	device := sc.internalDevice()
	if data, ok := img.Payload.(*waylandImageData); ok {
		if data.buffer != nil {
			data.buffer.Destroy()
		}
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

// getFreeBuffer dispatches the display's default queue without blocking so
// any pending wl_buffer.release events are processed before falling back
// to the base's freeImageSem wait, per
// original_source/wsi/wayland/swapchain.hpp's free_image_found/get_free_buffer.
func (b *waylandBackend) getFreeBuffer(sc *Swapchain, timeoutInOut *uint64) (bool, error) {
	b.conn.display.DispatchPending()
	return false, nil
}

// waylandSurfaceImpl is what CreateWaylandSurfaceKHR stashes in
// LayerSurface.Impl: the app-owned wl_display/wl_surface this layer draws
// into, wrapped by honnef.co/go/libwayland around the raw pointers Vulkan
// handed the ICD.
type waylandSurfaceImpl struct {
	display *client.Display
	surface *client.WlSurface
}

// waylandSurfaceProperties answers capability queries for a Wayland
// surface from the compositor's zwp_linux_dmabuf_v1 format/modifier
// advertisement (original_source/wsi/wayland/surface_properties.cpp).
type waylandSurfaceProperties struct {
	conn *wlConn
}

func (p waylandSurfaceProperties) Capabilities(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) (vk.SurfaceCapabilitiesKHR, error) {
	return vk.SurfaceCapabilitiesKHR{
		MinImageCount:       2,
		MaxImageCount:       4,
		CurrentExtent:       vk.Extent2D{Width: 0xffffffff, Height: 0xffffffff},
		MinImageExtent:      vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent:      vk.Extent2D{Width: 0xffffffff, Height: 0xffffffff},
		MaxImageArrayLayers: 1,
		SupportedTransforms: vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit),
		CurrentTransform:    vk.SurfaceTransformIdentityBit,
		SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit |
			vk.CompositeAlphaPreMultipliedBit | vk.CompositeAlphaInheritBit),
		SupportedUsageFlags: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit),
	}, nil
}

func (p waylandSurfaceProperties) Formats(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) ([]vk.SurfaceFormatKHR, error) {
	var out []vk.SurfaceFormatKHR
	pairs := p.conn.supportedFormats()
	for _, pair := range pairs {
		if f, ok := vkFormatForFourcc(pair.fourcc); ok {
			out = append(out, vk.SurfaceFormatKHR{Format: f, ColorSpace: vk.ColorSpaceSrgbNonlinear})
		}
	}
	if len(out) == 0 {
		out = append(out, vk.SurfaceFormatKHR{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear})
	}
	return out, nil
}

func (p waylandSurfaceProperties) PresentModes(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) ([]vk.PresentModeKHR, error) {
	return []vk.PresentModeKHR{vk.PresentModeFifo, vk.PresentModeMailbox}, nil
}

func (p waylandSurfaceProperties) RequiredDeviceExtensions() []string {
	return []string{"VK_EXT_image_drm_format_modifier", "VK_KHR_external_memory_fd", "VK_EXT_external_memory_dma_buf"}
}

func (p waylandSurfaceProperties) GetProcAddr(name string) uintptr {
	return 0
}

// CreateWaylandSurfaceKHR forwards to the ICD, wraps the app's raw
// wl_display/wl_surface pointers, and attaches a Wayland LayerSurface.
func CreateWaylandSurfaceKHR(instance vk.Instance, pCreateInfo *vk.WaylandSurfaceCreateInfoKHR, pAllocator *vk.AllocationCallbacks,
	pSurface *vk.SurfaceKHR, callNext func(vk.Instance, *vk.WaylandSurfaceCreateInfoKHR, *vk.AllocationCallbacks, *vk.SurfaceKHR) vk.Result) vk.Result {

	ret := callNext(instance, pCreateInfo, pAllocator, pSurface)
	if wsierr.IsError(ret) {
		return ret
	}
	isd := instanceFor(instance)
	if isd == nil {
		return ret
	}

	pCreateInfo.Deref()
	display := client.DisplayFromPointer(unsafe.Pointer(pCreateInfo.Display))
	surface := client.WlSurfaceFromPointer(unsafe.Pointer(pCreateInfo.Surface))
	impl := &waylandSurfaceImpl{display: display, surface: surface}

	conn, err := newWlConn(display)
	props := SurfaceProperties(headlessSurfaceProperties{})
	if err == nil {
		props = waylandSurfaceProperties{conn: conn}
	}

	attachSurface(isd, *pSurface, PlatformWayland, props, impl)
	return vk.Success
}
