package wsi

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsierr"
)

// LayerSurface is the layer's record for a VkSurfaceKHR it is
// responsible for (spec.md §3/§4.3). Platform is the discriminant; Impl
// carries whichever backend-specific state that platform needs (window
// connection, display fd, XCB connection...), type-asserted by the
// owning backend's own methods rather than by callers outside it.
type LayerSurface struct {
	Handle     vk.SurfaceKHR
	Platform   Platform
	Properties SurfaceProperties
	Impl       any
}

// findLayerSurface answers spec.md §4.3's "does the layer handle this
// surface" question: yes iff a LayerSurface was attached to the handle.
// do_icds_support_surface is permanently false in this layer (no ICD in
// the corpus natively supports any of these WSI platforms), so every
// vkGetPhysicalDeviceSurface*KHR intercept starts here and forwards
// unmodified when the answer is nil.
const icdsSupportSurfaceNatively = false

func findLayerSurface(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) *LayerSurface {
	isd := instanceForPhysicalDevice(gpu)
	if isd == nil {
		return nil
	}
	return isd.surface(surface)
}

// attachSurface records a newly created downstream surface, run after
// the next layer's vkCreate<Platform>SurfaceKHR has already succeeded,
// per spec.md §4.3. On failure to attach (side-data allocation failure)
// the caller must destroy the downstream surface.
func attachSurface(isd *InstanceSideData, handle vk.SurfaceKHR, plat Platform, props SurfaceProperties, impl any) *LayerSurface {
	s := &LayerSurface{Handle: handle, Platform: plat, Properties: props, Impl: impl}
	isd.addSurface(s)
	return s
}

// DestroySurfaceKHR removes the LayerSurface entry after the downstream
// destroy, per spec.md §4.3 ("Removal in vkDestroySurfaceKHR follows the
// downstream destroy").
func DestroySurfaceKHR(instance vk.Instance, surface vk.SurfaceKHR, pAllocator *vk.AllocationCallbacks,
	callNext func(vk.Instance, vk.SurfaceKHR, *vk.AllocationCallbacks)) {
	callNext(instance, surface, pAllocator)
	if isd := instanceFor(instance); isd != nil {
		isd.removeSurface(surface)
	}
}

// GetPhysicalDeviceSurfaceCapabilitiesKHR intercepts the capability
// query, answering from the attached LayerSurface when present and
// forwarding otherwise (icdsSupportSurfaceNatively is always false, so a
// recognised surface is always answered by the layer).
func GetPhysicalDeviceSurfaceCapabilitiesKHR(gpu vk.PhysicalDevice, surface vk.SurfaceKHR, pCaps *vk.SurfaceCapabilitiesKHR,
	callNext func(vk.PhysicalDevice, vk.SurfaceKHR, *vk.SurfaceCapabilitiesKHR) vk.Result) vk.Result {

	ls := findLayerSurface(gpu, surface)
	if ls == nil {
		return callNext(gpu, surface, pCaps)
	}
	caps, err := ls.Properties.Capabilities(gpu, surface)
	if err != nil {
		return resultOf(err)
	}
	*pCaps = caps
	return vk.Success
}

func GetPhysicalDeviceSurfaceFormatsKHR(gpu vk.PhysicalDevice, surface vk.SurfaceKHR, pCount *uint32, pFormats []vk.SurfaceFormatKHR,
	callNext func(vk.PhysicalDevice, vk.SurfaceKHR, *uint32, []vk.SurfaceFormatKHR) vk.Result) vk.Result {

	ls := findLayerSurface(gpu, surface)
	if ls == nil {
		return callNext(gpu, surface, pCount, pFormats)
	}
	formats, err := ls.Properties.Formats(gpu, surface)
	if err != nil {
		return resultOf(err)
	}
	if pFormats == nil {
		*pCount = uint32(len(formats))
		return vk.Success
	}
	n := uint32(len(formats))
	truncated := false
	if *pCount < n {
		n = *pCount
		truncated = true
	}
	copy(pFormats, formats[:n])
	*pCount = n
	if truncated {
		return vk.Incomplete
	}
	return vk.Success
}

func GetPhysicalDeviceSurfacePresentModesKHR(gpu vk.PhysicalDevice, surface vk.SurfaceKHR, pCount *uint32, pModes []vk.PresentModeKHR,
	callNext func(vk.PhysicalDevice, vk.SurfaceKHR, *uint32, []vk.PresentModeKHR) vk.Result) vk.Result {

	ls := findLayerSurface(gpu, surface)
	if ls == nil {
		return callNext(gpu, surface, pCount, pModes)
	}
	modes, err := ls.Properties.PresentModes(gpu, surface)
	if err != nil {
		return resultOf(err)
	}
	if pModes == nil {
		*pCount = uint32(len(modes))
		return vk.Success
	}
	n := uint32(len(modes))
	truncated := false
	if *pCount < n {
		n = *pCount
		truncated = true
	}
	copy(pModes, modes[:n])
	*pCount = n
	if truncated {
		return vk.Incomplete
	}
	return vk.Success
}

// GetPhysicalDeviceSurfaceSupportKHR reports every queue family as
// supporting presentation when the layer owns the surface: the whole
// point of the layer is that it fabricates presentation support the ICD
// lacks.
func GetPhysicalDeviceSurfaceSupportKHR(gpu vk.PhysicalDevice, queueFamilyIndex uint32, surface vk.SurfaceKHR, pSupported *vk.Bool32,
	callNext func(vk.PhysicalDevice, uint32, vk.SurfaceKHR, *vk.Bool32) vk.Result) vk.Result {

	if ls := findLayerSurface(gpu, surface); ls != nil {
		*pSupported = vk.Bool32(1)
		return vk.Success
	}
	return callNext(gpu, queueFamilyIndex, surface, pSupported)
}

var errUnsupportedSurface = wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed)
