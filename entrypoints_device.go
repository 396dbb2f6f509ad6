package wsi

import (
	"sync/atomic"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsierr"
)

// swapchainHandleCounter mints the opaque VkSwapchainKHR handles this
// layer hands back to the app. A regular ICD has no native swapchain
// support for these platforms (the whole reason this layer exists), so
// CreateSwapchainKHREntry never forwards to one and must fabricate its
// own handle rather than reading one back from a call-through.
var swapchainHandleCounter uint64

func mintSwapchainHandle() vk.SwapchainKHR {
	return vk.SwapchainKHR(atomic.AddUint64(&swapchainHandleCounter, 1))
}

// CreateSwapchainKHREntry is cmd/vkwsilayer's entrypoint for
// vkCreateSwapchainKHR: resolve device/surface side data, mint a handle,
// pick an internal queue for the scheduling core's own submissions, and
// defer to CreateSwapchainKHR.
func CreateSwapchainKHREntry(device vk.Device, pCreateInfo *vk.SwapchainCreateInfoKHR, pAllocator *vk.AllocationCallbacks, pSwapchain *vk.SwapchainKHR) vk.Result {
	dsd := DeviceSideDataFor(device)
	if dsd == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	pCreateInfo.Deref()
	ls := dsd.Instance.Surface(pCreateInfo.Surface)
	if ls == nil {
		return resultOf(wsierr.New(wsierr.KindSurfaceLost, vk.ErrorSurfaceLostKhr))
	}

	var internalQueue vk.Queue
	vk.GetDeviceQueue(device, 0, 0, &internalQueue)

	handle := mintSwapchainHandle()
	sc, err := CreateSwapchainKHR(dsd, ls, pCreateInfo, internalQueue, handle)
	if err != nil {
		return resultOf(err)
	}
	*pSwapchain = sc.Handle
	return vk.Success
}

// DestroySwapchainKHREntry is vkDestroySwapchainKHR's entrypoint.
func DestroySwapchainKHREntry(device vk.Device, swapchain vk.SwapchainKHR, pAllocator *vk.AllocationCallbacks) {
	dsd := DeviceSideDataFor(device)
	if dsd == nil {
		return
	}
	sc := dsd.Swapchain(swapchain)
	if sc == nil {
		return
	}
	DestroySwapchainKHR(sc)
}

// GetSwapchainImagesKHREntry is vkGetSwapchainImagesKHR's entrypoint.
func GetSwapchainImagesKHREntry(device vk.Device, swapchain vk.SwapchainKHR, pCount *uint32, pImages []vk.Image) vk.Result {
	dsd := DeviceSideDataFor(device)
	if dsd == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	sc := dsd.Swapchain(swapchain)
	if sc == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	return sc.GetSwapchainImagesKHR(pCount, pImages)
}

// AcquireNextImageKHREntry is vkAcquireNextImageKHR's entrypoint.
func AcquireNextImageKHREntry(device vk.Device, swapchain vk.SwapchainKHR, timeoutNanos uint64, semaphore vk.Semaphore, fence vk.Fence, pImageIndex *uint32) vk.Result {
	dsd := DeviceSideDataFor(device)
	if dsd == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	sc := dsd.Swapchain(swapchain)
	if sc == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	return sc.AcquireNextImageKHR(timeoutNanos, semaphore, fence, pImageIndex)
}

// AcquireNextImage2KHREntry is vkAcquireNextImage2KHR's entrypoint.
func AcquireNextImage2KHREntry(device vk.Device, pInfo *vk.AcquireNextImageInfoKHR, pImageIndex *uint32) vk.Result {
	dsd := DeviceSideDataFor(device)
	if dsd == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	pInfo.Deref()
	sc := dsd.Swapchain(pInfo.Swapchain)
	if sc == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	return sc.AcquireNextImage2KHR(pInfo, pImageIndex)
}

// ReleaseSwapchainImagesEXTEntry is vkReleaseSwapchainImagesEXT's
// entrypoint.
func ReleaseSwapchainImagesEXTEntry(device vk.Device, pInfo *vk.ReleaseSwapchainImagesInfoEXT) vk.Result {
	dsd := DeviceSideDataFor(device)
	if dsd == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	pInfo.Deref()
	sc := dsd.Swapchain(pInfo.Swapchain)
	if sc == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	return ReleaseSwapchainImagesEXT(sc, pInfo.PImageIndices)
}

// GetPastPresentationTimingEXTEntry is vkGetPastPresentationTimingGOOGLE's
// entrypoint.
func GetPastPresentationTimingEXTEntry(device vk.Device, swapchain vk.SwapchainKHR, pCount *uint32, pTimings []vk.PastPresentationTimingGOOGLE) vk.Result {
	dsd := DeviceSideDataFor(device)
	if dsd == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	sc := dsd.Swapchain(swapchain)
	if sc == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	return sc.GetPastPresentationTimingEXT(pCount, pTimings)
}

// BindImageMemory2Entry is vkBindImageMemory2/vkBindImageMemory2KHR's
// entrypoint.
func BindImageMemory2Entry(device vk.Device, bindInfos []vk.BindImageMemoryInfo, callNext func(vk.Device, []vk.BindImageMemoryInfo) vk.Result) vk.Result {
	dsd := DeviceSideDataFor(device)
	if dsd == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	return BindImageMemory2(dsd, bindInfos, callNext)
}
