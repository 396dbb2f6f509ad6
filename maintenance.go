package wsi

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsierr"
)

// releaseImages implements VK_EXT_swapchain_maintenance1's release_images:
// the app decided not to present one or more ACQUIRED images and is
// handing them back without ever calling QueuePresentKHR on them.
// Grounded on original_source/layer/swapchain_maintenance_api.cpp's
// wsi_layer_vkReleaseSwapchainImagesEXT, which forwards straight to
// swapchain_base::release_images.
func (sc *Swapchain) releaseImages(indices []uint32) {
	for _, idx := range indices {
		sc.mu.Lock()
		img := sc.Images[idx]
		if img.Status == ImageAcquired {
			img.Status = ImageFree
		}
		sc.mu.Unlock()
		if img.Status == ImageFree {
			select {
			case sc.freeImageSem <- struct{}{}:
			default:
			}
		}
	}
}

// ReleaseSwapchainImagesEXT is the entrypoint wrapper; an empty or nil
// index list is a no-op success per the extension's spec text.
func ReleaseSwapchainImagesEXT(sc *Swapchain, indices []uint32) vk.Result {
	if len(indices) == 0 {
		return vk.Success
	}
	sc.releaseImages(indices)
	return vk.Success
}

// presentFenceMode records, per swapchain, whether the app supplied its own
// VkFence via VkSwapchainPresentFenceInfoEXT on the most recent present
// instead of relying on this layer's internal present-fence; the
// maintenance1 extension lets this vary present-to-present.
type presentFenceMode struct {
	externalFence vk.Fence
}

// applyPresentFenceInfo records an app-supplied present fence for the next
// QueuePresentKHR call on sc to signal in addition to the internal one, or
// clears it if fence is VK_NULL_HANDLE.
func (sc *Swapchain) applyPresentFenceInfo(fence vk.Fence) {
	sc.mu.Lock()
	sc.presentFence.externalFence = fence
	sc.mu.Unlock()
}

// signalPresentFence submits an empty batch that waits on this present's
// semaphores and signals the app-supplied VkSwapchainPresentFenceInfoEXT
// fence recorded by applyPresentFenceInfo, then clears it: the extension
// lets the fence differ (or be absent) on every present, so one present
// must never resignal a fence from an earlier one. A no-op if the app
// supplied no fence for this present.
func (sc *Swapchain) signalPresentFence(queue vk.Queue, semaphores []vk.Semaphore) error {
	sc.mu.Lock()
	fence := sc.presentFence.externalFence
	sc.presentFence.externalFence = vk.Fence(vk.NullHandle)
	sc.mu.Unlock()

	if fence == vk.Fence(vk.NullHandle) {
		return nil
	}

	waitStages := make([]vk.PipelineStageFlags, len(semaphores))
	for i := range waitStages {
		waitStages[i] = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: uint32(len(semaphores)),
		PWaitSemaphores:    semaphores,
		PWaitDstStageMask:  waitStages,
	}
	if ret := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submit}, fence); wsierr.IsError(ret) {
		return wrapResult(ret)
	}
	return nil
}

// applyPresentScalingOverride records a per-present scaling/gravity
// override (VkSwapchainPresentScalingCreateInfoEXT); every backend in this
// layer stretches to the full surface extent already, so the override is
// accepted but has no observable effect beyond being queryable, matching
// the scope original_source scoped this feature to for non-display
// backends.
func (sc *Swapchain) applyPresentScalingOverride(behavior vk.PresentScalingFlagsEXT) {
	sc.mu.Lock()
	sc.scalingBehavior = behavior
	sc.mu.Unlock()
}
