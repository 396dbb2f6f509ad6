package wsi

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsierr"
)

// BindImageMemory2 implements the layer-owned half of vkBindImageMemory2:
// any VkBindImageMemoryInfo chaining a VkBindImageMemorySwapchainInfoKHR
// names one of this layer's swapchain images (already bound at creation
// time by the owning backend, per spec.md §4.4's create contract), so this
// call only has to report success for those and forward everything else
// to the ICD; each bind's outcome is additionally written back through a
// chained VkBindMemoryStatusKHR if present, per VK_KHR_maintenance6's
// per-bind status accumulation (spec.md §7).
func BindImageMemory2(dsd *DeviceSideData, bindInfos []vk.BindImageMemoryInfo,
	callNext func(vk.Device, []vk.BindImageMemoryInfo) vk.Result) vk.Result {

	forwarded := make([]vk.BindImageMemoryInfo, 0, len(bindInfos))
	owned := make([]int, 0)

	for i := range bindInfos {
		bindInfos[i].Deref()
		if sc, idx := findSwapchainBindTarget(dsd, &bindInfos[i]); sc != nil {
			owned = append(owned, i)
			_ = idx
			continue
		}
		forwarded = append(forwarded, bindInfos[i])
	}

	var ret vk.Result = vk.Success
	if len(forwarded) > 0 {
		ret = callNext(dsd.Device, forwarded)
	}

	for _, i := range owned {
		setBindMemoryStatus(&bindInfos[i], vk.Success)
	}
	if !wsierr.IsError(ret) {
		return vk.Success
	}
	return ret
}

// findSwapchainBindTarget walks bindInfo's pNext chain for a
// VkBindImageMemorySwapchainInfoKHR and, if present, resolves the
// swapchain and image index it names.
func findSwapchainBindTarget(dsd *DeviceSideData, bindInfo *vk.BindImageMemoryInfo) (*Swapchain, int) {
	next := bindInfo.PNext
	for next != nil {
		header := (*vk.BaseInStructure)(next)
		header.Deref()
		if header.SType == vk.StructureTypeBindImageMemorySwapchainInfoKhr {
			info := (*vk.BindImageMemorySwapchainInfoKHR)(next)
			info.Deref()
			sc := dsd.swapchain(info.Swapchain)
			if sc != nil {
				return sc, int(info.ImageIndex)
			}
			return nil, 0
		}
		next = unsafe.Pointer(header.PNext)
	}
	return nil, 0
}

// setBindMemoryStatus writes ret into bindInfo's chained
// VkBindMemoryStatusKHR, if the caller supplied one, per
// VK_KHR_maintenance6.
func setBindMemoryStatus(bindInfo *vk.BindImageMemoryInfo, ret vk.Result) {
	next := bindInfo.PNext
	for next != nil {
		header := (*vk.BaseOutStructure)(next)
		header.Deref()
		if header.SType == vk.StructureTypeBindMemoryStatusKhr {
			status := (*vk.BindMemoryStatusKHR)(next)
			status.Deref()
			if status.PResult != nil {
				*status.PResult = ret
			}
			return
		}
		next = unsafe.Pointer(header.PNext)
	}
}
