package wsi

import vk "github.com/vulkan-go/vulkan"

// frameBoundaryHandler tags the image being presented with a monotonically
// increasing frame id via VkFrameBoundaryEXT, for capture tools
// (RenderDoc/PIX-style) that key off VK_EXT_frame_boundary rather than
// heuristically guessing frame edges from QueuePresentKHR calls. Grounded
// on original_source/wsi/frame_boundary.hpp/.cpp.
type frameBoundaryHandler struct {
	enabled   bool
	currentID uint64
}

func newFrameBoundaryHandler(dsd *DeviceSideData) *frameBoundaryHandler {
	return &frameBoundaryHandler{enabled: dsd.Extensions.Has("VK_EXT_frame_boundary")}
}

// handleFrameBoundaryEvent builds the VkFrameBoundaryEXT for the image
// about to be presented, or reports nothing if the extension was never
// enabled on the device.
func (h *frameBoundaryHandler) handleFrameBoundaryEvent(image vk.Image) (vk.FrameBoundaryEXT, bool) {
	if !h.enabled {
		return vk.FrameBoundaryEXT{}, false
	}
	h.currentID++
	images := []vk.Image{image}
	return vk.FrameBoundaryEXT{
		SType:      vk.StructureTypeFrameBoundaryExt,
		Flags:      vk.FrameBoundaryFlags(vk.FrameBoundaryFrameEndBit),
		FrameID:    h.currentID,
		ImageCount: uint32(len(images)),
		PImages:    images,
	}, true
}
