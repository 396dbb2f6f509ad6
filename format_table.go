package wsi

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsialloc"
)

// formatEntry pairs one VkFormat with its DRM fourcc, grounded on
// original_source/util/drm/format_table.c.
type formatEntry struct {
	vkFormat vk.Format
	fourcc   uint32
}

var formatTable = []formatEntry{
	{vk.FormatB8g8r8a8Unorm, wsialloc.FourccARGB8888},
	{vk.FormatR8g8b8a8Unorm, wsialloc.FourccABGR8888},
	{vk.FormatB8g8r8a8Unorm, wsialloc.FourccXRGB8888},
	{vk.FormatR8g8b8a8Unorm, wsialloc.FourccXBGR8888},
}

var srgbFormatTable = []formatEntry{
	{vk.FormatB8g8r8a8Srgb, wsialloc.FourccARGB8888},
	{vk.FormatR8g8b8a8Srgb, wsialloc.FourccABGR8888},
}

// fourccForVkFormat returns the DRM fourcc candidates for format, sRGB
// formats consulting the separate sRGB table the source keeps (its values
// share fourccs with the linear table; Vulkan distinguishes them by format,
// DRM does not).
func fourccForVkFormat(format vk.Format) []uint32 {
	var out []uint32
	for _, e := range formatTable {
		if e.vkFormat == format {
			out = append(out, e.fourcc)
		}
	}
	for _, e := range srgbFormatTable {
		if e.vkFormat == format {
			out = append(out, e.fourcc)
		}
	}
	return out
}

// vkFormatForFourcc is the inverse lookup, used when a backend reports its
// supported formats to GetPhysicalDeviceSurfaceFormatsKHR.
func vkFormatForFourcc(fourcc uint32) (vk.Format, bool) {
	for _, e := range formatTable {
		if e.fourcc == fourcc {
			return e.vkFormat, true
		}
	}
	return vk.Format(0), false
}
