package wsi

// apiVersion1_0 through apiVersion1_2 are the vk.MakeVersion values an
// entrypoint's "became core in" field compares against, mirroring the
// VK_API_VERSION_1_x constants.
const (
	apiVersion1_0 = uint32(1 << 22)
	apiVersion1_1 = uint32(1<<22 | 1<<12)
	apiVersion1_2 = uint32(1<<22 | 2<<12)
)

// entrypointDescriptor is one row of the instance or device entrypoint
// registry described in spec.md §4.1: name, owning extension (empty for
// core), the core API version it was promoted into, and whether resolving
// it is mandatory. Visibility is not stored here; visible computes it.
type entrypointDescriptor struct {
	Name        string
	Extension   string
	CoreVersion uint32
	Required    bool
}

// instanceEntrypoints is the table GetInstanceProcAddr consults. Core
// entrypoints (Extension == "") are visible when they were core in 1.0 or
// their CoreVersion is within the instance's API version. Extension-gated ones
// are visible only when the app's InstanceSideData.Extensions has that
// extension enabled.
var instanceEntrypoints = []entrypointDescriptor{
	{Name: "vkCreateInstance", Required: true},
	{Name: "vkDestroyInstance", Required: true},
	{Name: "vkGetInstanceProcAddr", Required: true},
	{Name: "vkGetDeviceProcAddr", Required: true},
	{Name: "vkCreateDevice", Required: true},
	{Name: "vkGetPhysicalDeviceFeatures2", CoreVersion: apiVersion1_1},
	{Name: "vkGetPhysicalDeviceFeatures2KHR", Extension: "VK_KHR_get_physical_device_properties2"},

	{Name: "vkDestroySurfaceKHR", Extension: "VK_KHR_surface", Required: true},
	{Name: "vkGetPhysicalDeviceSurfaceSupportKHR", Extension: "VK_KHR_surface", Required: true},
	{Name: "vkGetPhysicalDeviceSurfaceCapabilitiesKHR", Extension: "VK_KHR_surface", Required: true},
	{Name: "vkGetPhysicalDeviceSurfaceFormatsKHR", Extension: "VK_KHR_surface", Required: true},
	{Name: "vkGetPhysicalDeviceSurfacePresentModesKHR", Extension: "VK_KHR_surface", Required: true},
	{Name: "vkGetPhysicalDevicePresentRectanglesKHR", Extension: "VK_KHR_surface_protected_capabilities"},

	{Name: "vkCreateHeadlessSurfaceEXT", Extension: "VK_EXT_headless_surface", Required: true},
	{Name: "vkCreateWaylandSurfaceKHR", Extension: "VK_KHR_wayland_surface", Required: true},
	{Name: "vkGetPhysicalDeviceWaylandPresentationSupportKHR", Extension: "VK_KHR_wayland_surface", Required: true},
	{Name: "vkCreateXcbSurfaceKHR", Extension: "VK_KHR_xcb_surface", Required: true},
	{Name: "vkGetPhysicalDeviceXcbPresentationSupportKHR", Extension: "VK_KHR_xcb_surface", Required: true},
	{Name: "vkCreateXlibSurfaceKHR", Extension: "VK_KHR_xlib_surface", Required: true},
	{Name: "vkGetPhysicalDeviceXlibPresentationSupportKHR", Extension: "VK_KHR_xlib_surface", Required: true},
	{Name: "vkCreateDisplayPlaneSurfaceKHR", Extension: "VK_KHR_display", Required: true},
}

// deviceEntrypoints is the table GetDeviceProcAddr consults.
var deviceEntrypoints = []entrypointDescriptor{
	{Name: "vkDestroyDevice", Required: true},
	{Name: "vkCreateSwapchainKHR", Extension: "VK_KHR_swapchain", Required: true},
	{Name: "vkDestroySwapchainKHR", Extension: "VK_KHR_swapchain", Required: true},
	{Name: "vkGetSwapchainImagesKHR", Extension: "VK_KHR_swapchain", Required: true},
	{Name: "vkAcquireNextImageKHR", Extension: "VK_KHR_swapchain", Required: true},
	{Name: "vkAcquireNextImage2KHR", Extension: "VK_KHR_swapchain"},
	{Name: "vkQueuePresentKHR", Extension: "VK_KHR_swapchain", Required: true},
	{Name: "vkGetDeviceGroupPresentCapabilitiesKHR", Extension: "VK_KHR_swapchain"},
	{Name: "vkGetDeviceGroupSurfacePresentModesKHR", Extension: "VK_KHR_swapchain"},
	{Name: "vkCreateImage", CoreVersion: apiVersion1_0},
	{Name: "vkBindImageMemory2", CoreVersion: apiVersion1_1},
	{Name: "vkBindImageMemory2KHR", Extension: "VK_KHR_bind_memory2"},
	{Name: "vkGetSwapchainStatusKHR", Extension: "VK_KHR_shared_presentable_image"},
	{Name: "vkReleaseSwapchainImagesEXT", Extension: "VK_EXT_swapchain_maintenance1"},
}

// visible implements spec.md §4.1's gating rule: an extension entrypoint is
// visible only if the app enabled its extension; a core entrypoint is
// visible if it was already core in 1.0 or its core version is within the
// instance's negotiated API version.
func (d entrypointDescriptor) visible(ext *ExtensionSet, apiVersion uint32) bool {
	if d.Extension == "" {
		if d.CoreVersion == 0 || d.CoreVersion <= apiVersion1_0 {
			return true
		}
		return apiVersion >= d.CoreVersion
	}
	return ext.Has(d.Extension)
}

func lookupEntrypoint(table []entrypointDescriptor, name string) (entrypointDescriptor, bool) {
	for _, d := range table {
		if d.Name == name {
			return d, true
		}
	}
	return entrypointDescriptor{}, false
}

// transitivelyRequiredDeviceExtensions returns, for each WSI platform extension the app
// enabled, any transitively-required extension it implies (spec.md §4.1:
// "augment the extension list with any transitively-required
// extensions"). VK_KHR_swapchain implies VK_KHR_surface was already
// negotiated at the instance level; at device level, VK_KHR_swapchain
// itself is the only one the layer needs present.
func transitivelyRequiredDeviceExtensions(requested []string) []string {
	need := map[string]bool{}
	for _, n := range requested {
		if _, ok := wsiPlatformExtensions[n]; ok {
			need["VK_KHR_swapchain"] = true
		}
	}
	out := make([]string, 0, len(need))
	for n := range need {
		out = append(out, n)
	}
	return out
}
