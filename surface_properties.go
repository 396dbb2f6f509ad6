package wsi

import vk "github.com/vulkan-go/vulkan"

// SurfaceProperties is the capability facade spec.md §3/§9 describes:
// polymorphic over capabilities, formats, present-modes,
// required-extensions and platform-specific proc-addr lookups. Each
// backend (backend_headless.go, backend_wayland.go, backend_drm.go,
// backend_x11.go) supplies one implementation; it is stateless or bound
// to a single surface, mirroring the teacher's platform.go Platform
// interface generalised from "owns the render loop" to "answers
// capability queries".
type SurfaceProperties interface {
	Capabilities(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) (vk.SurfaceCapabilitiesKHR, error)
	Formats(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) ([]vk.SurfaceFormatKHR, error)
	PresentModes(gpu vk.PhysicalDevice, surface vk.SurfaceKHR) ([]vk.PresentModeKHR, error)
	RequiredDeviceExtensions() []string
	// GetProcAddr resolves platform-specific entrypoints this surface
	// kind adds to the instance/device tables (e.g. the Wayland
	// presentation-support query). Returns 0 if name isn't one of them.
	GetProcAddr(name string) uintptr
}

// platformProcAddr dispatches to the SurfaceProperties.GetProcAddr for a
// stand-alone platform lookup that isn't tied to one surface instance
// yet (used by GetInstanceProcAddr when no LayerSurface exists but the
// app enabled a platform's extension).
func platformProcAddr(plat Platform, name string) uintptr {
	switch plat {
	case PlatformHeadless:
		return headlessSurfaceProperties{}.GetProcAddr(name)
	case PlatformWayland:
		return waylandSurfaceProperties{}.GetProcAddr(name)
	case PlatformX11:
		return x11SurfaceProperties{}.GetProcAddr(name)
	case PlatformDRM:
		return drmSurfaceProperties{}.GetProcAddr(name)
	default:
		return 0
	}
}
