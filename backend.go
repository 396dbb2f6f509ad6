package wsi

import "github.com/vklayer/wsi/internal/wsierr"

// newBackendForPlatform constructs the swapchainBackend for a surface's
// platform. One function rather than a registry map because the set of
// platforms is fixed at compile time (spec.md §1: headless, Wayland,
// DRM, X11).
func newBackendForPlatform(plat Platform, ls *LayerSurface) (swapchainBackend, error) {
	switch plat {
	case PlatformHeadless:
		return newHeadlessBackend(ls), nil
	case PlatformWayland:
		return newWaylandBackend(ls), nil
	case PlatformDRM:
		return newDRMBackend(ls), nil
	case PlatformX11:
		return newX11Backend(ls), nil
	default:
		return nil, wsierr.New(wsierr.KindInitializationFailed, 0)
	}
}
