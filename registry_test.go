package wsi

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestInstanceSideDataSurfaceLifecycle(t *testing.T) {
	isd := newInstanceSideData(vk.Instance(1), NewExtensionSet(nil), apiVersion1_0)
	handle := vk.SurfaceKHR(42)

	if got := isd.Surface(handle); got != nil {
		t.Fatalf("Surface() before attach = %v, want nil", got)
	}

	ls := attachSurface(isd, handle, PlatformHeadless, headlessSurfaceProperties{}, nil)
	if got := isd.Surface(handle); got != ls {
		t.Fatalf("Surface() after attach = %v, want %v", got, ls)
	}

	isd.removeSurface(handle)
	if got := isd.Surface(handle); got != nil {
		t.Fatalf("Surface() after remove = %v, want nil", got)
	}
}

func TestDeviceSideDataSwapchainLifecycle(t *testing.T) {
	dsd := newDeviceSideData(vk.Device(1), vk.PhysicalDevice(1), nil, NewExtensionSet(nil), vk.PhysicalDeviceMemoryProperties{})
	sc := &Swapchain{Handle: vk.SwapchainKHR(7)}

	if got := dsd.Swapchain(sc.Handle); got != nil {
		t.Fatalf("Swapchain() before add = %v, want nil", got)
	}

	dsd.addSwapchain(sc)
	if got := dsd.Swapchain(sc.Handle); got != sc {
		t.Fatalf("Swapchain() after add = %v, want %v", got, sc)
	}

	dsd.removeSwapchain(sc.Handle)
	if got := dsd.Swapchain(sc.Handle); got != nil {
		t.Fatalf("Swapchain() after remove = %v, want nil", got)
	}
}

func TestRegistryInstanceRoundTrip(t *testing.T) {
	key := DispatchKey(0x1001)
	isd := newInstanceSideData(vk.Instance(1), NewExtensionSet(nil), apiVersion1_0)

	if got := registry.instance(key); got != nil {
		t.Fatalf("instance() before add = %v, want nil", got)
	}

	registry.addInstance(key, isd)
	t.Cleanup(func() { registry.removeInstance(key) })

	if got := registry.instance(key); got != isd {
		t.Fatalf("instance() after add = %v, want %v", got, isd)
	}

	registry.removeInstance(key)
	if got := registry.instance(key); got != nil {
		t.Fatalf("instance() after remove = %v, want nil", got)
	}
}

func TestRegistryDeviceRoundTrip(t *testing.T) {
	key := DispatchKey(0x2002)
	dsd := newDeviceSideData(vk.Device(1), vk.PhysicalDevice(1), nil, NewExtensionSet(nil), vk.PhysicalDeviceMemoryProperties{})

	registry.addDevice(key, dsd)
	t.Cleanup(func() { registry.removeDevice(key) })

	if got := registry.device(key); got != dsd {
		t.Fatalf("device() after add = %v, want %v", got, dsd)
	}

	handle := vk.Device(fakeDispatchable(uintptr(key)))
	if got := DeviceSideDataFor(handle); got != dsd {
		t.Fatalf("DeviceSideDataFor() = %v, want %v", got, dsd)
	}
}

func TestInstanceForPhysicalDeviceSharesParentKey(t *testing.T) {
	key := DispatchKey(0x3003)
	isd := newInstanceSideData(vk.Instance(1), NewExtensionSet(nil), apiVersion1_0)
	registry.addInstance(key, isd)
	t.Cleanup(func() { registry.removeInstance(key) })

	// physicalDeviceDispatchKey reads the first word at the handle's
	// address; fabricate a gpu handle whose dispatch word equals key so
	// instanceForPhysicalDevice resolves back to isd.
	gpu := vk.PhysicalDevice(fakeDispatchable(uintptr(key)))
	if got := instanceForPhysicalDevice(gpu); got != isd {
		t.Fatalf("instanceForPhysicalDevice() = %v, want %v", got, isd)
	}
}
