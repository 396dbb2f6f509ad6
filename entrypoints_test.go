package wsi

import "testing"

func TestEntrypointDescriptorVisibleCore(t *testing.T) {
	d := entrypointDescriptor{Name: "vkCreateInstance", Required: true}
	if !d.visible(NewExtensionSet(nil), apiVersion1_0) {
		t.Errorf("core entrypoint with no CoreVersion should always be visible")
	}
}

func TestEntrypointDescriptorVisibleByCoreVersion(t *testing.T) {
	d := entrypointDescriptor{Name: "vkGetPhysicalDeviceFeatures2", CoreVersion: apiVersion1_1}
	if d.visible(NewExtensionSet(nil), apiVersion1_0) {
		t.Errorf("1.1-promoted entrypoint should not be visible under a 1.0 instance")
	}
	if !d.visible(NewExtensionSet(nil), apiVersion1_1) {
		t.Errorf("1.1-promoted entrypoint should be visible under a 1.1 instance")
	}
	if !d.visible(NewExtensionSet(nil), apiVersion1_2) {
		t.Errorf("1.1-promoted entrypoint should remain visible under a 1.2 instance")
	}
}

func TestEntrypointDescriptorVisibleByExtension(t *testing.T) {
	d := entrypointDescriptor{Name: "vkCreateWaylandSurfaceKHR", Extension: "VK_KHR_wayland_surface"}
	if d.visible(NewExtensionSet(nil), apiVersion1_2) {
		t.Errorf("extension-gated entrypoint visible with no extensions enabled")
	}
	if !d.visible(NewExtensionSet([]string{"VK_KHR_wayland_surface"}), apiVersion1_0) {
		t.Errorf("extension-gated entrypoint should become visible once its extension is enabled")
	}
}

func TestLookupEntrypointFound(t *testing.T) {
	d, ok := lookupEntrypoint(instanceEntrypoints, "vkCreateInstance")
	if !ok || d.Name != "vkCreateInstance" {
		t.Fatalf("lookupEntrypoint(vkCreateInstance) = (%v, %v)", d, ok)
	}
}

func TestLookupEntrypointNotFound(t *testing.T) {
	if _, ok := lookupEntrypoint(instanceEntrypoints, "vkNotARealFunction"); ok {
		t.Fatalf("lookupEntrypoint found a nonexistent entrypoint")
	}
}

func TestTransitivelyRequiredDeviceExtensions(t *testing.T) {
	got := transitivelyRequiredDeviceExtensions([]string{"VK_KHR_wayland_surface"})
	if len(got) != 1 || got[0] != "VK_KHR_swapchain" {
		t.Fatalf("transitivelyRequiredDeviceExtensions() = %v, want [VK_KHR_swapchain]", got)
	}
}

func TestTransitivelyRequiredDeviceExtensionsNoWsiExtension(t *testing.T) {
	got := transitivelyRequiredDeviceExtensions([]string{"VK_KHR_maintenance1"})
	if len(got) != 0 {
		t.Fatalf("transitivelyRequiredDeviceExtensions() = %v, want empty", got)
	}
}
