package wsi

import (
	"sort"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestExtensionSetHas(t *testing.T) {
	s := NewExtensionSet([]string{"VK_KHR_surface", "VK_KHR_swapchain"})
	if !s.Has("VK_KHR_surface") {
		t.Errorf("Has(VK_KHR_surface) = false, want true")
	}
	if s.Has("VK_KHR_wayland_surface") {
		t.Errorf("Has(VK_KHR_wayland_surface) = true, want false")
	}
}

func TestExtensionSetNilReceiver(t *testing.T) {
	var s *ExtensionSet
	if s.Has("anything") {
		t.Errorf("nil ExtensionSet.Has() = true, want false")
	}
}

func TestExtensionSetAdd(t *testing.T) {
	s := NewExtensionSet(nil)
	s.Add("VK_KHR_swapchain")
	if !s.Has("VK_KHR_swapchain") {
		t.Errorf("Has() after Add() = false, want true")
	}
}

func TestExtensionSetNames(t *testing.T) {
	want := []string{"VK_KHR_surface", "VK_KHR_swapchain"}
	s := NewExtensionSet(want)
	got := s.Names()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}
}

func TestFindRequiredMemoryType(t *testing.T) {
	props := vk.PhysicalDeviceMemoryProperties{
		MemoryTypeCount: 2,
		MemoryTypes: [32]vk.MemoryType{
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)},
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)},
		},
	}

	idx, ok := FindRequiredMemoryType(props, 0b11, vk.MemoryPropertyDeviceLocalBit)
	if !ok || idx != 1 {
		t.Fatalf("FindRequiredMemoryType() = (%d, %v), want (1, true)", idx, ok)
	}

	idx, ok = FindRequiredMemoryType(props, 0b01, vk.MemoryPropertyDeviceLocalBit)
	if ok {
		t.Fatalf("FindRequiredMemoryType() = (%d, %v), want ok=false (bit excluded by mask)", idx, ok)
	}

	_, ok = FindRequiredMemoryType(props, 0b11, vk.MemoryPropertyLazilyAllocatedBit)
	if ok {
		t.Fatalf("FindRequiredMemoryType() found a type with no matching flags")
	}
}

func TestPlatformString(t *testing.T) {
	cases := map[Platform]string{
		PlatformNone:     "none",
		PlatformHeadless: "headless",
		PlatformWayland:  "wayland",
		PlatformX11:      "x11",
		PlatformDRM:      "drm",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("Platform(%d).String() = %q, want %q", p, got, want)
		}
	}
}

func TestWsiPlatformExtensionsMapping(t *testing.T) {
	cases := map[string]Platform{
		"VK_EXT_headless_surface": PlatformHeadless,
		"VK_KHR_wayland_surface":  PlatformWayland,
		"VK_KHR_xcb_surface":      PlatformX11,
		"VK_KHR_xlib_surface":     PlatformX11,
		"VK_KHR_display":          PlatformDRM,
	}
	for name, want := range cases {
		if got := wsiPlatformExtensions[name]; got != want {
			t.Errorf("wsiPlatformExtensions[%q] = %v, want %v", name, got, want)
		}
	}
}
