package wsi

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsialloc"
)

func TestFourccForVkFormatLinear(t *testing.T) {
	got := fourccForVkFormat(vk.FormatB8g8r8a8Unorm)
	want := map[uint32]bool{wsialloc.FourccARGB8888: true, wsialloc.FourccXRGB8888: true}
	if len(got) != len(want) {
		t.Fatalf("fourccForVkFormat(B8g8r8a8Unorm) = %v, want 2 candidates", got)
	}
	for _, f := range got {
		if !want[f] {
			t.Errorf("fourccForVkFormat(B8g8r8a8Unorm) contained unexpected fourcc %#x", f)
		}
	}
}

func TestFourccForVkFormatSrgb(t *testing.T) {
	got := fourccForVkFormat(vk.FormatB8g8r8a8Srgb)
	if len(got) != 1 || got[0] != wsialloc.FourccARGB8888 {
		t.Fatalf("fourccForVkFormat(B8g8r8a8Srgb) = %v, want [ARGB8888]", got)
	}
}

func TestFourccForVkFormatUnknown(t *testing.T) {
	if got := fourccForVkFormat(vk.Format(999999)); len(got) != 0 {
		t.Fatalf("fourccForVkFormat(unknown) = %v, want empty", got)
	}
}

func TestVkFormatForFourccRoundTrip(t *testing.T) {
	format, ok := vkFormatForFourcc(wsialloc.FourccABGR8888)
	if !ok || format != vk.FormatR8g8b8a8Unorm {
		t.Fatalf("vkFormatForFourcc(ABGR8888) = (%v, %v), want (R8g8b8a8Unorm, true)", format, ok)
	}
}

func TestVkFormatForFourccUnknown(t *testing.T) {
	if _, ok := vkFormatForFourcc(0xdeadbeef); ok {
		t.Fatalf("vkFormatForFourcc(unknown) = ok, want not found")
	}
}
