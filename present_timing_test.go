package wsi

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func fakeSwapchainWithExtensions(names []string) *Swapchain {
	return &Swapchain{
		Device: &DeviceSideData{Extensions: NewExtensionSet(names)},
		timing: newPresentTimingTracker(),
	}
}

func TestPresentTimingTrackerRecordAssignsIncreasingIDs(t *testing.T) {
	tr := newPresentTimingTracker()
	first := tr.record()
	second := tr.record()
	if second != first+1 {
		t.Fatalf("record() ids = %d, %d, want consecutive", first, second)
	}
	if len(tr.history) != 2 {
		t.Fatalf("history length = %d, want 2", len(tr.history))
	}
}

func TestPresentTimingTrackerTrimsHistory(t *testing.T) {
	tr := newPresentTimingTracker()
	for i := 0; i < 20; i++ {
		tr.record()
	}
	if len(tr.history) != 16 {
		t.Fatalf("history length = %d, want trimmed to 16", len(tr.history))
	}
	if tr.history[0].presentID != 5 {
		t.Fatalf("oldest surviving presentID = %d, want 5", tr.history[0].presentID)
	}
}

func TestGetPastPresentationTimingEXTRequiresExtension(t *testing.T) {
	sc := fakeSwapchainWithExtensions(nil)
	var count uint32
	if got := sc.GetPastPresentationTimingEXT(&count, nil); got != vk.ErrorExtensionNotPresent {
		t.Fatalf("GetPastPresentationTimingEXT() = %v, want ErrorExtensionNotPresent", got)
	}
}

func TestGetPastPresentationTimingEXTCountQuery(t *testing.T) {
	sc := fakeSwapchainWithExtensions([]string{"VK_GOOGLE_display_timing"})
	sc.timing.record()
	sc.timing.record()

	var count uint32
	if got := sc.GetPastPresentationTimingEXT(&count, nil); got != vk.Success {
		t.Fatalf("GetPastPresentationTimingEXT(count query) = %v, want Success", got)
	}
	if count != 2 {
		t.Fatalf("count query = %d, want 2", count)
	}
}

func TestGetPastPresentationTimingEXTTruncates(t *testing.T) {
	sc := fakeSwapchainWithExtensions([]string{"VK_EXT_present_timing"})
	sc.timing.record()
	sc.timing.record()
	sc.timing.record()

	count := uint32(1)
	timings := make([]vk.PastPresentationTimingGOOGLE, 1)
	got := sc.GetPastPresentationTimingEXT(&count, timings)
	if got != vk.Incomplete {
		t.Fatalf("GetPastPresentationTimingEXT(truncated) = %v, want Incomplete", got)
	}
	if count != 1 {
		t.Fatalf("truncated count = %d, want 1", count)
	}
	if timings[0].PresentID != 1 {
		t.Fatalf("timings[0].PresentID = %d, want 1", timings[0].PresentID)
	}
}

func TestGetPastPresentationTimingEXTFull(t *testing.T) {
	sc := fakeSwapchainWithExtensions([]string{"VK_GOOGLE_display_timing"})
	sc.timing.record()
	sc.timing.record()

	count := uint32(5)
	timings := make([]vk.PastPresentationTimingGOOGLE, 5)
	got := sc.GetPastPresentationTimingEXT(&count, timings)
	if got != vk.Success {
		t.Fatalf("GetPastPresentationTimingEXT(full) = %v, want Success", got)
	}
	if count != 2 {
		t.Fatalf("full count = %d, want 2", count)
	}
}
