package wsi

import "testing"

func TestNewFrameBoundaryHandlerDisabledWithoutExtension(t *testing.T) {
	dsd := &DeviceSideData{Extensions: NewExtensionSet(nil)}
	h := newFrameBoundaryHandler(dsd)
	if h.enabled {
		t.Fatalf("handler enabled without VK_EXT_frame_boundary")
	}
	if _, ok := h.handleFrameBoundaryEvent(1); ok {
		t.Fatalf("handleFrameBoundaryEvent() reported an event while disabled")
	}
}

func TestHandleFrameBoundaryEventIncrementsID(t *testing.T) {
	dsd := &DeviceSideData{Extensions: NewExtensionSet([]string{"VK_EXT_frame_boundary"})}
	h := newFrameBoundaryHandler(dsd)

	first, ok := h.handleFrameBoundaryEvent(1)
	if !ok {
		t.Fatalf("handleFrameBoundaryEvent() = false, want true once enabled")
	}
	if first.FrameID != 1 {
		t.Fatalf("first FrameID = %d, want 1", first.FrameID)
	}

	second, ok := h.handleFrameBoundaryEvent(2)
	if !ok || second.FrameID != 2 {
		t.Fatalf("second event = (%v, %v), want FrameID 2", second, ok)
	}
	if second.ImageCount != 1 {
		t.Fatalf("ImageCount = %d, want 1", second.ImageCount)
	}
}
