package wsi

import (
	"sync"
	"time"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsierr"
)

// presentTimingRecord is one entry of a swapchain's presentation history,
// grounded on original_source/layer/present_timing.cpp's pass-through of
// VK_EXT/VK_GOOGLE present timing onto a per-present monotonic timestamp
// this layer can answer for itself since none of the backends here surface
// real compositor timing feedback.
type presentTimingRecord struct {
	presentID      uint64
	actualPresentTime uint64
}

// presentTimingTracker is embedded in Swapchain's backend-independent
// state, recording one entry per QueuePresentKHR call that named this
// swapchain and answering GetPastPresentationTimingEXT-style queries.
type presentTimingTracker struct {
	mu      sync.Mutex
	history []presentTimingRecord
	nextID  uint64
}

func newPresentTimingTracker() *presentTimingTracker {
	return &presentTimingTracker{}
}

// record appends one timing entry and trims the history to the most
// recent 16 presents, enough for a typical swap-interval query without
// growing unbounded.
func (t *presentTimingTracker) record() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.history = append(t.history, presentTimingRecord{
		presentID:         t.nextID,
		actualPresentTime: uint64(time.Now().UnixNano()),
	})
	const maxHistory = 16
	if len(t.history) > maxHistory {
		t.history = t.history[len(t.history)-maxHistory:]
	}
	return t.nextID
}

// GetPastPresentationTimingEXT implements the query half of
// VK_EXT_present_timing/VK_GOOGLE_display_timing: with pTimings nil it
// reports the available count, otherwise copies up to *pCount entries.
func (sc *Swapchain) GetPastPresentationTimingEXT(pCount *uint32, pTimings []vk.PastPresentationTimingGOOGLE) vk.Result {
	if !sc.Device.Extensions.Has("VK_GOOGLE_display_timing") && !sc.Device.Extensions.Has("VK_EXT_present_timing") {
		return resultOf(wsierr.New(wsierr.KindExtensionNotPresent, vk.ErrorExtensionNotPresent))
	}

	sc.timing.mu.Lock()
	defer sc.timing.mu.Unlock()

	if pTimings == nil {
		*pCount = uint32(len(sc.timing.history))
		return vk.Success
	}
	n := uint32(len(sc.timing.history))
	truncated := false
	if *pCount < n {
		n = *pCount
		truncated = true
	}
	for i := uint32(0); i < n; i++ {
		rec := sc.timing.history[i]
		pTimings[i] = vk.PastPresentationTimingGOOGLE{
			PresentID:        uint32(rec.presentID),
			ActualPresentTime: rec.actualPresentTime,
		}
	}
	*pCount = n
	if truncated {
		return vk.Incomplete
	}
	return vk.Success
}
