package wsi

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func fakeSwapchainWithImages(statuses ...ImageStatus) *Swapchain {
	sc := &Swapchain{freeImageSem: make(chan struct{}, len(statuses))}
	for _, s := range statuses {
		sc.Images = append(sc.Images, &SwapchainImage{Status: s})
	}
	return sc
}

func TestReleaseImagesFreesAcquired(t *testing.T) {
	sc := fakeSwapchainWithImages(ImageAcquired, ImagePending)
	sc.releaseImages([]uint32{0, 1})

	if sc.Images[0].Status != ImageFree {
		t.Errorf("Images[0].Status = %v, want ImageFree", sc.Images[0].Status)
	}
	if sc.Images[1].Status != ImagePending {
		t.Errorf("Images[1].Status = %v, want ImagePending unchanged", sc.Images[1].Status)
	}
	select {
	case <-sc.freeImageSem:
	default:
		t.Errorf("freeImageSem was not signalled for the newly-freed image")
	}
}

func TestReleaseSwapchainImagesEXTEmptyIsNoop(t *testing.T) {
	sc := fakeSwapchainWithImages(ImageAcquired)
	if got := ReleaseSwapchainImagesEXT(sc, nil); got != vk.Success {
		t.Fatalf("ReleaseSwapchainImagesEXT(nil) = %v, want Success", got)
	}
	if sc.Images[0].Status != ImageAcquired {
		t.Errorf("ReleaseSwapchainImagesEXT(nil) mutated image status")
	}
}

func TestReleaseSwapchainImagesEXTForwardsIndices(t *testing.T) {
	sc := fakeSwapchainWithImages(ImageAcquired)
	if got := ReleaseSwapchainImagesEXT(sc, []uint32{0}); got != vk.Success {
		t.Fatalf("ReleaseSwapchainImagesEXT() = %v, want Success", got)
	}
	if sc.Images[0].Status != ImageFree {
		t.Errorf("Images[0].Status = %v, want ImageFree", sc.Images[0].Status)
	}
}

func TestApplyPresentFenceInfo(t *testing.T) {
	sc := &Swapchain{}
	sc.applyPresentFenceInfo(vk.Fence(7))
	if sc.presentFence.externalFence != vk.Fence(7) {
		t.Fatalf("presentFence.externalFence = %v, want 7", sc.presentFence.externalFence)
	}
}

func TestApplyPresentScalingOverride(t *testing.T) {
	sc := &Swapchain{}
	sc.applyPresentScalingOverride(vk.PresentScalingFlagsEXT(3))
	if sc.scalingBehavior != vk.PresentScalingFlagsEXT(3) {
		t.Fatalf("scalingBehavior = %v, want 3", sc.scalingBehavior)
	}
}
