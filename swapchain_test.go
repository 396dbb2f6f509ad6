package wsi

import (
	"testing"
	"time"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsierr"
)

// fakeBackend is a swapchainBackend that never touches real Vulkan state,
// for exercising the scheduling core in swapchain.go/swapchain_worker.go
// without a device.
type fakeBackend struct {
	presentErr error
}

func (b *fakeBackend) initPlatform(sc *Swapchain) (bool, error) { return false, nil }

func (b *fakeBackend) createAndBindImage(sc *Swapchain, info vk.ImageCreateInfo) (*SwapchainImage, error) {
	return &SwapchainImage{PresentFence: &syncFdFenceSync{}}, nil
}

func (b *fakeBackend) presentImage(sc *Swapchain, index int) error {
	sc.unpresentImage(index)
	return b.presentErr
}

func (b *fakeBackend) imageWaitPresent(sc *Swapchain, index int, timeoutNanos uint64) error {
	return nil
}

func (b *fakeBackend) destroyImage(sc *Swapchain, img *SwapchainImage) {}

func (b *fakeBackend) getFreeBuffer(sc *Swapchain, timeoutInOut *uint64) (bool, error) {
	return false, nil
}

// newFakeSwapchain builds a Swapchain with n images, all FREE, backed by a
// fakeBackend, wired the same way newSwapchain wires the channels.
func newFakeSwapchain(n int) *Swapchain {
	sc := &Swapchain{
		Handle:         vk.SwapchainKHR(1),
		Device:         &DeviceSideData{Extensions: NewExtensionSet(nil)},
		backend:        &fakeBackend{},
		freeImageSem:   make(chan struct{}, n),
		pendingPool:    make(chan int, n),
		startPresentCh: make(chan struct{}),
		workerStop:     make(chan struct{}),
		workerDone:     make(chan struct{}),
		timing:         newPresentTimingTracker(),
	}
	for i := 0; i < n; i++ {
		sc.Images = append(sc.Images, &SwapchainImage{Status: ImageFree, PresentFence: &syncFdFenceSync{}})
		sc.freeImageSem <- struct{}{}
	}
	return sc
}

func TestPostFreeSetsStatusAndSignals(t *testing.T) {
	sc := newFakeSwapchain(1)
	sc.Images[0].Status = ImagePending
	<-sc.freeImageSem // drain the slot postFree below will refill

	sc.postFree(0)

	if sc.Images[0].Status != ImageFree {
		t.Fatalf("Images[0].Status = %v, want ImageFree", sc.Images[0].Status)
	}
	select {
	case <-sc.freeImageSem:
	default:
		t.Fatalf("postFree did not signal freeImageSem")
	}
}

func TestWaitFreeImageZeroTimeoutSucceedsWhenAvailable(t *testing.T) {
	sc := newFakeSwapchain(1)
	idx, err := sc.waitFreeImage(0)
	if err != nil || idx != 0 {
		t.Fatalf("waitFreeImage(0) = (%d, %v), want (0, nil)", idx, err)
	}
}

func TestWaitFreeImageZeroTimeoutNotReady(t *testing.T) {
	sc := newFakeSwapchain(1)
	<-sc.freeImageSem // drain the only token
	_, err := sc.waitFreeImage(0)
	if err == nil {
		t.Fatalf("waitFreeImage(0) with nothing free = nil error, want NOT_READY")
	}
}

func TestWaitFreeImageTimesOut(t *testing.T) {
	sc := newFakeSwapchain(1)
	<-sc.freeImageSem
	_, err := sc.waitFreeImage(uint64(1))
	if err == nil {
		t.Fatalf("waitFreeImage(1ns) with nothing free = nil error, want TIMEOUT")
	}
}

func TestWaitForFreeCountReturnsImmediatelyWhenSatisfied(t *testing.T) {
	sc := newFakeSwapchain(2)
	done := make(chan struct{})
	go func() {
		sc.waitForFreeCount(2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("waitForFreeCount(2) did not return although both images are FREE")
	}
}

func TestNotifyPresentWithoutWorkerPresentsInline(t *testing.T) {
	sc := newFakeSwapchain(1)
	sc.Images[0].Status = ImageAcquired
	<-sc.freeImageSem // acquire consumed the token

	ret := sc.notifyPresent(0)
	if ret != vk.Success {
		t.Fatalf("notifyPresent() = %v, want Success", ret)
	}
	if sc.Images[0].Status != ImageFree {
		t.Fatalf("Images[0].Status after inline present = %v, want ImageFree (fakeBackend.presentImage calls unpresentImage)", sc.Images[0].Status)
	}
}

func TestNotifyPresentPreemptedByDescendant(t *testing.T) {
	sc := newFakeSwapchain(1)
	sc.Images[0].Status = ImageAcquired
	<-sc.freeImageSem

	descendant := newFakeSwapchain(1)
	descendant.startedPresenting = true
	sc.descendant = descendant

	ret := sc.notifyPresent(0)
	if ret != vk.ErrorOutOfDate {
		t.Fatalf("notifyPresent() with a presenting descendant = %v, want ErrorOutOfDate", ret)
	}
	if sc.Images[0].Status != ImageFree {
		t.Fatalf("Images[0].Status = %v, want ImageFree", sc.Images[0].Status)
	}
}

func TestAcquireNextImageKHRFastPathNoRealVkCalls(t *testing.T) {
	sc := newFakeSwapchain(1)
	sc.Device.Extensions = NewExtensionSet([]string{
		"VK_KHR_external_semaphore_fd",
		"VK_KHR_external_fence_fd",
	})

	var index uint32
	ret := sc.AcquireNextImageKHR(0, vk.Semaphore(vk.NullHandle), vk.Fence(vk.NullHandle), &index)
	if ret != vk.Success {
		t.Fatalf("AcquireNextImageKHR() = %v, want Success", ret)
	}
	if sc.Images[index].Status != ImageAcquired {
		t.Fatalf("Images[%d].Status = %v, want ImageAcquired", index, sc.Images[index].Status)
	}
}

func TestPresentOnScreenFirstPresentHasNoPriorToFree(t *testing.T) {
	sc := newFakeSwapchain(2)
	sc.Images[0].Status = ImageAcquired
	<-sc.freeImageSem

	sc.presentOnScreen(0)

	if sc.Images[0].Status != ImagePresented {
		t.Fatalf("Images[0].Status = %v, want ImagePresented", sc.Images[0].Status)
	}
	select {
	case <-sc.freeImageSem:
		t.Fatalf("presentOnScreen posted free_image_sem with no prior PRESENTED image")
	default:
	}
}

func TestPresentOnScreenFreesThePreviouslyPresentedImage(t *testing.T) {
	sc := newFakeSwapchain(2)
	sc.Images[0].Status = ImagePresented
	sc.Images[1].Status = ImageAcquired
	<-sc.freeImageSem

	sc.presentOnScreen(1)

	if sc.Images[1].Status != ImagePresented {
		t.Fatalf("Images[1].Status = %v, want ImagePresented", sc.Images[1].Status)
	}
	if sc.Images[0].Status != ImageFree {
		t.Fatalf("Images[0].Status = %v, want ImageFree (was the previously PRESENTED image)", sc.Images[0].Status)
	}
	select {
	case <-sc.freeImageSem:
	default:
		t.Fatalf("presentOnScreen did not signal freeImageSem for the freed image")
	}
}

func TestAcquireNextImageKHRPropagatesCurrentError(t *testing.T) {
	sc := newFakeSwapchain(1)
	sc.setError(wsierr.New(wsierr.KindSurfaceLost, vk.ErrorSurfaceLostKhr))

	var index uint32
	ret := sc.AcquireNextImageKHR(0, vk.Semaphore(vk.NullHandle), vk.Fence(vk.NullHandle), &index)
	if ret == vk.Success {
		t.Fatalf("AcquireNextImageKHR() with a sticky error = Success, want an error result")
	}
}
