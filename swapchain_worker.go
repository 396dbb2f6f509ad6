package wsi

import (
	"time"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsierr"
	"github.com/vklayer/wsi/internal/wsilog"
)

// workerLoop is the presentation worker described in spec.md §4.4. One
// goroutine per swapchain replaces the source's dedicated OS thread;
// pendingPool (a buffered chan int) already provides both the bounded
// FIFO and the counting wait the spec assigns separately to
// pending_pool and page_flip_sem.
func (sc *Swapchain) workerLoop() {
	defer close(sc.workerDone)
	for {
		select {
		case <-sc.workerStop:
			return
		case index := <-sc.pendingPool:
			sc.processPending(index)
		case <-time.After(workerPollInterval):
			// Purely so workerStop is observed promptly even with no
			// pending work; select already reacts to it immediately, so
			// this case exists for behavioural parity with the source's
			// 250ms page_flip_sem poll rather than out of necessity.
		}
	}
}

func (sc *Swapchain) processPending(index int) {
	if err := sc.waitPresentFence(index); err != nil {
		sc.setError(wsierr.Wrap(wsierr.KindInitializationFailed, err))
		sc.postFree(index)
		return
	}
	sc.callPresent(index)
}

// waitPresentFence retries on timeout, logging each retry, as spec.md
// §4.4's worker loop specifies.
func (sc *Swapchain) waitPresentFence(index int) error {
	img := sc.Images[index]
	for {
		err := img.PresentFence.waitPayload(uint64(time.Second.Nanoseconds()))
		if err == nil {
			return nil
		}
		if ve, ok := err.(*wsierr.VkError); ok && ve.Kind == wsierr.KindTimeout {
			wsilog.Warnf("swapchain %v: present-fence wait on image %d timed out, retrying", sc.Handle, index)
			continue
		}
		return err
	}
}

// callPresent implements spec.md §4.4's call_present: the first present
// blocks on the ancestor draining, then posts start_present_sem before
// calling the backend; subsequent presents call the backend directly.
func (sc *Swapchain) callPresent(index int) {
	sc.mu.Lock()
	first := sc.firstPresent
	sc.mu.Unlock()

	if first {
		if sc.ancestor != nil {
			sc.ancestor.waitForPendingBuffers()
		}
		sc.startPresentOnce.Do(func() { close(sc.startPresentCh) })
	}

	if err := sc.backend.presentImage(sc, index); err != nil {
		sc.setError(wsierr.Wrap(wsierr.KindSurfaceLost, err))
	}

	if first {
		sc.mu.Lock()
		sc.firstPresent = false
		sc.mu.Unlock()
	}
}

// waitForPendingBuffers spin-waits until all but one image (the one the
// compositor currently holds on screen) are FREE, used by a descendant's
// first call_present to wait out its ancestor's drain.
func (sc *Swapchain) waitForPendingBuffers() {
	sc.waitForFreeCount(len(sc.Images) - 1)
}

func (sc *Swapchain) waitForFreeCount(target int) {
	if target <= 0 {
		return
	}
	for {
		sc.mu.Lock()
		free := 0
		for _, img := range sc.Images {
			if img.Status == ImageFree || img.Status == ImageInvalid {
				free++
			}
		}
		sc.mu.Unlock()
		if free >= target {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// AcquireNextImageKHR implements spec.md §4.4's acquire contract.
func (sc *Swapchain) AcquireNextImageKHR(timeoutNanos uint64, semaphore vk.Semaphore, fence vk.Fence, pImageIndex *uint32) vk.Result {
	sc.acquireMu.Lock()
	defer sc.acquireMu.Unlock()

	if err := sc.currentError(); err != nil {
		return resultOf(err)
	}

	// Give the backend a chance to make an image FREE out-of-band (e.g.
	// dispatching a compositor's buffer-release queue) before falling
	// back to a timed wait on freeImageSem.
	timeout := timeoutNanos
	if _, err := sc.backend.getFreeBuffer(sc, &timeout); err != nil {
		return resultOf(err)
	}

	index, err := sc.waitFreeImage(timeout)
	if err != nil {
		return resultOf(err)
	}

	sc.mu.Lock()
	sc.Images[index].Status = ImageAcquired
	sc.mu.Unlock()
	*pImageIndex = uint32(index)

	if err := sc.signalAcquire(semaphore, fence); err != nil {
		return resultOf(err)
	}
	return vk.Success
}

// AcquireNextImage2KHR delegates to AcquireNextImageKHR; deviceMask
// (multi-GPU present) is out of scope (spec.md §1 Non-goals).
func (sc *Swapchain) AcquireNextImage2KHR(pInfo *vk.AcquireNextImageInfoKHR, pImageIndex *uint32) vk.Result {
	pInfo.Deref()
	return sc.AcquireNextImageKHR(pInfo.Timeout, pInfo.Semaphore, pInfo.Fence, pImageIndex)
}

// waitFreeImage waits on freeImageSem for up to timeoutNanos, then scans
// for the first FREE image. Zero timeout with nothing free returns
// NOT_READY; a positive timeout that elapses returns TIMEOUT.
func (sc *Swapchain) waitFreeImage(timeoutNanos uint64) (int, error) {
	if timeoutNanos == 0 {
		select {
		case <-sc.freeImageSem:
		default:
			return 0, wsierr.New(wsierr.KindNotReady, vk.NotReady)
		}
	} else if timeoutNanos == ^uint64(0) {
		<-sc.freeImageSem
	} else {
		select {
		case <-sc.freeImageSem:
		case <-time.After(time.Duration(timeoutNanos)):
			return 0, wsierr.New(wsierr.KindTimeout, vk.Timeout)
		}
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	for i, img := range sc.Images {
		if img.Status == ImageFree {
			return i, nil
		}
	}
	// A token was posted but no image is FREE: another acquire raced
	// ahead under acquireMu, which should be impossible since acquires
	// are totally ordered by it. Treat as NOT_READY defensively.
	return 0, wsierr.New(wsierr.KindNotReady, vk.NotReady)
}

// signalAcquire implements spec.md §4.4 step 3: fast path imports the
// sentinel fd -1 into the caller's fence/semaphore when the device
// supports sync-fd import for both; otherwise falls back to an empty
// queue submission signalling them.
func (sc *Swapchain) signalAcquire(semaphore vk.Semaphore, fence vk.Fence) error {
	ext := sc.Device.Extensions
	fastPath := ext.Has("VK_KHR_external_semaphore_fd") && ext.Has("VK_KHR_external_fence_fd")

	if fastPath {
		if semaphore != vk.Semaphore(vk.NullHandle) {
			info := vk.ImportSemaphoreFdInfoKHR{
				SType:      vk.StructureTypeImportSemaphoreFdInfoKhr,
				Semaphore:  semaphore,
				Flags:      vk.SemaphoreImportFlags(vk.SemaphoreImportTemporaryBit),
				HandleType: vk.ExternalSemaphoreHandleTypeSyncFdBit,
				Fd:         -1,
			}
			if ret := vk.ImportSemaphoreFdKHR(sc.internalDevice(), &info); wsierr.IsError(ret) {
				return wrapResult(ret)
			}
		}
		if fence != vk.Fence(vk.NullHandle) {
			info := vk.ImportFenceFdInfoKHR{
				SType:      vk.StructureTypeImportFenceFdInfoKhr,
				Fence:      fence,
				Flags:      vk.FenceImportFlags(vk.FenceImportTemporaryBit),
				HandleType: vk.ExternalFenceHandleTypeSyncFdBit,
				Fd:         -1,
			}
			if ret := vk.ImportFenceFdKHR(sc.internalDevice(), &info); wsierr.IsError(ret) {
				return wrapResult(ret)
			}
		}
		return nil
	}

	var semaphores []vk.Semaphore
	if semaphore != vk.Semaphore(vk.NullHandle) {
		semaphores = append(semaphores, semaphore)
	}
	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		SignalSemaphoreCount: uint32(len(semaphores)),
		PSignalSemaphores:    semaphores,
	}
	ret := vk.QueueSubmit(sc.internalQueue, 1, []vk.SubmitInfo{submit}, fence)
	return wrapResult(ret)
}

func (sc *Swapchain) internalDevice() vk.Device { return sc.Device.Device }

// QueuePresentKHR implements spec.md §4.4's present contract across
// every (swapchain, imageIndex) pair in one present call.
func QueuePresentKHR(queue vk.Queue, swapchains []vk.SwapchainKHR, imageIndices []uint32, waitSemaphores []vk.Semaphore, pResults []vk.Result) vk.Result {
	dsd := deviceForQueue(queue)
	final := vk.Success

	for i, handle := range swapchains {
		sc := dsd.swapchain(handle)
		index := int(imageIndices[i])

		chained := waitSemaphores
		if len(swapchains) > 1 && len(waitSemaphores) > 0 {
			presentSem := sc.Images[index].PresentSemaphore
			submit := vk.SubmitInfo{
				SType:                vk.StructureTypeSubmitInfo,
				WaitSemaphoreCount:   uint32(len(waitSemaphores)),
				PWaitSemaphores:      waitSemaphores,
				SignalSemaphoreCount: 1,
				PSignalSemaphores:    []vk.Semaphore{presentSem},
			}
			if ret := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submit}, vk.Fence(vk.NullHandle)); wsierr.IsError(ret) {
				setResult(pResults, i, ret)
				final = ret
				continue
			}
			chained = []vk.Semaphore{presentSem}
		}

		if err := sc.Images[index].PresentFence.setPayload(queue, chained); err != nil {
			ret := resultOf(err)
			setResult(pResults, i, ret)
			final = ret
			continue
		}

		if err := sc.signalPresentFence(queue, chained); err != nil {
			ret := resultOf(err)
			setResult(pResults, i, ret)
			final = ret
			continue
		}

		ret := sc.notifyPresent(index)
		setResult(pResults, i, ret)
		if ret != vk.Success {
			final = ret
		}
	}
	return final
}

func setResult(pResults []vk.Result, i int, ret vk.Result) {
	if pResults != nil {
		pResults[i] = ret
	}
}

// notifyPresent implements spec.md §4.4 step 3-4: mark PENDING and hand
// to the worker (or present inline without one), unless the descendant
// has already started presenting, in which case this image is returned
// to FREE and OUT_OF_DATE is reported instead.
func (sc *Swapchain) notifyPresent(index int) vk.Result {
	sc.mu.Lock()
	if sc.descendant != nil && sc.descendant.hasStartedPresenting() {
		sc.Images[index].Status = ImageFree
		sc.mu.Unlock()
		select {
		case sc.freeImageSem <- struct{}{}:
		default:
		}
		return vk.ErrorOutOfDate
	}
	sc.Images[index].Status = ImagePending
	sc.startedPresenting = true
	hasWorker := sc.hasWorker
	sc.mu.Unlock()

	sc.timing.record()

	if hasWorker {
		sc.pendingPool <- index
	} else {
		sc.processPending(index)
	}
	return vk.Success
}
