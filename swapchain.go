package wsi

import (
	"sync"
	"sync/atomic"
	"time"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsierr"
	"github.com/vklayer/wsi/internal/wsilog"
)

// swapchainBackend is the variant contract spec.md §9 describes: every
// presentation backend (headless, Wayland, DRM, X11) implements it, and
// the scheduling core in this file is non-virtual and composes one.
type swapchainBackend interface {
	// initPlatform prepares backend-specific state and reports whether a
	// presentation worker goroutine should run for the chosen present
	// mode (shared-demand-refresh and Wayland mailbox opt out).
	initPlatform(sc *Swapchain) (usesWorker bool, err error)
	// createAndBindImage allocates storage for one image and binds it.
	createAndBindImage(sc *Swapchain, info vk.ImageCreateInfo) (*SwapchainImage, error)
	// presentImage may block; see the contract in spec.md §4.4. It must
	// ensure the image ends up FREE (via sc.unpresentImage) or, for
	// backends that track an on-screen image, PRESENTED.
	presentImage(sc *Swapchain, index int) error
	// imageWaitPresent waits for any backend-specific signal that a
	// previous present of this image has been consumed by the display
	// system; a no-op for backends using explicit sync end-to-end.
	imageWaitPresent(sc *Swapchain, index int, timeoutNanos uint64) error
	// destroyImage releases backend-specific payload for one image.
	destroyImage(sc *Swapchain, img *SwapchainImage)
	// getFreeBuffer gives the backend a chance to make an image FREE
	// out-of-band (e.g. dispatching a compositor's buffer-release
	// events) before the base falls back to waiting on freeImageSem.
	// May reduce *timeoutInOut to zero on success.
	getFreeBuffer(sc *Swapchain, timeoutInOut *uint64) (bool, error)
}

// Swapchain is the engine described in spec.md §3/§4.4: a fixed-capacity
// image vector, a worker goroutine, and ancestor/descendant links for
// oldSwapchain retirement. Generalises the teacher's CoreSwapchain
// (swapchain.go), which only ever owned a ring of render-target image
// views, into the full producer/consumer state machine the spec
// requires.
type Swapchain struct {
	Handle      vk.SwapchainKHR
	Device      *DeviceSideData
	Surface     *LayerSurface
	CreateInfo  vk.SwapchainCreateInfoKHR
	PresentMode vk.PresentModeKHR
	backend     swapchainBackend

	// mu guards Images' statuses and startedPresenting. The source uses
	// a recursive lock because backends re-enter helpers while holding
	// it; this layer instead follows the design note's preferred fix
	// (spec.md §9 "Recursive mutex") and restructures backends to never
	// call back into base helpers while holding mu, so one ordinary
	// sync.Mutex suffices.
	mu                sync.Mutex
	Images            []*SwapchainImage
	startedPresenting bool
	firstPresent      bool

	acquireMu sync.Mutex

	// freeImageSem and pendingPool are the spec's two counted
	// semaphores. A buffered channel already is a counting semaphore
	// (capacity-bounded send, blocking receive), so no extra bookkeeping
	// is needed; pendingPool additionally carries the FIFO payload the
	// spec's page_flip_sem only counted.
	freeImageSem chan struct{}
	pendingPool  chan int

	errorState atomic.Pointer[wsierr.VkError]

	ancestor   *Swapchain
	descendant *Swapchain

	startPresentOnce sync.Once
	startPresentCh   chan struct{}

	workerStop chan struct{}
	workerDone chan struct{}
	hasWorker  bool

	internalQueue vk.Queue

	timing          *presentTimingTracker
	presentFence    presentFenceMode
	scalingBehavior vk.PresentScalingFlagsEXT
}

const workerPollInterval = 250 * time.Millisecond

// newSwapchain allocates the scheduling state common to every backend.
// imageCount is CreateInfo.MinImageCount (the base never creates more).
func newSwapchain(handle vk.SwapchainKHR, dsd *DeviceSideData, surface *LayerSurface, info vk.SwapchainCreateInfoKHR,
	backend swapchainBackend, internalQueue vk.Queue) *Swapchain {

	imageCount := int(info.MinImageCount)
	sc := &Swapchain{
		Handle:         handle,
		Device:         dsd,
		Surface:        surface,
		CreateInfo:     info,
		PresentMode:    info.PresentMode,
		backend:        backend,
		freeImageSem:   make(chan struct{}, imageCount),
		pendingPool:    make(chan int, imageCount),
		startPresentCh: make(chan struct{}),
		workerStop:     make(chan struct{}),
		workerDone:     make(chan struct{}),
		firstPresent:   true,
		internalQueue:  internalQueue,
		timing:         newPresentTimingTracker(),
	}
	return sc
}

func (sc *Swapchain) setError(err *wsierr.VkError) {
	if err == nil {
		return
	}
	sc.errorState.CompareAndSwap(nil, err)
}

func (sc *Swapchain) currentError() error {
	if e := sc.errorState.Load(); e != nil {
		return e
	}
	return nil
}

// postFree posts free_image_sem and sets the image FREE. Every
// PRESENTED->FREE or PENDING->FREE transition must call this exactly
// once (spec.md §8 invariant 4).
func (sc *Swapchain) postFree(index int) {
	sc.mu.Lock()
	sc.Images[index].Status = ImageFree
	sc.mu.Unlock()
	select {
	case sc.freeImageSem <- struct{}{}:
	default:
		wsilog.Errorf("swapchain %v: free_image_sem overflow on image %d", sc.Handle, index)
	}
}

// unpresentImage is the common helper most backends call at the end of
// present_image: it simply returns the image to FREE.
func (sc *Swapchain) unpresentImage(index int) {
	sc.postFree(index)
}

// presentOnScreen is the helper backends that scan an image out directly
// (no compositor to hand it to, so nothing else signals release) call
// instead of unpresentImage: spec.md §4.8/§8 invariant 3 require the
// newly-flipped image to become PRESENTED, and only the image that was
// PRESENTED before it (found by scanning, not tracked separately) to
// become FREE. The very first present on a swapchain finds no prior
// PRESENTED image and just marks index.
func (sc *Swapchain) presentOnScreen(index int) {
	sc.mu.Lock()
	prev := -1
	for i, img := range sc.Images {
		if i != index && img.Status == ImagePresented {
			prev = i
			break
		}
	}
	sc.Images[index].Status = ImagePresented
	sc.mu.Unlock()

	if prev >= 0 {
		sc.postFree(prev)
	}
}

// anyImageFree reports whether any image is currently FREE, used by
// backends that drive their own free-buffer wait loop (e.g. X11's
// Present-extension event dispatch) to know when to stop waiting.
func (sc *Swapchain) anyImageFree() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, img := range sc.Images {
		if img.Status == ImageFree {
			return true
		}
	}
	return false
}

// CreateSwapchainKHR implements spec.md §4.4's create contract: build the
// backend for the surface's platform, allocate MinImageCount images via
// the backend's createAndBindImage, wire oldSwapchain retirement, and
// start the worker goroutine unless the backend opts out.
func CreateSwapchainKHR(dsd *DeviceSideData, ls *LayerSurface, pCreateInfo *vk.SwapchainCreateInfoKHR,
	internalQueue vk.Queue, handle vk.SwapchainKHR) (*Swapchain, error) {

	pCreateInfo.Deref()
	backend, err := newBackendForPlatform(ls.Platform, ls)
	if err != nil {
		return nil, err
	}

	sc := newSwapchain(handle, dsd, ls, *pCreateInfo, backend, internalQueue)

	if pCreateInfo.OldSwapchain != vk.SwapchainKHR(vk.NullHandle) {
		if old := dsd.swapchain(pCreateInfo.OldSwapchain); old != nil {
			sc.ancestor = old
			old.descendant = sc
			old.reapFreeImages()
		}
	}

	usesWorker, err := backend.initPlatform(sc)
	if err != nil {
		return nil, err
	}

	imageCreateInfo := imageCreateInfoFromSwapchain(*pCreateInfo)
	for i := 0; i < int(pCreateInfo.MinImageCount); i++ {
		img, err := backend.createAndBindImage(sc, imageCreateInfo)
		if err != nil {
			for _, created := range sc.Images {
				backend.destroyImage(sc, created)
			}
			return nil, err
		}
		img.Status = ImageFree
		sc.Images = append(sc.Images, img)
		sc.freeImageSem <- struct{}{}
	}

	sc.hasWorker = usesWorker
	if usesWorker {
		go sc.workerLoop()
	} else {
		close(sc.workerDone)
	}

	dsd.addSwapchain(sc)
	return sc, nil
}

// imageCreateInfoFromSwapchain builds the VkImageCreateInfo a
// presentable image is created with, per VkImageSwapchainCreateInfoKHR's
// usual contract (extent/format/usage copied from the swapchain info;
// tiling and the modifier chain are filled by the backend).
func imageCreateInfoFromSwapchain(info vk.SwapchainCreateInfoKHR) vk.ImageCreateInfo {
	return vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    info.ImageFormat,
		Extent: vk.Extent3D{
			Width:  info.ImageExtent.Width,
			Height: info.ImageExtent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   info.ImageArrayLayers,
		Samples:       vk.SampleCount1Bit,
		Usage:         info.ImageUsage,
		SharingMode:   info.ImageSharingMode,
		InitialLayout: vk.ImageLayoutUndefined,
	}
}

// GetSwapchainImagesKHR returns the VkImage handles, in creation order.
func (sc *Swapchain) GetSwapchainImagesKHR(pCount *uint32, pImages []vk.Image) vk.Result {
	if pImages == nil {
		*pCount = uint32(len(sc.Images))
		return vk.Success
	}
	n := uint32(len(sc.Images))
	truncated := false
	if *pCount < n {
		n = *pCount
		truncated = true
	}
	for i := uint32(0); i < n; i++ {
		pImages[i] = sc.Images[i].Image
	}
	*pCount = n
	if truncated {
		return vk.Incomplete
	}
	return vk.Success
}

// DestroySwapchainKHR implements the retirement-aware teardown contract
// from spec.md §4.4: wait for the descendant to have started presenting
// (if any), else drain this swapchain's own pending buffers; wait-idle
// the device queue; stop and join the worker; unlink ancestor/descendant;
// destroy images.
func DestroySwapchainKHR(sc *Swapchain) {
	if sc.descendant != nil && sc.descendant.hasStartedPresenting() {
		<-sc.descendant.startPresentCh
	} else if sc.currentError() == nil {
		// "Drain its own pending buffers" is the same all-but-one wait
		// call_present uses for an ancestor (waitForPendingBuffers): the
		// image a PRESENTED-tracking backend currently has on screen is
		// not expected to become FREE without a descendant to take over.
		sc.waitForPendingBuffers()
	}

	vk.QueueWaitIdle(sc.internalQueue)

	close(sc.workerStop)
	<-sc.workerDone

	if sc.ancestor != nil {
		sc.ancestor.descendant = nil
		sc.ancestor = nil
	}
	if sc.descendant != nil {
		sc.descendant.ancestor = nil
		sc.descendant = nil
	}

	for _, img := range sc.Images {
		if img.PresentFence != nil {
			img.PresentFence.destroy()
		}
		sc.backend.destroyImage(sc, img)
	}

	sc.Device.removeSwapchain(sc.Handle)
}

func (sc *Swapchain) hasStartedPresenting() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.startedPresenting
}

// reapFreeImages eagerly destroys FREE images to release display memory
// as soon as a descendant swapchain exists, per spec.md §4.4's
// retirement rule; ACQUIRED/PENDING images survive until the worker
// transitions them to FREE, at which point they are simply never
// destroyed again (the backend's image slice keeps its length, the
// entries are just no longer presentable — this mirrors the source's
// choice to still require vkDestroySwapchainKHR(old) even though its
// display memory is already released).
func (sc *Swapchain) reapFreeImages() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, img := range sc.Images {
		if img.Status == ImageFree {
			sc.backend.destroyImage(sc, img)
			img.Status = ImageInvalid
		}
	}
}
