package wsi

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsierr"
)

// fenceSync wraps a VkFence with a has-payload bit, generalising the
// teacher's FenceManager (managers.go) from a free-list of reusable
// fences into the single per-image present-fence the swapchain engine
// needs (spec.md §4.10).
type fenceSync struct {
	device     vk.Device
	fence      vk.Fence
	hasPayload bool
}

func newFenceSync(device vk.Device) (*fenceSync, error) {
	var fence vk.Fence
	ret := vk.CreateFence(device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &fence)
	if err := wrapResult(ret); err != nil {
		return nil, err
	}
	return &fenceSync{device: device, fence: fence}, nil
}

// setPayload resets the fence and submits an empty batch on queue that
// waits on semaphores and signals the fence, using BOTTOM_OF_PIPE as the
// wait stage, exactly as spec.md §4.10 and §4.4 step 2 require.
func (f *fenceSync) setPayload(queue vk.Queue, semaphores []vk.Semaphore) error {
	if ret := vk.ResetFences(f.device, 1, []vk.Fence{f.fence}); wsierr.IsError(ret) {
		return wrapResult(ret)
	}
	waitStages := make([]vk.PipelineStageFlags, len(semaphores))
	for i := range waitStages {
		waitStages[i] = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:  uint32(len(semaphores)),
		PWaitSemaphores:     semaphores,
		PWaitDstStageMask:    waitStages,
	}
	if ret := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submit}, f.fence); wsierr.IsError(ret) {
		return wrapResult(ret)
	}
	f.hasPayload = true
	return nil
}

// waitPayload is a no-op if no payload was ever set.
func (f *fenceSync) waitPayload(timeoutNanos uint64) error {
	if !f.hasPayload {
		return nil
	}
	ret := vk.WaitForFences(f.device, 1, []vk.Fence{f.fence}, vk.Bool32(1), timeoutNanos)
	return wrapResult(ret)
}

// destroy waits indefinitely for any outstanding payload before
// destroying the fence, mirroring the spec's destructor contract.
func (f *fenceSync) destroy() {
	if f.hasPayload {
		vk.WaitForFences(f.device, 1, []vk.Fence{f.fence}, vk.Bool32(1), ^uint64(0))
	}
	vk.DestroyFence(f.device, f.fence, nil)
}

// syncFdFenceSync extends fenceSync with VK_EXTERNAL_FENCE_HANDLE_TYPE_SYNC_FD
// export support (spec.md §4.10).
type syncFdFenceSync struct {
	fenceSync
	exportable bool
}

func newSyncFdFenceSync(device vk.Device, exportable bool) (*syncFdFenceSync, error) {
	s := &syncFdFenceSync{exportable: exportable}
	var fence vk.Fence
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var exportInfo vk.ExportFenceCreateInfo
	if exportable {
		exportInfo = vk.ExportFenceCreateInfo{
			SType:       vk.StructureTypeExportFenceCreateInfo,
			HandleTypes: vk.ExternalFenceHandleTypeFlags(vk.ExternalFenceHandleTypeSyncFdBit),
		}
		info.PNext = unsafe.Pointer(&exportInfo)
	}
	if ret := vk.CreateFence(device, &info, nil, &fence); wsierr.IsError(ret) {
		return nil, wrapResult(ret)
	}
	s.device = device
	s.fence = fence
	return s, nil
}

// exportSyncFd calls vkGetFenceFdKHR and clears the has-payload bit on
// success, per spec.md §4.10.
func (s *syncFdFenceSync) exportSyncFd() (int, error) {
	if !s.exportable {
		return -1, wsierr.New(wsierr.KindExtensionNotPresent, vk.ErrorFeatureNotPresent)
	}
	info := vk.FenceGetFdInfoKHR{
		SType:      vk.StructureTypeFenceGetFdInfoKhr,
		Fence:      s.fence,
		HandleType: vk.ExternalFenceHandleTypeSyncFdBit,
	}
	var fd vk.Fd
	ret := vk.GetFenceFdKHR(s.device, &info, &fd)
	if wsierr.IsError(ret) {
		return -1, wrapResult(ret)
	}
	s.hasPayload = false
	return int(fd), nil
}
