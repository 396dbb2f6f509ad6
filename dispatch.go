package wsi

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// DispatchKey is the process-wide registry key for a dispatchable Vulkan
// object: the first machine word at the object's memory, i.e. the loader
// trampoline's dispatch-table pointer. Every VkQueue/VkCommandBuffer
// produced from a given VkDevice shares that device's dispatch key, and
// every VkPhysicalDevice obtained from a given VkInstance shares that
// instance's, which is what lets the layer resolve a queue or physical
// device straight back to its parent's side data without the app handing
// the parent handle back in.
type DispatchKey uintptr

// dispatchKeyOf reads the dispatch pointer out of a dispatchable handle.
// handle is the raw uintptr value vulkan-go stores for any VkInstance,
// VkPhysicalDevice, VkDevice, VkQueue or VkCommandBuffer.
func dispatchKeyOf(handle uintptr) DispatchKey {
	if handle == 0 {
		return 0
	}
	return DispatchKey(*(*uintptr)(unsafe.Pointer(handle)))
}

func instanceDispatchKey(instance vk.Instance) DispatchKey {
	return dispatchKeyOf(uintptr(instance))
}

func physicalDeviceDispatchKey(gpu vk.PhysicalDevice) DispatchKey {
	return dispatchKeyOf(uintptr(gpu))
}

func deviceDispatchKey(device vk.Device) DispatchKey {
	return dispatchKeyOf(uintptr(device))
}

func queueDispatchKey(queue vk.Queue) DispatchKey {
	return dispatchKeyOf(uintptr(queue))
}

func commandBufferDispatchKey(cb vk.CommandBuffer) DispatchKey {
	return dispatchKeyOf(uintptr(cb))
}
