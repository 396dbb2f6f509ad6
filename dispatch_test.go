package wsi

import (
	"testing"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// fakeDispatchable fabricates a loader-style dispatchable object: the
// first machine word at its address is the "dispatch pointer"
// dispatchKeyOf reads back out.
func fakeDispatchable(dispatchPtr uintptr) uintptr {
	word := new(uintptr)
	*word = dispatchPtr
	return uintptr(unsafe.Pointer(word))
}

func TestDispatchKeyOfReadsFirstWord(t *testing.T) {
	const want DispatchKey = 0xdeadbeef
	handle := fakeDispatchable(uintptr(want))
	if got := dispatchKeyOf(handle); got != want {
		t.Fatalf("dispatchKeyOf() = %#x, want %#x", got, want)
	}
}

func TestDispatchKeyOfZeroHandle(t *testing.T) {
	if got := dispatchKeyOf(0); got != 0 {
		t.Fatalf("dispatchKeyOf(0) = %#x, want 0", got)
	}
}

func TestInstanceAndPhysicalDeviceShareDispatchKey(t *testing.T) {
	shared := uintptr(0x1234)
	instanceHandle := fakeDispatchable(shared)
	gpuHandle := fakeDispatchable(shared)

	instance := vk.Instance(instanceHandle)
	gpu := vk.PhysicalDevice(gpuHandle)

	if instanceDispatchKey(instance) != physicalDeviceDispatchKey(gpu) {
		t.Fatalf("instance and physical device dispatch keys diverged for a shared dispatch pointer")
	}
}

func TestDeviceQueueAndCommandBufferShareDispatchKey(t *testing.T) {
	shared := uintptr(0x5678)
	deviceHandle := fakeDispatchable(shared)
	queueHandle := fakeDispatchable(shared)
	cbHandle := fakeDispatchable(shared)

	device := vk.Device(deviceHandle)
	queue := vk.Queue(queueHandle)
	cb := vk.CommandBuffer(cbHandle)

	key := deviceDispatchKey(device)
	if queueDispatchKey(queue) != key || commandBufferDispatchKey(cb) != key {
		t.Fatalf("queue/command buffer dispatch keys diverged from their device's")
	}
}
