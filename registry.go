package wsi

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// InstanceSideData is the per-VkInstance state the layer attaches via the
// dispatch-key registry: enabled extensions, the WSI platforms the app's
// extension list implies, and the surfaces created against this instance.
// Generalises the teacher's CoreRenderInstance (instance.go) from a
// render-loop owner into the layer's bookkeeping entity.
type InstanceSideData struct {
	mu         sync.Mutex
	Instance   vk.Instance
	Extensions *ExtensionSet
	Platforms  map[Platform]bool
	Surfaces   map[vk.SurfaceKHR]*LayerSurface
	APIVersion uint32

	// NextGetInstanceProcAddr is the next layer's GetInstanceProcAddr,
	// captured off the loader chain by CreateInstance. GetInstanceProcAddr
	// and DestroyInstance use it to keep resolving names down the chain
	// after create returns.
	NextGetInstanceProcAddr NextGetInstanceProcAddr
}

func newInstanceSideData(instance vk.Instance, ext *ExtensionSet, apiVersion uint32) *InstanceSideData {
	isd := &InstanceSideData{
		Instance:   instance,
		Extensions: ext,
		Platforms:  make(map[Platform]bool),
		Surfaces:   make(map[vk.SurfaceKHR]*LayerSurface),
		APIVersion: apiVersion,
	}
	for name, plat := range wsiPlatformExtensions {
		if ext.Has(name) {
			isd.Platforms[plat] = true
		}
	}
	return isd
}

func (isd *InstanceSideData) addSurface(s *LayerSurface) {
	isd.mu.Lock()
	defer isd.mu.Unlock()
	isd.Surfaces[s.Handle] = s
}

func (isd *InstanceSideData) removeSurface(handle vk.SurfaceKHR) {
	isd.mu.Lock()
	defer isd.mu.Unlock()
	delete(isd.Surfaces, handle)
}

func (isd *InstanceSideData) surface(handle vk.SurfaceKHR) *LayerSurface {
	isd.mu.Lock()
	defer isd.mu.Unlock()
	return isd.Surfaces[handle]
}

// Surface is the exported form of surface, for cmd/vkwsilayer's
// CreateSwapchainKHR glue (which only has an InstanceSideData obtained
// via DeviceSideDataFor(device).Instance, not a VkPhysicalDevice to feed
// findLayerSurface).
func (isd *InstanceSideData) Surface(handle vk.SurfaceKHR) *LayerSurface {
	return isd.surface(handle)
}

// DeviceSideData is the per-VkDevice state: the parent instance, enabled
// device extensions, the queues the layer has seen, and the swapchains
// created against this device. Generalises CoreDevice/CoreQueue
// (device.go, queue.go).
type DeviceSideData struct {
	mu             sync.Mutex
	Device         vk.Device
	PhysicalDevice vk.PhysicalDevice
	Instance       *InstanceSideData
	Extensions     *ExtensionSet
	MemProperties  vk.PhysicalDeviceMemoryProperties
	Queues         map[DispatchKey]vk.Queue
	Swapchains     map[vk.SwapchainKHR]*Swapchain

	// NextGetDeviceProcAddr is the next layer's GetDeviceProcAddr,
	// captured off the loader chain by CreateDevice.
	NextGetDeviceProcAddr NextGetDeviceProcAddr
}

func newDeviceSideData(device vk.Device, gpu vk.PhysicalDevice, instance *InstanceSideData, ext *ExtensionSet, memProps vk.PhysicalDeviceMemoryProperties) *DeviceSideData {
	return &DeviceSideData{
		Device:         device,
		PhysicalDevice: gpu,
		Instance:       instance,
		Extensions:     ext,
		MemProperties:  memProps,
		Queues:         make(map[DispatchKey]vk.Queue),
		Swapchains:     make(map[vk.SwapchainKHR]*Swapchain),
	}
}

func (dsd *DeviceSideData) addQueue(queue vk.Queue) {
	dsd.mu.Lock()
	defer dsd.mu.Unlock()
	dsd.Queues[queueDispatchKey(queue)] = queue
}

func (dsd *DeviceSideData) addSwapchain(sc *Swapchain) {
	dsd.mu.Lock()
	defer dsd.mu.Unlock()
	dsd.Swapchains[sc.Handle] = sc
}

func (dsd *DeviceSideData) removeSwapchain(handle vk.SwapchainKHR) {
	dsd.mu.Lock()
	defer dsd.mu.Unlock()
	delete(dsd.Swapchains, handle)
}

func (dsd *DeviceSideData) swapchain(handle vk.SwapchainKHR) *Swapchain {
	dsd.mu.Lock()
	defer dsd.mu.Unlock()
	return dsd.Swapchains[handle]
}

// Swapchain is the exported form of swapchain, used by cmd/vkwsilayer's
// entrypoint glue.
func (dsd *DeviceSideData) Swapchain(handle vk.SwapchainKHR) *Swapchain {
	return dsd.swapchain(handle)
}

// registryT is the process-wide dispatch-key registry. A single
// sync.Mutex guards both maps; registry traffic is cold relative to the
// swapchain scheduling hot path so one lock keeps this simple instead of
// sharding per map.
type registryT struct {
	mu        sync.Mutex
	instances map[DispatchKey]*InstanceSideData
	devices   map[DispatchKey]*DeviceSideData
}

var registry = &registryT{
	instances: make(map[DispatchKey]*InstanceSideData),
	devices:   make(map[DispatchKey]*DeviceSideData),
}

func (r *registryT) addInstance(key DispatchKey, isd *InstanceSideData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[key] = isd
}

func (r *registryT) instance(key DispatchKey) *InstanceSideData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instances[key]
}

// removeInstance must be called before the next layer's
// vkDestroyInstance runs, so a racing lookup can never resolve a
// dispatch key to side data for an instance already being torn down.
func (r *registryT) removeInstance(key DispatchKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, key)
}

func (r *registryT) addDevice(key DispatchKey, dsd *DeviceSideData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[key] = dsd
}

func (r *registryT) device(key DispatchKey) *DeviceSideData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.devices[key]
}

func (r *registryT) removeDevice(key DispatchKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, key)
}

// instanceForPhysicalDevice resolves a VkPhysicalDevice back to the side
// data of the instance it was enumerated from: a VkPhysicalDevice shares
// its parent instance's dispatch pointer.
func instanceForPhysicalDevice(gpu vk.PhysicalDevice) *InstanceSideData {
	return registry.instance(physicalDeviceDispatchKey(gpu))
}

func instanceFor(instance vk.Instance) *InstanceSideData {
	return registry.instance(instanceDispatchKey(instance))
}

func deviceFor(device vk.Device) *DeviceSideData {
	return registry.device(deviceDispatchKey(device))
}

// DeviceSideDataFor is the exported form of deviceFor, used by
// cmd/vkwsilayer's entrypoint glue to resolve a VkDevice back to its
// side data without reaching into package-private registry state.
func DeviceSideDataFor(device vk.Device) *DeviceSideData {
	return deviceFor(device)
}

// InstanceSideDataFor is the exported form of instanceFor.
func InstanceSideDataFor(instance vk.Instance) *InstanceSideData {
	return instanceFor(instance)
}

// deviceForQueue resolves a VkQueue back to the side data of the device
// it was retrieved from (shared dispatch pointer).
func deviceForQueue(queue vk.Queue) *DeviceSideData {
	return registry.device(queueDispatchKey(queue))
}

func deviceForCommandBuffer(cb vk.CommandBuffer) *DeviceSideData {
	return registry.device(commandBufferDispatchKey(cb))
}
