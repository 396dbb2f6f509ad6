// Package main builds the vkwsilayer.so shared object the Vulkan loader
// dlopens. It holds the loader-facing cgo glue: the loader
// ABI (spec.md §4.1) hands the layer raw C function pointers and expects
// raw C function pointers back, which a pure-Go package cannot produce
// or call on its own. Everything else — dispatch tables, the side-data
// registry, the swapchain engine, every backend — lives in the root wsi
// package, whose own cgo use is limited to the libdrm and xcb shims in
// drm_cgo.go and x11_cgo.go; this file is thin plumbing over it: marshal C args into
// Go values, call into wsi, marshal the result back.
package main

/*
#include <stdlib.h>
#include <stdint.h>

typedef uint32_t VkResult;
typedef void *VkInstance;
typedef void *VkPhysicalDevice;
typedef void *VkDevice;
typedef void *VkQueue;
typedef uint64_t VkNonDispatchable;
typedef void (*PFN_vkVoidFunction)(void);

typedef PFN_vkVoidFunction (*PFN_vkGetInstanceProcAddr)(VkInstance, const char *);
typedef PFN_vkVoidFunction (*PFN_vkGetDeviceProcAddr)(VkDevice, const char *);
typedef VkResult (*PFN_vkCreateInstance)(const void *, const void *, VkInstance *);
typedef VkResult (*PFN_vkCreateDevice)(VkPhysicalDevice, const void *, const void *, VkDevice *);
typedef void (*PFN_vkDestroyInstance)(VkInstance, const void *);
typedef void (*PFN_vkDestroyDevice)(VkDevice, const void *);
typedef void (*PFN_vkDestroySurfaceKHR)(VkInstance, VkNonDispatchable, const void *);
typedef VkResult (*PFN_vkGetPhysicalDeviceSurfaceSupportKHR)(VkPhysicalDevice, uint32_t, VkNonDispatchable, uint32_t *);
typedef VkResult (*PFN_vkGetPhysicalDeviceSurfaceCapabilitiesKHR)(VkPhysicalDevice, VkNonDispatchable, void *);
typedef VkResult (*PFN_vkGetPhysicalDeviceSurfaceArrayKHR)(VkPhysicalDevice, VkNonDispatchable, uint32_t *, void *);
typedef VkResult (*PFN_vkCreateSurfaceKHR)(VkInstance, const void *, const void *, VkNonDispatchable *);
typedef VkResult (*PFN_vkBindImageMemory2)(VkDevice, uint32_t, const void *);

static PFN_vkVoidFunction call_get_instance_proc_addr(PFN_vkGetInstanceProcAddr fn, VkInstance instance, const char *name) {
	return fn(instance, name);
}

static PFN_vkVoidFunction call_get_device_proc_addr(PFN_vkGetDeviceProcAddr fn, VkDevice device, const char *name) {
	return fn(device, name);
}

static VkResult call_create_instance(PFN_vkCreateInstance fn, const void *pCreateInfo, const void *pAllocator, VkInstance *pInstance) {
	return fn(pCreateInfo, pAllocator, pInstance);
}

static VkResult call_create_device(PFN_vkCreateDevice fn, VkPhysicalDevice gpu, const void *pCreateInfo, const void *pAllocator, VkDevice *pDevice) {
	return fn(gpu, pCreateInfo, pAllocator, pDevice);
}

static void call_destroy_instance(PFN_vkDestroyInstance fn, VkInstance instance, const void *pAllocator) {
	fn(instance, pAllocator);
}

static void call_destroy_device(PFN_vkDestroyDevice fn, VkDevice device, const void *pAllocator) {
	fn(device, pAllocator);
}

static void call_destroy_surface(PFN_vkDestroySurfaceKHR fn, VkInstance instance, VkNonDispatchable surface, const void *pAllocator) {
	fn(instance, surface, pAllocator);
}

static VkResult call_surface_support(PFN_vkGetPhysicalDeviceSurfaceSupportKHR fn, VkPhysicalDevice gpu, uint32_t qfi, VkNonDispatchable surface, uint32_t *pSupported) {
	return fn(gpu, qfi, surface, pSupported);
}

static VkResult call_surface_capabilities(PFN_vkGetPhysicalDeviceSurfaceCapabilitiesKHR fn, VkPhysicalDevice gpu, VkNonDispatchable surface, void *pCaps) {
	return fn(gpu, surface, pCaps);
}

static VkResult call_surface_array(PFN_vkGetPhysicalDeviceSurfaceArrayKHR fn, VkPhysicalDevice gpu, VkNonDispatchable surface, uint32_t *pCount, void *pArray) {
	return fn(gpu, surface, pCount, pArray);
}

static VkResult call_create_surface(PFN_vkCreateSurfaceKHR fn, VkInstance instance, const void *pCreateInfo, const void *pAllocator, VkNonDispatchable *pSurface) {
	return fn(instance, pCreateInfo, pAllocator, pSurface);
}

static VkResult call_bind_image_memory2(PFN_vkBindImageMemory2 fn, VkDevice device, uint32_t count, const void *pBindInfos) {
	return fn(device, count, pBindInfos);
}
*/
import "C"

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi"
)

// instanceEntrypointAddrs/deviceEntrypointAddrs map every name this
// layer intercepts to its own cgo-exported trampoline's address;
// GetInstanceProcAddr/GetDeviceProcAddr below consult them only after
// wsi.GetInstanceProcAddr/GetDeviceProcAddr's gating (extension/API
// version visibility) approves the name, via wsi.RegisterResolvers.
var instanceEntrypointAddrs = map[string]uintptr{}
var deviceEntrypointAddrs = map[string]uintptr{}

func init() {
	wsi.RegisterResolvers(
		func(name string) uintptr { return instanceEntrypointAddrs[name] },
		func(name string) uintptr { return deviceEntrypointAddrs[name] },
	)
	wsi.RegisterRawCallers(
		rawProcAddrCall,
		rawCreateInstanceCall,
		rawCreateDeviceCall,
		rawDestroyInstanceCall,
		rawDestroyDeviceCall,
	)

	registerInstanceEntrypoint("vkCreateInstance", C.vkCreateInstance)
	registerInstanceEntrypoint("vkDestroyInstance", C.vkDestroyInstance)
	registerInstanceEntrypoint("vkDestroySurfaceKHR", C.vkDestroySurfaceKHR)
	registerInstanceEntrypoint("vkGetPhysicalDeviceSurfaceSupportKHR", C.vkGetPhysicalDeviceSurfaceSupportKHR)
	registerInstanceEntrypoint("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", C.vkGetPhysicalDeviceSurfaceCapabilitiesKHR)
	registerInstanceEntrypoint("vkGetPhysicalDeviceSurfaceFormatsKHR", C.vkGetPhysicalDeviceSurfaceFormatsKHR)
	registerInstanceEntrypoint("vkGetPhysicalDeviceSurfacePresentModesKHR", C.vkGetPhysicalDeviceSurfacePresentModesKHR)
	registerInstanceEntrypoint("vkCreateWaylandSurfaceKHR", C.vkCreateWaylandSurfaceKHR)
	registerInstanceEntrypoint("vkCreateXcbSurfaceKHR", C.vkCreateXcbSurfaceKHR)
	registerInstanceEntrypoint("vkCreateXlibSurfaceKHR", C.vkCreateXlibSurfaceKHR)
	registerInstanceEntrypoint("vkCreateHeadlessSurfaceEXT", C.vkCreateHeadlessSurfaceEXT)
	registerInstanceEntrypoint("vkCreateDisplayPlaneSurfaceKHR", C.vkCreateDisplayPlaneSurfaceKHR)

	registerInstanceEntrypoint("vkCreateDevice", C.vkCreateDevice)
	registerDeviceEntrypoint("vkDestroyDevice", C.vkDestroyDevice)
	registerDeviceEntrypoint("vkCreateSwapchainKHR", C.vkCreateSwapchainKHR)
	registerDeviceEntrypoint("vkDestroySwapchainKHR", C.vkDestroySwapchainKHR)
	registerDeviceEntrypoint("vkGetSwapchainImagesKHR", C.vkGetSwapchainImagesKHR)
	registerDeviceEntrypoint("vkAcquireNextImageKHR", C.vkAcquireNextImageKHR)
	registerDeviceEntrypoint("vkAcquireNextImage2KHR", C.vkAcquireNextImage2KHR)
	registerDeviceEntrypoint("vkQueuePresentKHR", C.vkQueuePresentKHR)
	registerDeviceEntrypoint("vkReleaseSwapchainImagesEXT", C.vkReleaseSwapchainImagesEXT)
	registerDeviceEntrypoint("vkBindImageMemory2", C.vkBindImageMemory2)
	registerDeviceEntrypoint("vkBindImageMemory2KHR", C.vkBindImageMemory2)
	registerDeviceEntrypoint("vkGetPastPresentationTimingGOOGLE", C.vkGetPastPresentationTimingGOOGLE)
}

func registerInstanceEntrypoint(name string, fn unsafe.Pointer) {
	instanceEntrypointAddrs[name] = uintptr(fn)
}

func registerDeviceEntrypoint(name string, fn unsafe.Pointer) {
	deviceEntrypointAddrs[name] = uintptr(fn)
}

// rawProcAddrCall implements wsi.RawProcAddrCaller: fn is a raw
// PFN_vkGetInstanceProcAddr or PFN_vkGetDeviceProcAddr taken off the
// loader chain, dispatchable is the VkInstance/VkDevice to query with
// (0 for the instance-independent "resolve my own vkCreateInstance"
// case), and the return value is itself a raw function-pointer address.
func rawProcAddrCall(fn uintptr, dispatchable uintptr, name string) uintptr {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	addr := C.call_get_instance_proc_addr(
		C.PFN_vkGetInstanceProcAddr(unsafe.Pointer(fn)),
		C.VkInstance(unsafe.Pointer(dispatchable)),
		cname,
	)
	return uintptr(unsafe.Pointer(addr))
}

func rawCreateInstanceCall(fn uintptr, pCreateInfo *vk.InstanceCreateInfo, pAllocator *vk.AllocationCallbacks, pInstance *vk.Instance) vk.Result {
	var cInstance C.VkInstance
	ret := C.call_create_instance(
		C.PFN_vkCreateInstance(unsafe.Pointer(fn)),
		unsafe.Pointer(pCreateInfo),
		unsafe.Pointer(pAllocator),
		&cInstance,
	)
	*pInstance = vk.Instance(uintptr(unsafe.Pointer(cInstance)))
	return vk.Result(ret)
}

func rawCreateDeviceCall(fn uintptr, physicalDevice vk.PhysicalDevice, pCreateInfo *vk.DeviceCreateInfo, pAllocator *vk.AllocationCallbacks, pDevice *vk.Device) vk.Result {
	var cDevice C.VkDevice
	ret := C.call_create_device(
		C.PFN_vkCreateDevice(unsafe.Pointer(fn)),
		C.VkPhysicalDevice(unsafe.Pointer(uintptr(physicalDevice))),
		unsafe.Pointer(pCreateInfo),
		unsafe.Pointer(pAllocator),
		&cDevice,
	)
	*pDevice = vk.Device(uintptr(unsafe.Pointer(cDevice)))
	return vk.Result(ret)
}

func rawDestroyInstanceCall(fn uintptr, instance vk.Instance, pAllocator *vk.AllocationCallbacks) {
	C.call_destroy_instance(
		C.PFN_vkDestroyInstance(unsafe.Pointer(fn)),
		C.VkInstance(unsafe.Pointer(uintptr(instance))),
		unsafe.Pointer(pAllocator),
	)
}

func rawDestroyDeviceCall(fn uintptr, device vk.Device, pAllocator *vk.AllocationCallbacks) {
	C.call_destroy_device(
		C.PFN_vkDestroyDevice(unsafe.Pointer(fn)),
		C.VkDevice(unsafe.Pointer(uintptr(device))),
		unsafe.Pointer(pAllocator),
	)
}

//export NegotiateLoaderLayerInterfaceVersion
func NegotiateLoaderLayerInterfaceVersion(pVersionStruct unsafe.Pointer) C.VkResult {
	version := (*uint32)(pVersionStruct)
	if wsi.NegotiateLoaderLayerInterfaceVersion(version) {
		return C.VkResult(vk.Success)
	}
	return C.VkResult(vk.ErrorInitializationFailed)
}

//export wsilayer_GetInstanceProcAddr
func wsilayer_GetInstanceProcAddr(instance C.VkInstance, pName *C.char) C.PFN_vkVoidFunction {
	name := C.GoString(pName)
	inst := vk.Instance(uintptr(unsafe.Pointer(instance)))
	addr := wsi.GetInstanceProcAddr(inst, name)
	return C.PFN_vkVoidFunction(unsafe.Pointer(addr))
}

//export wsilayer_GetDeviceProcAddr
func wsilayer_GetDeviceProcAddr(device C.VkDevice, pName *C.char) C.PFN_vkVoidFunction {
	name := C.GoString(pName)
	dev := vk.Device(uintptr(unsafe.Pointer(device)))
	addr := wsi.GetDeviceProcAddr(dev, name)
	return C.PFN_vkVoidFunction(unsafe.Pointer(addr))
}

//export vkCreateInstance
func vkCreateInstance(pCreateInfo, pAllocator unsafe.Pointer, pInstance *C.VkInstance) C.VkResult {
	info := (*vk.InstanceCreateInfo)(pCreateInfo)
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	var instance vk.Instance

	ret := wsi.CreateInstance(info, alloc, &instance)
	*pInstance = C.VkInstance(unsafe.Pointer(uintptr(instance)))
	return C.VkResult(ret)
}

//export vkDestroyInstance
func vkDestroyInstance(instance C.VkInstance, pAllocator unsafe.Pointer) {
	inst := vk.Instance(uintptr(unsafe.Pointer(instance)))
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	wsi.DestroyInstance(inst, alloc)
}

//export vkCreateDevice
func vkCreateDevice(gpu C.VkPhysicalDevice, pCreateInfo, pAllocator unsafe.Pointer, pDevice *C.VkDevice) C.VkResult {
	physicalDevice := vk.PhysicalDevice(uintptr(unsafe.Pointer(gpu)))
	info := (*vk.DeviceCreateInfo)(pCreateInfo)
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	var device vk.Device

	ret := wsi.CreateDevice(physicalDevice, info, alloc, &device)
	*pDevice = C.VkDevice(unsafe.Pointer(uintptr(device)))
	return C.VkResult(ret)
}

//export vkDestroyDevice
func vkDestroyDevice(device C.VkDevice, pAllocator unsafe.Pointer) {
	dev := vk.Device(uintptr(unsafe.Pointer(device)))
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	wsi.DestroyDevice(dev, alloc)
}

// buildNextSurfaceFn resolves name through the next layer down for
// instance's own chain; the four vkGetPhysicalDeviceSurface*KHR
// fallbacks and vkDestroySurfaceKHR's callNext all need exactly this.
func buildNextSurfaceFn(instance vk.Instance, name string) uintptr {
	return wsi.ResolveNextInstanceProcAddr(instance, name)
}

func buildNextSurfaceFnForPhysicalDevice(gpu vk.PhysicalDevice, name string) uintptr {
	return wsi.ResolveNextInstanceProcAddrForPhysicalDevice(gpu, name)
}

//export vkDestroySurfaceKHR
func vkDestroySurfaceKHR(instance C.VkInstance, surface C.VkNonDispatchable, pAllocator unsafe.Pointer) {
	inst := vk.Instance(uintptr(unsafe.Pointer(instance)))
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	addr := buildNextSurfaceFn(inst, "vkDestroySurfaceKHR")
	wsi.DestroySurfaceKHR(inst, vk.SurfaceKHR(surface), alloc, func(i vk.Instance, s vk.SurfaceKHR, a *vk.AllocationCallbacks) {
		if addr == 0 {
			return
		}
		C.call_destroy_surface(
			C.PFN_vkDestroySurfaceKHR(unsafe.Pointer(addr)),
			C.VkInstance(unsafe.Pointer(uintptr(i))),
			C.VkNonDispatchable(s),
			unsafe.Pointer(a),
		)
	})
}

//export vkGetPhysicalDeviceSurfaceSupportKHR
func vkGetPhysicalDeviceSurfaceSupportKHR(gpu C.VkPhysicalDevice, queueFamilyIndex C.uint32_t, surface C.VkNonDispatchable, pSupported *C.uint32_t) C.VkResult {
	physicalDevice := vk.PhysicalDevice(uintptr(unsafe.Pointer(gpu)))
	addr := buildNextSurfaceFnForPhysicalDevice(physicalDevice, "vkGetPhysicalDeviceSurfaceSupportKHR")
	supported := (*vk.Bool32)(unsafe.Pointer(pSupported))
	ret := wsi.GetPhysicalDeviceSurfaceSupportKHR(physicalDevice, uint32(queueFamilyIndex), vk.SurfaceKHR(surface), supported,
		func(g vk.PhysicalDevice, qfi uint32, s vk.SurfaceKHR, sup *vk.Bool32) vk.Result {
			if addr == 0 {
				return vk.ErrorInitializationFailed
			}
			return vk.Result(C.call_surface_support(
				C.PFN_vkGetPhysicalDeviceSurfaceSupportKHR(unsafe.Pointer(addr)),
				C.VkPhysicalDevice(unsafe.Pointer(uintptr(g))),
				C.uint32_t(qfi),
				C.VkNonDispatchable(s),
				(*C.uint32_t)(unsafe.Pointer(sup)),
			))
		})
	return C.VkResult(ret)
}

//export vkGetPhysicalDeviceSurfaceCapabilitiesKHR
func vkGetPhysicalDeviceSurfaceCapabilitiesKHR(gpu C.VkPhysicalDevice, surface C.VkNonDispatchable, pCaps unsafe.Pointer) C.VkResult {
	physicalDevice := vk.PhysicalDevice(uintptr(unsafe.Pointer(gpu)))
	addr := buildNextSurfaceFnForPhysicalDevice(physicalDevice, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR")
	caps := (*vk.SurfaceCapabilitiesKHR)(pCaps)
	ret := wsi.GetPhysicalDeviceSurfaceCapabilitiesKHR(physicalDevice, vk.SurfaceKHR(surface), caps,
		func(g vk.PhysicalDevice, s vk.SurfaceKHR, c *vk.SurfaceCapabilitiesKHR) vk.Result {
			if addr == 0 {
				return vk.ErrorInitializationFailed
			}
			return vk.Result(C.call_surface_capabilities(
				C.PFN_vkGetPhysicalDeviceSurfaceCapabilitiesKHR(unsafe.Pointer(addr)),
				C.VkPhysicalDevice(unsafe.Pointer(uintptr(g))),
				C.VkNonDispatchable(s),
				unsafe.Pointer(c),
			))
		})
	return C.VkResult(ret)
}

//export vkGetPhysicalDeviceSurfaceFormatsKHR
func vkGetPhysicalDeviceSurfaceFormatsKHR(gpu C.VkPhysicalDevice, surface C.VkNonDispatchable, pCount *C.uint32_t, pFormats unsafe.Pointer) C.VkResult {
	physicalDevice := vk.PhysicalDevice(uintptr(unsafe.Pointer(gpu)))
	addr := buildNextSurfaceFnForPhysicalDevice(physicalDevice, "vkGetPhysicalDeviceSurfaceFormatsKHR")
	count := (*uint32)(unsafe.Pointer(pCount))
	var formats []vk.SurfaceFormatKHR
	if pFormats != nil {
		formats = unsafe.Slice((*vk.SurfaceFormatKHR)(pFormats), int(*count))
	}
	ret := wsi.GetPhysicalDeviceSurfaceFormatsKHR(physicalDevice, vk.SurfaceKHR(surface), count, formats,
		func(g vk.PhysicalDevice, s vk.SurfaceKHR, cnt *uint32, arr []vk.SurfaceFormatKHR) vk.Result {
			if addr == 0 {
				return vk.ErrorInitializationFailed
			}
			var arrPtr unsafe.Pointer
			if len(arr) > 0 {
				arrPtr = unsafe.Pointer(&arr[0])
			}
			return vk.Result(C.call_surface_array(
				C.PFN_vkGetPhysicalDeviceSurfaceArrayKHR(unsafe.Pointer(addr)),
				C.VkPhysicalDevice(unsafe.Pointer(uintptr(g))),
				C.VkNonDispatchable(s),
				(*C.uint32_t)(unsafe.Pointer(cnt)),
				arrPtr,
			))
		})
	return C.VkResult(ret)
}

//export vkGetPhysicalDeviceSurfacePresentModesKHR
func vkGetPhysicalDeviceSurfacePresentModesKHR(gpu C.VkPhysicalDevice, surface C.VkNonDispatchable, pCount *C.uint32_t, pModes unsafe.Pointer) C.VkResult {
	physicalDevice := vk.PhysicalDevice(uintptr(unsafe.Pointer(gpu)))
	addr := buildNextSurfaceFnForPhysicalDevice(physicalDevice, "vkGetPhysicalDeviceSurfacePresentModesKHR")
	count := (*uint32)(unsafe.Pointer(pCount))
	var modes []vk.PresentModeKHR
	if pModes != nil {
		modes = unsafe.Slice((*vk.PresentModeKHR)(pModes), int(*count))
	}
	ret := wsi.GetPhysicalDeviceSurfacePresentModesKHR(physicalDevice, vk.SurfaceKHR(surface), count, modes,
		func(g vk.PhysicalDevice, s vk.SurfaceKHR, cnt *uint32, arr []vk.PresentModeKHR) vk.Result {
			if addr == 0 {
				return vk.ErrorInitializationFailed
			}
			var arrPtr unsafe.Pointer
			if len(arr) > 0 {
				arrPtr = unsafe.Pointer(&arr[0])
			}
			return vk.Result(C.call_surface_array(
				C.PFN_vkGetPhysicalDeviceSurfaceArrayKHR(unsafe.Pointer(addr)),
				C.VkPhysicalDevice(unsafe.Pointer(uintptr(g))),
				C.VkNonDispatchable(s),
				(*C.uint32_t)(unsafe.Pointer(cnt)),
				arrPtr,
			))
		})
	return C.VkResult(ret)
}

// wrapCreateSurfaceNext builds the callNext every vkCreate<Platform>SurfaceKHR
// export shares: resolve the name down the instance's own chain and call
// through to whatever the ICD (or a layer further down) implements, if
// anything. When callNext fails, the wsi-side CreateXxxSurfaceKHR
// functions return its result and attach no layer surface.
func wrapCreateSurfaceNext(instance vk.Instance, name string) func(unsafe.Pointer, unsafe.Pointer, unsafe.Pointer, *vk.SurfaceKHR) vk.Result {
	addr := buildNextSurfaceFn(instance, name)
	return func(pCreateInfo, pAllocator, _ unsafe.Pointer, pSurface *vk.SurfaceKHR) vk.Result {
		if addr == 0 {
			return vk.ErrorExtensionNotPresent
		}
		var handle C.VkNonDispatchable
		ret := C.call_create_surface(
			C.PFN_vkCreateSurfaceKHR(unsafe.Pointer(addr)),
			C.VkInstance(unsafe.Pointer(uintptr(instance))),
			pCreateInfo,
			pAllocator,
			&handle,
		)
		*pSurface = vk.SurfaceKHR(handle)
		return vk.Result(ret)
	}
}

//export vkCreateWaylandSurfaceKHR
func vkCreateWaylandSurfaceKHR(instance C.VkInstance, pCreateInfo, pAllocator unsafe.Pointer, pSurface *C.VkNonDispatchable) C.VkResult {
	inst := vk.Instance(uintptr(unsafe.Pointer(instance)))
	info := (*vk.WaylandSurfaceCreateInfoKHR)(pCreateInfo)
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	next := wrapCreateSurfaceNext(inst, "vkCreateWaylandSurfaceKHR")
	var surface vk.SurfaceKHR
	ret := wsi.CreateWaylandSurfaceKHR(inst, info, alloc, &surface, func(i vk.Instance, ci *vk.WaylandSurfaceCreateInfoKHR, a *vk.AllocationCallbacks, s *vk.SurfaceKHR) vk.Result {
		return next(unsafe.Pointer(ci), unsafe.Pointer(a), nil, s)
	})
	*pSurface = C.VkNonDispatchable(surface)
	return C.VkResult(ret)
}

//export vkCreateXcbSurfaceKHR
func vkCreateXcbSurfaceKHR(instance C.VkInstance, pCreateInfo, pAllocator unsafe.Pointer, pSurface *C.VkNonDispatchable) C.VkResult {
	inst := vk.Instance(uintptr(unsafe.Pointer(instance)))
	info := (*vk.XcbSurfaceCreateInfoKHR)(pCreateInfo)
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	next := wrapCreateSurfaceNext(inst, "vkCreateXcbSurfaceKHR")
	var surface vk.SurfaceKHR
	ret := wsi.CreateXcbSurfaceKHR(inst, info, alloc, &surface, func(i vk.Instance, ci *vk.XcbSurfaceCreateInfoKHR, a *vk.AllocationCallbacks, s *vk.SurfaceKHR) vk.Result {
		return next(unsafe.Pointer(ci), unsafe.Pointer(a), nil, s)
	})
	*pSurface = C.VkNonDispatchable(surface)
	return C.VkResult(ret)
}

//export vkCreateXlibSurfaceKHR
func vkCreateXlibSurfaceKHR(instance C.VkInstance, pCreateInfo, pAllocator unsafe.Pointer, pSurface *C.VkNonDispatchable) C.VkResult {
	inst := vk.Instance(uintptr(unsafe.Pointer(instance)))
	info := (*vk.XlibSurfaceCreateInfoKHR)(pCreateInfo)
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	next := wrapCreateSurfaceNext(inst, "vkCreateXlibSurfaceKHR")
	var surface vk.SurfaceKHR
	ret := wsi.CreateXlibSurfaceKHR(inst, info, alloc, &surface, func(i vk.Instance, ci *vk.XlibSurfaceCreateInfoKHR, a *vk.AllocationCallbacks, s *vk.SurfaceKHR) vk.Result {
		return next(unsafe.Pointer(ci), unsafe.Pointer(a), nil, s)
	})
	*pSurface = C.VkNonDispatchable(surface)
	return C.VkResult(ret)
}

//export vkCreateHeadlessSurfaceEXT
func vkCreateHeadlessSurfaceEXT(instance C.VkInstance, pCreateInfo, pAllocator unsafe.Pointer, pSurface *C.VkNonDispatchable) C.VkResult {
	inst := vk.Instance(uintptr(unsafe.Pointer(instance)))
	info := (*vk.HeadlessSurfaceCreateInfoEXT)(pCreateInfo)
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	next := wrapCreateSurfaceNext(inst, "vkCreateHeadlessSurfaceEXT")
	var surface vk.SurfaceKHR
	ret := wsi.CreateHeadlessSurfaceEXT(inst, info, alloc, &surface, func(i vk.Instance, ci *vk.HeadlessSurfaceCreateInfoEXT, a *vk.AllocationCallbacks, s *vk.SurfaceKHR) vk.Result {
		return next(unsafe.Pointer(ci), unsafe.Pointer(a), nil, s)
	})
	*pSurface = C.VkNonDispatchable(surface)
	return C.VkResult(ret)
}

//export vkCreateDisplayPlaneSurfaceKHR
func vkCreateDisplayPlaneSurfaceKHR(instance C.VkInstance, pCreateInfo, pAllocator unsafe.Pointer, pSurface *C.VkNonDispatchable) C.VkResult {
	inst := vk.Instance(uintptr(unsafe.Pointer(instance)))
	info := (*vk.DisplaySurfaceCreateInfoKHR)(pCreateInfo)
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	next := wrapCreateSurfaceNext(inst, "vkCreateDisplayPlaneSurfaceKHR")
	var surface vk.SurfaceKHR
	ret := wsi.CreateDisplayPlaneSurfaceKHR(inst, info, alloc, &surface, func(i vk.Instance, ci *vk.DisplaySurfaceCreateInfoKHR, a *vk.AllocationCallbacks, s *vk.SurfaceKHR) vk.Result {
		return next(unsafe.Pointer(ci), unsafe.Pointer(a), nil, s)
	})
	*pSurface = C.VkNonDispatchable(surface)
	return C.VkResult(ret)
}

//export vkCreateSwapchainKHR
func vkCreateSwapchainKHR(device C.VkDevice, pCreateInfo, pAllocator unsafe.Pointer, pSwapchain *C.VkNonDispatchable) C.VkResult {
	dev := vk.Device(uintptr(unsafe.Pointer(device)))
	info := (*vk.SwapchainCreateInfoKHR)(pCreateInfo)
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	var swapchain vk.SwapchainKHR
	ret := wsi.CreateSwapchainKHREntry(dev, info, alloc, &swapchain)
	*pSwapchain = C.VkNonDispatchable(swapchain)
	return C.VkResult(ret)
}

//export vkDestroySwapchainKHR
func vkDestroySwapchainKHR(device C.VkDevice, swapchain C.VkNonDispatchable, pAllocator unsafe.Pointer) {
	dev := vk.Device(uintptr(unsafe.Pointer(device)))
	alloc := (*vk.AllocationCallbacks)(pAllocator)
	wsi.DestroySwapchainKHREntry(dev, vk.SwapchainKHR(swapchain), alloc)
}

//export vkGetSwapchainImagesKHR
func vkGetSwapchainImagesKHR(device C.VkDevice, swapchain C.VkNonDispatchable, pCount *C.uint32_t, pImages unsafe.Pointer) C.VkResult {
	dev := vk.Device(uintptr(unsafe.Pointer(device)))
	count := (*uint32)(unsafe.Pointer(pCount))
	var images []vk.Image
	if pImages != nil {
		images = unsafe.Slice((*vk.Image)(pImages), int(*count))
	}
	ret := wsi.GetSwapchainImagesKHREntry(dev, vk.SwapchainKHR(swapchain), count, images)
	return C.VkResult(ret)
}

//export vkAcquireNextImageKHR
func vkAcquireNextImageKHR(device C.VkDevice, swapchain C.VkNonDispatchable, timeout C.uint64_t, semaphore, fence C.VkNonDispatchable, pImageIndex *C.uint32_t) C.VkResult {
	dev := vk.Device(uintptr(unsafe.Pointer(device)))
	index := (*uint32)(unsafe.Pointer(pImageIndex))
	ret := wsi.AcquireNextImageKHREntry(dev, vk.SwapchainKHR(swapchain), uint64(timeout), vk.Semaphore(semaphore), vk.Fence(fence), index)
	return C.VkResult(ret)
}

//export vkAcquireNextImage2KHR
func vkAcquireNextImage2KHR(device C.VkDevice, pAcquireInfo unsafe.Pointer, pImageIndex *C.uint32_t) C.VkResult {
	dev := vk.Device(uintptr(unsafe.Pointer(device)))
	info := (*vk.AcquireNextImageInfoKHR)(pAcquireInfo)
	index := (*uint32)(unsafe.Pointer(pImageIndex))
	ret := wsi.AcquireNextImage2KHREntry(dev, info, index)
	return C.VkResult(ret)
}

//export vkQueuePresentKHR
func vkQueuePresentKHR(queue C.VkQueue, pPresentInfo unsafe.Pointer) C.VkResult {
	q := vk.Queue(uintptr(unsafe.Pointer(queue)))
	info := (*vk.PresentInfoKHR)(pPresentInfo)
	info.Deref()
	ret := wsi.QueuePresentKHR(q, info.PSwapchains, info.PImageIndices, info.PWaitSemaphores, info.PResults)
	return C.VkResult(ret)
}

//export vkReleaseSwapchainImagesEXT
func vkReleaseSwapchainImagesEXT(device C.VkDevice, pReleaseInfo unsafe.Pointer) C.VkResult {
	dev := vk.Device(uintptr(unsafe.Pointer(device)))
	info := (*vk.ReleaseSwapchainImagesInfoEXT)(pReleaseInfo)
	ret := wsi.ReleaseSwapchainImagesEXTEntry(dev, info)
	return C.VkResult(ret)
}

//export vkGetPastPresentationTimingGOOGLE
func vkGetPastPresentationTimingGOOGLE(device C.VkDevice, swapchain C.VkNonDispatchable, pCount *C.uint32_t, pTimings unsafe.Pointer) C.VkResult {
	dev := vk.Device(uintptr(unsafe.Pointer(device)))
	count := (*uint32)(unsafe.Pointer(pCount))
	var timings []vk.PastPresentationTimingGOOGLE
	if pTimings != nil {
		timings = unsafe.Slice((*vk.PastPresentationTimingGOOGLE)(pTimings), int(*count))
	}
	ret := wsi.GetPastPresentationTimingEXTEntry(dev, vk.SwapchainKHR(swapchain), count, timings)
	return C.VkResult(ret)
}

//export vkBindImageMemory2
func vkBindImageMemory2(device C.VkDevice, count C.uint32_t, pBindInfos unsafe.Pointer) C.VkResult {
	dev := vk.Device(uintptr(unsafe.Pointer(device)))
	addr := wsi.ResolveNextDeviceProcAddr(dev, "vkBindImageMemory2")
	infos := unsafe.Slice((*vk.BindImageMemoryInfo)(pBindInfos), int(count))
	ret := wsi.BindImageMemory2Entry(dev, infos, func(d vk.Device, forwarded []vk.BindImageMemoryInfo) vk.Result {
		if addr == 0 || len(forwarded) == 0 {
			return vk.Success
		}
		return vk.Result(C.call_bind_image_memory2(
			C.PFN_vkBindImageMemory2(unsafe.Pointer(addr)),
			C.VkDevice(unsafe.Pointer(uintptr(d))),
			C.uint32_t(len(forwarded)),
			unsafe.Pointer(&forwarded[0]),
		))
	})
	return C.VkResult(ret)
}

func main() {}
