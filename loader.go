package wsi

import (
	"os"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vklayer/wsi/internal/wsierr"
	"github.com/vklayer/wsi/internal/wsilog"
)

// The Vulkan loader hands every layer's vkCreateInstance/vkCreateDevice a
// pNext chain carrying two loader-private structures: the link info
// (next layer's proc-addr pair) and the loader-data callback (for
// tagging new dispatchable objects so the loader's own trampoline can
// find their dispatch table). These mirror vk_layer.h, which vulkan-go
// does not expose since it belongs to the loader<->layer ABI rather than
// the Vulkan API proper.
type layerFunction int32

const (
	layerLinkInfo layerFunction = iota
	loaderDataCallback
	loaderLayerCreateDeviceCallback
)

const (
	structureTypeLoaderInstanceCreateInfo = vk.StructureType(0x18)
	structureTypeLoaderDeviceCreateInfo   = vk.StructureType(0x19)
)

// layerInstanceLink mirrors VkLayerInstanceLink.
type layerInstanceLink struct {
	pNext                            *layerInstanceLink
	pfnNextGetInstanceProcAddr       uintptr
	pfnNextGetPhysicalDeviceProcAddr uintptr
}

// layerDeviceLink mirrors VkLayerDeviceLink: same shape as
// layerInstanceLink except its third field is GetDeviceProcAddr rather
// than GetPhysicalDeviceProcAddr, so it gets its own type rather than
// reusing layerInstanceLink.
type layerDeviceLink struct {
	pNext                      *layerDeviceLink
	pfnNextGetInstanceProcAddr uintptr
	pfnNextGetDeviceProcAddr   uintptr
}

// layerChainHeader is the common prefix of VkLayerInstanceCreateInfo and
// VkLayerDeviceCreateInfo, enough to walk the chain and discriminate on
// function before reinterpreting the union.
type layerChainHeader struct {
	sType    vk.StructureType
	pNext    unsafe.Pointer
	function layerFunction
	u        uintptr // union: *layerInstanceLink, or a PFN_vkSetInstanceLoaderData/PFN_vkSetDeviceLoaderData
}

// walkInstanceChainInfo mirrors layer::get_chain_info(VkInstanceCreateInfo*, func).
func walkInstanceChainInfo(pNext unsafe.Pointer, function layerFunction) *layerChainHeader {
	for pNext != nil {
		hdr := (*layerChainHeader)(pNext)
		if hdr.sType == structureTypeLoaderInstanceCreateInfo && hdr.function == function {
			return hdr
		}
		pNext = hdr.pNext
	}
	return nil
}

func walkDeviceChainInfo(pNext unsafe.Pointer, function layerFunction) *layerChainHeader {
	for pNext != nil {
		hdr := (*layerChainHeader)(pNext)
		if hdr.sType == structureTypeLoaderDeviceCreateInfo && hdr.function == function {
			return hdr
		}
		pNext = hdr.pNext
	}
	return nil
}

const loaderLayerInterfaceVersion = 2

// NegotiateLoaderLayerInterfaceVersion implements the one exported ABI
// entrypoint not gated by instance/device: it pins the interface version
// both sides agree to use and (via cmd/vkwsilayer's cgo glue) supplies
// the GetInstanceProcAddr/GetDeviceProcAddr pair. pVersion is the
// in/out negotiated version the loader passed.
func NegotiateLoaderLayerInterfaceVersion(pVersion *uint32) bool {
	if pVersion == nil {
		return false
	}
	if *pVersion < 1 {
		return false
	}
	if *pVersion > loaderLayerInterfaceVersion {
		*pVersion = loaderLayerInterfaceVersion
	}
	return true
}

// NextGetInstanceProcAddr/NextGetDeviceProcAddr are Go-callable wrappers
// around a raw pfnNextGetInstanceProcAddr/pfnNextGetDeviceProcAddr taken
// off the loader chain; CreateInstance/CreateDevice build one from the
// raw callers below and stash it on the instance/device side data so
// GetInstanceProcAddr/GetDeviceProcAddr and the destroy path can keep
// resolving names down the chain after create returns.
type NextGetInstanceProcAddr func(instance vk.Instance, name string) uintptr
type NextGetDeviceProcAddr func(device vk.Device, name string) uintptr

// ResolveFunc answers "what is the address of my own implementation of
// this entrypoint", used once gating approves a name. Supplied by
// cmd/vkwsilayer from its table of cgo-exported trampolines.
type ResolveFunc func(name string) uintptr

var (
	resolveInstanceFn ResolveFunc
	resolveDeviceFn   ResolveFunc
)

// RegisterResolvers wires the cgo-side entrypoint address table. Called
// once from cmd/vkwsilayer's init.
func RegisterResolvers(instance, device ResolveFunc) {
	resolveInstanceFn = instance
	resolveDeviceFn = device
}

// RawProcAddrCaller invokes a raw PFN_vkGetInstanceProcAddr/
// PFN_vkGetDeviceProcAddr function pointer (fn, a uintptr taken off the
// loader chain) with the given instance/device and name, returning
// whatever function pointer it resolves to (also a raw uintptr). Calling
// through an arbitrary C function pointer needs cgo, which this package
// does not use, so cmd/vkwsilayer registers the one implementation via
// RegisterRawCallers at startup.
type RawProcAddrCaller func(fn uintptr, dispatchable uintptr, name string) uintptr

// RawCreateInstanceCaller invokes a raw PFN_vkCreateInstance resolved via
// a RawProcAddrCaller call for "vkCreateInstance".
type RawCreateInstanceCaller func(fn uintptr, pCreateInfo *vk.InstanceCreateInfo, pAllocator *vk.AllocationCallbacks, pInstance *vk.Instance) vk.Result

// RawCreateDeviceCaller mirrors RawCreateInstanceCaller for
// PFN_vkCreateDevice.
type RawCreateDeviceCaller func(fn uintptr, physicalDevice vk.PhysicalDevice, pCreateInfo *vk.DeviceCreateInfo, pAllocator *vk.AllocationCallbacks, pDevice *vk.Device) vk.Result

// RawDestroyInstanceCaller invokes a raw PFN_vkDestroyInstance.
type RawDestroyInstanceCaller func(fn uintptr, instance vk.Instance, pAllocator *vk.AllocationCallbacks)

// RawDestroyDeviceCaller invokes a raw PFN_vkDestroyDevice.
type RawDestroyDeviceCaller func(fn uintptr, device vk.Device, pAllocator *vk.AllocationCallbacks)

var rawCallers struct {
	procAddr        RawProcAddrCaller
	createInstance  RawCreateInstanceCaller
	createDevice    RawCreateDeviceCaller
	destroyInstance RawDestroyInstanceCaller
	destroyDevice   RawDestroyDeviceCaller
}

// RegisterRawCallers wires the cgo boundary's raw-function-pointer
// invokers. Called once from cmd/vkwsilayer's init, mirroring
// RegisterResolvers.
func RegisterRawCallers(procAddr RawProcAddrCaller, createInstance RawCreateInstanceCaller, createDevice RawCreateDeviceCaller,
	destroyInstance RawDestroyInstanceCaller, destroyDevice RawDestroyDeviceCaller) {
	rawCallers.procAddr = procAddr
	rawCallers.createInstance = createInstance
	rawCallers.createDevice = createDevice
	rawCallers.destroyInstance = destroyInstance
	rawCallers.destroyDevice = destroyDevice
}

// GetInstanceProcAddr implements spec.md §4.1's resolution order:
// unconditional entrypoints, extension-gated entrypoints, then
// platform-specific ones via each surface's SurfaceProperties, falling
// through to the next layer (via the instance's own stored
// NextGetInstanceProcAddr, captured at vkCreateInstance time) for
// anything this layer doesn't claim.
func GetInstanceProcAddr(instance vk.Instance, name string) uintptr {
	isd := instanceFor(instance)
	if d, ok := lookupEntrypoint(instanceEntrypoints, name); ok {
		ext := NewExtensionSet(nil)
		apiVersion := apiVersion1_0
		if isd != nil {
			ext = isd.Extensions
			apiVersion = isd.APIVersion
		}
		if d.visible(ext, apiVersion) && resolveInstanceFn != nil {
			if addr := resolveInstanceFn(name); addr != 0 {
				return addr
			}
		}
	} else if isd != nil {
		for plat := range isd.Platforms {
			if addr := platformProcAddr(plat, name); addr != 0 {
				return addr
			}
		}
	}
	if isd != nil && isd.NextGetInstanceProcAddr != nil {
		return isd.NextGetInstanceProcAddr(instance, name)
	}
	return 0
}

// GetDeviceProcAddr mirrors GetInstanceProcAddr for device-level
// entrypoints.
func GetDeviceProcAddr(device vk.Device, name string) uintptr {
	dsd := deviceFor(device)
	if d, ok := lookupEntrypoint(deviceEntrypoints, name); ok {
		ext := NewExtensionSet(nil)
		apiVersion := apiVersion1_0
		if dsd != nil {
			ext = dsd.Extensions
			if dsd.Instance != nil {
				apiVersion = dsd.Instance.APIVersion
			}
		}
		if d.visible(ext, apiVersion) && resolveDeviceFn != nil {
			if addr := resolveDeviceFn(name); addr != 0 {
				return addr
			}
		}
	}
	if dsd != nil && dsd.NextGetDeviceProcAddr != nil {
		return dsd.NextGetDeviceProcAddr(device, name)
	}
	return 0
}

const nameVkCreateInstance = "vkCreateInstance"
const nameVkDestroyInstance = "vkDestroyInstance"
const nameVkCreateDevice = "vkCreateDevice"
const nameVkDestroyDevice = "vkDestroyDevice"

// CreateInstance implements spec.md §4.1's instance-creation contract,
// following the loader-layer convention the source's layer.cpp uses:
// pull the next layer's GetInstanceProcAddr off the chain, resolve
// "vkCreateInstance" through it, call that, then keep the resolved
// GetInstanceProcAddr around for later lookups instead of taking any
// next-layer callbacks as parameters.
func CreateInstance(pCreateInfo *vk.InstanceCreateInfo, pAllocator *vk.AllocationCallbacks, pInstance *vk.Instance) vk.Result {
	pCreateInfo.Deref()
	linkInfo := walkInstanceChainInfo(pCreateInfo.PNext, layerLinkInfo)
	loaderCallback := walkInstanceChainInfo(pCreateInfo.PNext, loaderDataCallback)
	if linkInfo == nil || linkInfo.u == 0 || loaderCallback == nil {
		wsilog.Errorf("missing link info or loader-data callback in vkCreateInstance pNext chain")
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	link := (*layerInstanceLink)(unsafe.Pointer(linkInfo.u))
	if link.pfnNextGetInstanceProcAddr == 0 {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	nextGetInstanceProcAddr := link.pfnNextGetInstanceProcAddr

	appExtensions := pCreateInfo.PpEnabledExtensionNames
	enabled := NewExtensionSet(appExtensions)

	platforms := map[Platform]bool{}
	for name, plat := range wsiPlatformExtensions {
		if enabled.Has(name) {
			platforms[plat] = true
		}
	}
	if len(platforms) > 0 && !enabled.Has("VK_KHR_surface") {
		return resultOf(wsierr.New(wsierr.KindExtensionNotPresent, vk.ErrorExtensionNotPresent))
	}

	// Advance the link info so a re-entrant walk of this same chain (e.g.
	// by a layer further down) sees the next element, mirroring
	// layer_link_info->u.pLayerInfo = layer_link_info->u.pLayerInfo->pNext.
	linkInfo.u = uintptr(unsafe.Pointer(link.pNext))

	if rawCallers.procAddr == nil || rawCallers.createInstance == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	createInstanceAddr := rawCallers.procAddr(nextGetInstanceProcAddr, 0, nameVkCreateInstance)
	if createInstanceAddr == 0 {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}

	ret := rawCallers.createInstance(createInstanceAddr, pCreateInfo, pAllocator, pInstance)
	if wsierr.IsError(ret) {
		return ret
	}

	apiVersion := apiVersion1_0
	if pCreateInfo.PApplicationInfo != nil {
		pCreateInfo.PApplicationInfo.Deref()
		if v := pCreateInfo.PApplicationInfo.APIVersion; v != 0 {
			apiVersion = v
		}
	}
	checkMinAPIVersion(apiVersion, os.Getenv("WSI_MIN_API_VERSION"))

	isd := newInstanceSideData(*pInstance, enabled, apiVersion)
	for plat := range platforms {
		isd.Platforms[plat] = true
	}
	isd.NextGetInstanceProcAddr = func(instance vk.Instance, name string) uintptr {
		return rawCallers.procAddr(nextGetInstanceProcAddr, uintptr(instance), name)
	}
	registry.addInstance(instanceDispatchKey(*pInstance), isd)
	return vk.Success
}

// DestroyInstance removes the registry entry, then resolves and calls
// the next layer's own vkDestroyInstance through the instance's stored
// NextGetInstanceProcAddr, per spec.md §4.2's teardown-ordering
// invariant.
func DestroyInstance(instance vk.Instance, pAllocator *vk.AllocationCallbacks) {
	isd := instanceFor(instance)
	registry.removeInstance(instanceDispatchKey(instance))
	if isd == nil || isd.NextGetInstanceProcAddr == nil || rawCallers.destroyInstance == nil {
		return
	}
	addr := isd.NextGetInstanceProcAddr(instance, nameVkDestroyInstance)
	if addr == 0 {
		return
	}
	rawCallers.destroyInstance(addr, instance, pAllocator)
}

// CreateDevice implements spec.md §4.1's device-creation contract: same
// link-info walk as CreateInstance, against the device link structure,
// resolving and calling the next layer's vkCreateDevice the same way.
func CreateDevice(physicalDevice vk.PhysicalDevice, pCreateInfo *vk.DeviceCreateInfo, pAllocator *vk.AllocationCallbacks, pDevice *vk.Device) vk.Result {
	pCreateInfo.Deref()
	linkInfo := walkDeviceChainInfo(pCreateInfo.PNext, layerLinkInfo)
	loaderCallback := walkDeviceChainInfo(pCreateInfo.PNext, loaderDataCallback)
	if linkInfo == nil || linkInfo.u == 0 || loaderCallback == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	link := (*layerDeviceLink)(unsafe.Pointer(linkInfo.u))
	if link.pfnNextGetInstanceProcAddr == 0 {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	nextGetInstanceProcAddr := link.pfnNextGetInstanceProcAddr
	nextGetDeviceProcAddr := link.pfnNextGetDeviceProcAddr
	linkInfo.u = uintptr(unsafe.Pointer(link.pNext))

	isd := instanceForPhysicalDevice(physicalDevice)
	enabled := NewExtensionSet(pCreateInfo.PpEnabledExtensionNames)
	for _, ext := range transitivelyRequiredDeviceExtensions(pCreateInfo.PpEnabledExtensionNames) {
		enabled.Add(ext)
	}

	if rawCallers.procAddr == nil || rawCallers.createDevice == nil {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}
	createDeviceAddr := rawCallers.procAddr(nextGetInstanceProcAddr, 0, nameVkCreateDevice)
	if createDeviceAddr == 0 {
		return resultOf(wsierr.New(wsierr.KindInitializationFailed, vk.ErrorInitializationFailed))
	}

	ret := rawCallers.createDevice(createDeviceAddr, physicalDevice, pCreateInfo, pAllocator, pDevice)
	if wsierr.IsError(ret) {
		return ret
	}

	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memProps)

	dsd := newDeviceSideData(*pDevice, physicalDevice, isd, enabled, memProps)
	if nextGetDeviceProcAddr != 0 {
		dsd.NextGetDeviceProcAddr = func(device vk.Device, name string) uintptr {
			return rawCallers.procAddr(nextGetDeviceProcAddr, uintptr(device), name)
		}
	}
	registry.addDevice(deviceDispatchKey(*pDevice), dsd)
	return vk.Success
}

// DestroyDevice mirrors DestroyInstance's ordering.
func DestroyDevice(device vk.Device, pAllocator *vk.AllocationCallbacks) {
	dsd := deviceFor(device)
	registry.removeDevice(deviceDispatchKey(device))
	if dsd == nil || dsd.NextGetDeviceProcAddr == nil || rawCallers.destroyDevice == nil {
		return
	}
	addr := dsd.NextGetDeviceProcAddr(device, nameVkDestroyDevice)
	if addr == 0 {
		return
	}
	rawCallers.destroyDevice(addr, device, pAllocator)
}

// ResolveNextInstanceProcAddr exposes an instance's stored
// NextGetInstanceProcAddr to cmd/vkwsilayer, which needs it to build the
// callNext closures the ICD-fallback paths in surface.go take (this
// layer answers surface queries itself, but still needs to forward
// unrecognised surfaces to the ICD).
func ResolveNextInstanceProcAddr(instance vk.Instance, name string) uintptr {
	isd := instanceFor(instance)
	if isd == nil || isd.NextGetInstanceProcAddr == nil {
		return 0
	}
	return isd.NextGetInstanceProcAddr(instance, name)
}

// ResolveNextInstanceProcAddrForPhysicalDevice mirrors
// ResolveNextInstanceProcAddr for the vkGetPhysicalDeviceSurface*KHR
// family, which only carries a VkPhysicalDevice.
func ResolveNextInstanceProcAddrForPhysicalDevice(gpu vk.PhysicalDevice, name string) uintptr {
	isd := instanceForPhysicalDevice(gpu)
	if isd == nil || isd.NextGetInstanceProcAddr == nil {
		return 0
	}
	return isd.NextGetInstanceProcAddr(isd.Instance, name)
}

// ResolveNextDeviceProcAddr exposes a device's stored
// NextGetDeviceProcAddr to cmd/vkwsilayer.
func ResolveNextDeviceProcAddr(device vk.Device, name string) uintptr {
	dsd := deviceFor(device)
	if dsd == nil || dsd.NextGetDeviceProcAddr == nil {
		return 0
	}
	return dsd.NextGetDeviceProcAddr(device, name)
}
