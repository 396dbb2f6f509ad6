package wsi

import vk "github.com/vulkan-go/vulkan"

// ExtensionSet tracks which extension names an instance or device enabled
// and answers the proc-addr gating question from spec.md §4.1: "does the
// app's *original* enabled-extension set contain X". Adapted from the
// teacher's BaseInstanceExtensions/BaseDeviceExtensions (extensions_2.go),
// collapsed into one generic type since the layer only ever needs
// membership tests, not the teacher's wanted/required/actual bookkeeping.
type ExtensionSet struct {
	enabled map[string]bool
}

// NewExtensionSet builds a set from the pEnabledExtensionNames the app
// passed to vkCreateInstance/vkCreateDevice.
func NewExtensionSet(names []string) *ExtensionSet {
	s := &ExtensionSet{enabled: make(map[string]bool, len(names))}
	for _, n := range names {
		s.enabled[n] = true
	}
	return s
}

// Has reports whether name was in the app's enabled-extension list.
func (s *ExtensionSet) Has(name string) bool {
	if s == nil {
		return false
	}
	return s.enabled[name]
}

// Add augments the set, used when the layer transitively requires an
// extension the app didn't ask for (spec.md §4.1: "augment the extension
// list with any transitively-required extensions").
func (s *ExtensionSet) Add(name string) {
	if s.enabled == nil {
		s.enabled = make(map[string]bool)
	}
	s.enabled[name] = true
}

// Names returns the set in a form suitable for
// VkInstanceCreateInfo.PpEnabledExtensionNames / VkDeviceCreateInfo.
func (s *ExtensionSet) Names() []string {
	out := make([]string, 0, len(s.enabled))
	for n := range s.enabled {
		out = append(out, n)
	}
	return out
}

// availableInstanceExtensions lists extensions the next layer/ICD exposes,
// mirroring the teacher's InstanceExtensions() (extensions.go).
func availableInstanceExtensions() ([]string, error) {
	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	if ret != vk.Success {
		return nil, wrapResult(ret)
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	if ret != vk.Success {
		return nil, wrapResult(ret)
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// availableDeviceExtensions mirrors the teacher's DeviceExtensions().
func availableDeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	if ret != vk.Success {
		return nil, wrapResult(ret)
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)
	if ret != vk.Success {
		return nil, wrapResult(ret)
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// FindRequiredMemoryType scans physical-device memory properties for a type
// matching both deviceRequirements (the memoryTypeBits mask from
// VkMemoryRequirements / VkMemoryFdPropertiesKHR) and hostRequirements
// (the desired VkMemoryPropertyFlags). Kept near-verbatim from the
// teacher's extensions.go. The headless backend and the external memory
// binder do not call it; both take the lowest set bit via firstSetBit.
func FindRequiredMemoryType(props vk.PhysicalDeviceMemoryProperties,
	deviceRequirements uint32, hostRequirements vk.MemoryPropertyFlagBits) (uint32, bool) {

	props.Deref()
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		if deviceRequirements&(1<<i) != 0 {
			props.MemoryTypes[i].Deref()
			flags := props.MemoryTypes[i].PropertyFlags
			if flags&vk.MemoryPropertyFlags(hostRequirements) == vk.MemoryPropertyFlags(hostRequirements) {
				return i, true
			}
		}
	}
	return 0, false
}

// wsiPlatformExtensions are the surface-creation extensions that imply a
// given platform is in play, used by CreateInstance (loader.go) to decide
// which WSI platforms the app wants (spec.md §4.1).
var wsiPlatformExtensions = map[string]Platform{
	"VK_EXT_headless_surface": PlatformHeadless,
	"VK_KHR_wayland_surface":  PlatformWayland,
	"VK_KHR_xcb_surface":      PlatformX11,
	"VK_KHR_xlib_surface":     PlatformX11,
	"VK_KHR_display":          PlatformDRM,
}

// Platform is a WSI platform the layer can back a surface with.
type Platform int

const (
	PlatformNone Platform = iota
	PlatformHeadless
	PlatformWayland
	PlatformX11
	PlatformDRM
)

func (p Platform) String() string {
	switch p {
	case PlatformHeadless:
		return "headless"
	case PlatformWayland:
		return "wayland"
	case PlatformX11:
		return "x11"
	case PlatformDRM:
		return "drm"
	default:
		return "none"
	}
}
