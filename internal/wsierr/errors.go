// Package wsierr wraps vk.Result into the error kinds the WSI layer
// surfaces to applications (spec.md §7).
package wsierr

import (
	"fmt"
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

// Kind is one of the error kinds the layer surfaces to the app.
type Kind int

const (
	KindNone Kind = iota
	KindInitializationFailed
	KindOutOfHostMemory
	KindOutOfDeviceMemory
	KindSurfaceLost
	KindOutOfDate
	KindSuboptimal
	KindTimeout
	KindNotReady
	KindFormatNotSupported
	KindExtensionNotPresent
)

func (k Kind) String() string {
	switch k {
	case KindInitializationFailed:
		return "INITIALIZATION_FAILED"
	case KindOutOfHostMemory:
		return "OUT_OF_HOST_MEMORY"
	case KindOutOfDeviceMemory:
		return "OUT_OF_DEVICE_MEMORY"
	case KindSurfaceLost:
		return "SURFACE_LOST_KHR"
	case KindOutOfDate:
		return "OUT_OF_DATE_KHR"
	case KindSuboptimal:
		return "SUBOPTIMAL_KHR"
	case KindTimeout:
		return "TIMEOUT"
	case KindNotReady:
		return "NOT_READY"
	case KindFormatNotSupported:
		return "FORMAT_NOT_SUPPORTED"
	case KindExtensionNotPresent:
		return "EXTENSION_NOT_PRESENT"
	default:
		return "NONE"
	}
}

// VkError is the error value threaded through the layer's internal call
// chains and stashed in a swapchain's error-state cell.
type VkError struct {
	Kind   Kind
	Result vk.Result
	Cause  error
	frame  string
}

func (e *VkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("wsi: %s (vk.Result=%d) at %s: %v", e.Kind, e.Result, e.frame, e.Cause)
	}
	return fmt.Sprintf("wsi: %s (vk.Result=%d) at %s", e.Kind, e.Result, e.frame)
}

func (e *VkError) Unwrap() error { return e.Cause }

func caller() string {
	pc, _, _, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}

// New builds a VkError of the given kind from a vk.Result.
func New(kind Kind, ret vk.Result) *VkError {
	return &VkError{Kind: kind, Result: ret, frame: caller()}
}

// Wrap annotates an existing error with a WSI error kind.
func Wrap(kind Kind, cause error) *VkError {
	return &VkError{Kind: kind, Cause: cause, frame: caller()}
}

// FromResult classifies a raw vk.Result into the matching WSI error kind.
// Used on the result of any Vulkan call the layer itself issues.
func FromResult(ret vk.Result) *VkError {
	switch ret {
	case vk.Success:
		return nil
	case vk.ErrorOutOfHostMemory:
		return New(KindOutOfHostMemory, ret)
	case vk.ErrorOutOfDeviceMemory:
		return New(KindOutOfDeviceMemory, ret)
	case vk.ErrorSurfaceLost:
		return New(KindSurfaceLost, ret)
	case vk.ErrorOutOfDate:
		return New(KindOutOfDate, ret)
	case vk.Suboptimal:
		return New(KindSuboptimal, ret)
	case vk.Timeout:
		return New(KindTimeout, ret)
	case vk.NotReady:
		return New(KindNotReady, ret)
	case vk.ErrorFormatNotSupported:
		return New(KindFormatNotSupported, ret)
	case vk.ErrorExtensionNotPresent:
		return New(KindExtensionNotPresent, ret)
	case vk.ErrorInitializationFailed:
		return New(KindInitializationFailed, ret)
	default:
		return New(KindInitializationFailed, ret)
	}
}

// toResult maps a Kind back to the vk.Result the layer should return from
// the entrypoint currently executing; a non-zero Result field wins.
func (e *VkError) toResult() vk.Result {
	if e == nil {
		return vk.Success
	}
	if e.Result != 0 {
		return e.Result
	}
	switch e.Kind {
	case KindOutOfHostMemory:
		return vk.ErrorOutOfHostMemory
	case KindOutOfDeviceMemory:
		return vk.ErrorOutOfDeviceMemory
	case KindSurfaceLost:
		return vk.ErrorSurfaceLost
	case KindOutOfDate:
		return vk.ErrorOutOfDate
	case KindSuboptimal:
		return vk.Suboptimal
	case KindTimeout:
		return vk.Timeout
	case KindNotReady:
		return vk.NotReady
	case KindFormatNotSupported:
		return vk.ErrorFormatNotSupported
	case KindExtensionNotPresent:
		return vk.ErrorExtensionNotPresent
	default:
		return vk.ErrorInitializationFailed
	}
}

// Result is the exported accessor mirroring the teacher's isError/newError
// pair (errors.go in the teacher repo), generalised to typed kinds.
func Result(err error) vk.Result {
	if err == nil {
		return vk.Success
	}
	if ve, ok := err.(*VkError); ok {
		return ve.toResult()
	}
	return vk.ErrorUnknown
}

// IsError mirrors the teacher's isError helper.
func IsError(ret vk.Result) bool {
	return ret != vk.Success
}
