package wsi

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestWrapResultSuccessIsNil(t *testing.T) {
	if err := wrapResult(vk.Success); err != nil {
		t.Fatalf("wrapResult(Success) = %v, want nil", err)
	}
}

func TestWrapResultClassifiesFailure(t *testing.T) {
	err := wrapResult(vk.ErrorSurfaceLostKhr)
	if err == nil {
		t.Fatalf("wrapResult(ErrorSurfaceLostKhr) = nil, want error")
	}
}

func TestResultOfRoundTrip(t *testing.T) {
	err := wrapResult(vk.ErrorOutOfDate)
	if got := resultOf(err); got != vk.ErrorOutOfDate {
		t.Fatalf("resultOf(wrapResult(ErrorOutOfDate)) = %v, want ErrorOutOfDate", got)
	}
}

func TestResultOfNilIsSuccess(t *testing.T) {
	if got := resultOf(nil); got != vk.Success {
		t.Fatalf("resultOf(nil) = %v, want Success", got)
	}
}

func TestTryLogPassesThroughError(t *testing.T) {
	err := wrapResult(vk.ErrorOutOfHostMemory)
	if got := tryLog(err); got != err {
		t.Fatalf("tryLog() = %v, want the same error value back", got)
	}
}

func TestTryLogPassesThroughNil(t *testing.T) {
	if got := tryLog(nil); got != nil {
		t.Fatalf("tryLog(nil) = %v, want nil", got)
	}
}
