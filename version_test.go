package wsi

import "testing"

func TestVkVersionToSemver(t *testing.T) {
	v := apiVersion1_2 // 1<<22 | 2<<12
	got := vkVersionToSemver(v)
	if got.Major() != 1 || got.Minor() != 2 || got.Patch() != 0 {
		t.Fatalf("vkVersionToSemver(apiVersion1_2) = %s, want 1.2.0", got)
	}
}

func TestCheckMinAPIVersionNoFloorIsNoop(t *testing.T) {
	checkMinAPIVersion(apiVersion1_0, "")
}

func TestCheckMinAPIVersionInvalidFloorIsNoop(t *testing.T) {
	checkMinAPIVersion(apiVersion1_0, "not-a-version")
}

func TestCheckMinAPIVersionBelowFloorDoesNotPanic(t *testing.T) {
	checkMinAPIVersion(apiVersion1_0, "1.2.0")
}

func TestCheckMinAPIVersionAboveFloorDoesNotPanic(t *testing.T) {
	checkMinAPIVersion(apiVersion1_2, "1.0.0")
}
