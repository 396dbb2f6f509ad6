package wsi

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/vklayer/wsi/internal/wsilog"
)

// vkVersionToSemver converts a packed VK_MAKE_API_VERSION uint32 into a
// semver.Version (major.minor.patch; Vulkan's variant field has no semver
// equivalent and is dropped), so the layer can compare negotiated
// versions against an operator-supplied floor using real range syntax
// instead of raw integer comparisons.
func vkVersionToSemver(v uint32) *semver.Version {
	major := (v >> 22) & 0x7f
	minor := (v >> 12) & 0x3ff
	patch := v & 0xfff
	ver, err := semver.NewVersion(fmt.Sprintf("%d.%d.%d", major, minor, patch))
	if err != nil {
		return semver.MustParse("0.0.0")
	}
	return ver
}

// checkMinAPIVersion warns if the instance's negotiated API version falls
// below WSI_MIN_API_VERSION, a deployment-time floor some distributions
// set when they only want to support WSI extensions that became core at
// a given Vulkan version. Never rejects the instance: this layer has no
// basis to refuse work the loader and ICD already agreed to.
func checkMinAPIVersion(negotiated uint32, floor string) {
	if floor == "" {
		return
	}
	want, err := semver.NewVersion(floor)
	if err != nil {
		wsilog.Warnf("WSI_MIN_API_VERSION=%q is not a valid version, ignoring", floor)
		return
	}
	got := vkVersionToSemver(negotiated)
	if got.LessThan(want) {
		wsilog.Warnf("negotiated Vulkan API version %s is below WSI_MIN_API_VERSION %s", got, want)
	}
}
