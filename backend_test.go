package wsi

import "testing"

func TestNewBackendForPlatformDispatch(t *testing.T) {
	ls := &LayerSurface{Platform: PlatformHeadless}
	cases := []Platform{PlatformHeadless, PlatformWayland, PlatformX11, PlatformDRM}
	for _, p := range cases {
		b, err := newBackendForPlatform(p, ls)
		if err != nil {
			t.Errorf("newBackendForPlatform(%v) error = %v, want nil", p, err)
		}
		if b == nil {
			t.Errorf("newBackendForPlatform(%v) returned nil backend", p)
		}
	}
}

func TestNewBackendForPlatformUnknown(t *testing.T) {
	ls := &LayerSurface{}
	if _, err := newBackendForPlatform(PlatformNone, ls); err == nil {
		t.Fatalf("newBackendForPlatform(PlatformNone) error = nil, want error")
	}
}
