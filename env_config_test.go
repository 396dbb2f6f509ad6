package wsi

import "testing"

func TestLoadEnvConfigReadsDriDev(t *testing.T) {
	t.Setenv("WSI_DISPLAY_DRI_DEV", "/dev/dri/card1")
	t.Setenv("VULKAN_WSI_DEBUG_LEVEL", "2")

	c := LoadEnvConfig()
	if got := c.String("dri_dev", ""); got != "/dev/dri/card1" {
		t.Errorf("String(dri_dev) = %q, want /dev/dri/card1", got)
	}
	if got := c.Int("debug_level", -1); got != 2 {
		t.Errorf("Int(debug_level) = %d, want 2", got)
	}
}

func TestEnvConfigGetterDefaults(t *testing.T) {
	c := &EnvConfig{StringProps: map[string]string{}, IntProps: map[string]int{}}
	if got := c.String("dri_dev", "card0"); got != "card0" {
		t.Errorf("String() fallback = %q, want card0", got)
	}
	if got := c.Int("debug_level", 7); got != 7 {
		t.Errorf("Int() fallback = %d, want 7", got)
	}
}

func TestLoadEnvConfigIgnoresUnparsableDebugLevel(t *testing.T) {
	t.Setenv("VULKAN_WSI_DEBUG_LEVEL", "not-a-number")
	c := LoadEnvConfig()
	if got := c.Int("debug_level", 3); got != 3 {
		t.Errorf("Int(debug_level) = %d, want fallback 3 for unparsable env value", got)
	}
}
