package wsi

import (
	"os"
	"strconv"
)

// EnvConfig is this layer's property bag, generalising the teacher's Usage
// (usage.go: Name plus String_props/Int_props/Bool_props/Float_props maps)
// from an arbitrary named-property tree into the fixed set of environment
// variables the layer itself reads: WSI_DISPLAY_DRI_DEV (DRM backend's
// device node override) and VULKAN_WSI_DEBUG_LEVEL (wsilog's level, read
// directly by that package). Kept as a small struct rather than a
// goroutine-wide global so tests can construct one pointed at a fake
// environment.
type EnvConfig struct {
	StringProps map[string]string
	IntProps    map[string]int
	BoolProps   map[string]bool
}

// LoadEnvConfig reads the layer's environment variables once at startup,
// the same "read into named props" shape as NewUsage.
func LoadEnvConfig() *EnvConfig {
	c := &EnvConfig{
		StringProps: make(map[string]string),
		IntProps:    make(map[string]int),
		BoolProps:   make(map[string]bool),
	}
	if v, ok := os.LookupEnv("WSI_DISPLAY_DRI_DEV"); ok {
		c.StringProps["dri_dev"] = v
	}
	if v, ok := os.LookupEnv("VULKAN_WSI_DEBUG_LEVEL"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.IntProps["debug_level"] = n
		}
	}
	return c
}

// String returns a string-valued property, or def if unset.
func (c *EnvConfig) String(key, def string) string {
	if v, ok := c.StringProps[key]; ok {
		return v
	}
	return def
}

// Int returns an int-valued property, or def if unset.
func (c *EnvConfig) Int(key string, def int) int {
	if v, ok := c.IntProps[key]; ok {
		return v
	}
	return def
}
