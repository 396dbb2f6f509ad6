package wsi

import (
	"sync"

	"honnef.co/go/libwayland/client"
)

// wlConn is the thin wrapper this layer needs around
// honnef.co/go/libwayland's client connection: binding the compositor and
// zwp_linux_dmabuf_v1 globals, round-tripping for their format/modifier
// advertisements, and creating/attaching wl_buffer objects from dma-buf fds.
// newWlConn builds a separate wlConn on each call; wlConns are not shared
// or cached per wl_display.
type wlConn struct {
	mu           sync.Mutex
	display      *client.Display
	dmabuf       *client.ZwpLinuxDmabufV1
	explicitSync *client.ZwpLinuxExplicitSynchronizationV1
	formats      []drmFormatPair
	formatsMu    sync.Once
}

type drmFormatPair struct {
	fourcc   uint32
	modifier uint64
}

func newWlConn(display *client.Display) (*wlConn, error) {
	c := &wlConn{display: display}
	registry, err := display.GetRegistry()
	if err != nil {
		return nil, err
	}
	registry.SetGlobalHandler(func(name uint32, iface string, version uint32) {
		switch iface {
		case "zwp_linux_dmabuf_v1":
			c.dmabuf, _ = client.BindZwpLinuxDmabufV1(registry, name, version)
		case "zwp_linux_explicit_synchronization_v1":
			c.explicitSync, _ = client.BindZwpLinuxExplicitSynchronizationV1(registry, name, version)
		}
	})
	if err := display.Roundtrip(); err != nil {
		return nil, err
	}
	return c, nil
}

// supportedFormats round-trips once to collect every (fourcc, modifier)
// pair the compositor advertised through zwp_linux_dmabuf_v1's format and
// modifier events, grounded on
// original_source/wsi/wayland/surface.cpp's get_supported_formats_and_modifiers.
func (c *wlConn) supportedFormats() []drmFormatPair {
	c.formatsMu.Do(func() {
		if c.dmabuf == nil {
			return
		}
		c.dmabuf.SetModifierHandler(func(fourcc uint32, modHi, modLo uint32) {
			c.mu.Lock()
			c.formats = append(c.formats, drmFormatPair{fourcc: fourcc, modifier: uint64(modHi)<<32 | uint64(modLo)})
			c.mu.Unlock()
		})
		c.display.Roundtrip()
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]drmFormatPair, len(c.formats))
	copy(out, c.formats)
	return out
}

// surfaceSync binds zwp_linux_surface_synchronization_v1 for surface via
// the compositor's zwp_linux_explicit_synchronization_v1 global, or
// (nil, nil) if the compositor never advertised that global: callers
// fall back to presenting without an acquire fence, matching
// original_source/wsi/wayland/surface.cpp's handling of a missing
// explicit_sync_interface.
func (c *wlConn) surfaceSync(surface *client.WlSurface) (*client.ZwpLinuxSurfaceSynchronizationV1, error) {
	if c.explicitSync == nil {
		return nil, nil
	}
	return c.explicitSync.GetSynchronization(surface)
}

// createBuffer wraps a dma-buf allocation as a wl_buffer via
// zwp_linux_buffer_params_v1, one add() call per plane followed by
// create_immed(), and returns the resulting buffer. Release tracking is
// left to the caller.
func (c *wlConn) createBuffer(width, height int32, fourcc uint32, modifier uint64, planeFDs []int, strides, offsets []uint32) (*client.WlBuffer, error) {
	params, err := c.dmabuf.CreateParams()
	if err != nil {
		return nil, err
	}
	for i, fd := range planeFDs {
		if err := params.Add(fd, uint32(i), offsets[i], strides[i], uint32(modifier>>32), uint32(modifier&0xffffffff)); err != nil {
			return nil, err
		}
	}
	buf, err := params.CreateImmed(width, height, fourcc, 0)
	if err != nil {
		return nil, err
	}
	return buf, nil
}
