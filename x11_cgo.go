//go:build linux

package wsi

// The X11 backend's one cgo boundary: XCB's DRI3 extension is how a
// dma-buf fd becomes an X11 pixmap, and there is no pure-Go XCB client in
// the dependency set this layer draws from.

/*
#cgo pkg-config: xcb xcb-dri3 xcb-present
#include <stdlib.h>
#include <xcb/xcb.h>
#include <xcb/dri3.h>
#include <xcb/present.h>

static xcb_connection_t *x11_connect(void) {
	return xcb_connect(NULL, NULL);
}

static uint32_t x11_gen_id(xcb_connection_t *c) {
	return xcb_generate_id(c);
}

static void x11_dri3_pixmap_from_fd(xcb_connection_t *c, uint32_t pixmap, uint32_t window,
                                     int fd, uint16_t width, uint16_t height, uint16_t stride,
                                     uint8_t depth, uint8_t bpp) {
	xcb_dri3_pixmap_from_buffer(c, pixmap, window, 0, width, height, stride, depth, bpp, fd);
}

static void x11_present_pixmap(xcb_connection_t *c, uint32_t window, uint32_t pixmap, uint32_t serial) {
	xcb_present_pixmap(c, window, pixmap, serial, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, NULL);
}

static int x11_dri3_version_ok(xcb_connection_t *c) {
	xcb_dri3_query_version_cookie_t cookie = xcb_dri3_query_version_unchecked(c, 1, 2);
	xcb_dri3_query_version_reply_t *reply = xcb_dri3_query_version_reply(c, cookie, NULL);
	int ok = reply && (reply->major_version > 1 || (reply->major_version == 1 && reply->minor_version >= 2));
	free(reply);
	return ok;
}

static int x11_present_version_ok(xcb_connection_t *c) {
	xcb_present_query_version_cookie_t cookie = xcb_present_query_version_unchecked(c, 1, 2);
	xcb_present_query_version_reply_t *reply = xcb_present_query_version_reply(c, cookie, NULL);
	int ok = reply && (reply->major_version > 1 || (reply->major_version == 1 && reply->minor_version >= 2));
	free(reply);
	return ok;
}

static xcb_special_event_t *x11_register_present_events(xcb_connection_t *c, uint32_t window) {
	uint32_t eid = xcb_generate_id(c);
	xcb_special_event_t *se = xcb_register_for_special_xge(c, &xcb_present_id, eid, NULL);
	xcb_present_select_input(c, eid, window,
		XCB_PRESENT_EVENT_MASK_IDLE_NOTIFY | XCB_PRESENT_EVENT_MASK_COMPLETE_NOTIFY |
			XCB_PRESENT_EVENT_MASK_CONFIGURE_NOTIFY);
	return se;
}

typedef struct {
	int has_event;
	int evtype;
	uint32_t pixmap;
	uint32_t pixmap_flags;
	uint16_t width;
	uint16_t height;
} x11_present_event_t;

static int x11_poll_present_event(xcb_connection_t *c, xcb_special_event_t *se, x11_present_event_t *out) {
	xcb_generic_event_t *event = xcb_poll_for_special_event(c, se);
	if (!event) {
		out->has_event = 0;
		return 0;
	}
	xcb_present_generic_event_t *pe = (xcb_present_generic_event_t *)event;
	out->has_event = 1;
	out->evtype = pe->evtype;
	if (pe->evtype == XCB_PRESENT_EVENT_IDLE_NOTIFY) {
		xcb_present_idle_notify_event_t *idle = (xcb_present_idle_notify_event_t *)event;
		out->pixmap = idle->pixmap;
	} else if (pe->evtype == XCB_PRESENT_EVENT_CONFIGURE_NOTIFY) {
		xcb_present_configure_notify_event_t *cfg = (xcb_present_configure_notify_event_t *)event;
		out->pixmap_flags = cfg->pixmap_flags;
		out->width = cfg->width;
		out->height = cfg->height;
	}
	free(event);
	return 1;
}

static void x11_get_geometry(xcb_connection_t *c, uint32_t window, uint16_t *width, uint16_t *height, uint8_t *depth) {
	xcb_get_geometry_cookie_t cookie = xcb_get_geometry(c, window);
	xcb_get_geometry_reply_t *reply = xcb_get_geometry_reply(c, cookie, NULL);
	if (reply) {
		*width = reply->width;
		*height = reply->height;
		*depth = reply->depth;
		free(reply);
	}
}

static void x11_put_image(xcb_connection_t *c, uint32_t window, uint32_t gc, uint16_t width, uint16_t height,
                           int16_t dst_y, uint8_t depth, uint32_t data_len, const uint8_t *data) {
	xcb_put_image(c, XCB_IMAGE_FORMAT_Z_PIXMAP, window, gc, width, height, 0, dst_y, 0, depth, data_len, data);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

type x11Connection struct {
	conn    *C.xcb_connection_t
	special *C.xcb_special_event_t
}

// x11PresentEvent mirrors xcb_present_generic_event_t's union members this
// layer cares about, grounded on
// original_source/wsi/x11/swapchain.cpp's get_free_buffer switch.
type x11PresentEvent struct {
	evtype      int
	pixmap      uint32
	pixmapFlags uint32
	width       uint16
	height      uint16
}

const (
	x11PresentEventConfigureNotify = int(C.XCB_PRESENT_EVENT_CONFIGURE_NOTIFY)
	x11PresentEventIdleNotify      = int(C.XCB_PRESENT_EVENT_IDLE_NOTIFY)
)

func connectX11() (*x11Connection, error) {
	c := C.x11_connect()
	if c == nil {
		return nil, fmt.Errorf("wsi: xcb_connect failed")
	}
	return &x11Connection{conn: c}, nil
}

func (c *x11Connection) close() {
	C.xcb_disconnect(c.conn)
}

// pixmapFromFd hands ownership of fd to the X server via DRI3
// PixmapFromBuffer, grounded on XCB's dri3 extension (the original's
// x11/swapchain.cpp equivalent, not reproduced verbatim in
// original_source since it ships as a system XCB header, not layer code).
func (c *x11Connection) pixmapFromFd(window uint32, fd int, width, height uint16, stride uint32, depth, bpp uint8) uint32 {
	pixmap := uint32(C.x11_gen_id(c.conn))
	C.x11_dri3_pixmap_from_fd(c.conn, C.uint32_t(pixmap), C.uint32_t(window), C.int(fd),
		C.uint16_t(width), C.uint16_t(height), C.uint16_t(stride), C.uchar(depth), C.uchar(bpp))
	return pixmap
}

func (c *x11Connection) freePixmap(pixmap uint32) {
	C.xcb_free_pixmap(c.conn, C.uint32_t(pixmap))
}

func (c *x11Connection) presentPixmap(window, pixmap uint32, serial uint32) {
	C.x11_present_pixmap(c.conn, C.uint32_t(window), C.uint32_t(pixmap), C.uint32_t(serial))
	C.xcb_flush(c.conn)
}

func (c *x11Connection) createGC(window uint32) uint32 {
	gc := uint32(C.x11_gen_id(c.conn))
	C.xcb_create_gc(c.conn, C.xcb_gcontext_t(gc), C.xcb_drawable_t(window), 0, nil)
	return gc
}

func x11WindowFromPointer(p unsafe.Pointer) uint32 {
	return uint32(uintptr(p))
}

// dri3AndPresentVersionOK queries both extensions' versions, grounded on
// original_source/wsi/x11/swapchain.cpp's init_platform version checks
// (DRI3 >= 1.2, Present >= 1.2).
func (c *x11Connection) dri3AndPresentVersionOK() (bool, bool) {
	return C.x11_dri3_version_ok(c.conn) != 0, C.x11_present_version_ok(c.conn) != 0
}

// registerPresentEvents opens the special-event queue IDLE_NOTIFY,
// COMPLETE_NOTIFY and CONFIGURE_NOTIFY are delivered on, grounded on
// original_source/wsi/x11/swapchain.cpp's xcb_register_for_special_xge
// call.
func (c *x11Connection) registerPresentEvents(window uint32) {
	c.special = C.x11_register_present_events(c.conn, C.uint32_t(window))
}

// pollPresentEvent drains one pending Present-extension event from the
// special-event queue without blocking, or reports none pending.
func (c *x11Connection) pollPresentEvent() (x11PresentEvent, bool) {
	if c.special == nil {
		return x11PresentEvent{}, false
	}
	var out C.x11_present_event_t
	if C.x11_poll_present_event(c.conn, c.special, &out) == 0 {
		return x11PresentEvent{}, false
	}
	return x11PresentEvent{
		evtype:      int(out.evtype),
		pixmap:      uint32(out.pixmap),
		pixmapFlags: uint32(out.pixmap_flags),
		width:       uint16(out.width),
		height:      uint16(out.height),
	}, true
}

// windowGeometry reads the window's current size and depth, grounded on
// original_source/wsi/x11/surface.cpp's getWindowSizeAndDepth.
func (c *x11Connection) windowGeometry(window uint32) (width, height uint16, depth uint8) {
	C.x11_get_geometry(c.conn, C.uint32_t(window), (*C.uint16_t)(&width), (*C.uint16_t)(&height), (*C.uint8_t)(&depth))
	return width, height, depth
}

// putImage uploads pix as a Z_PIXMAP image at (0, dstY), the software WSI
// fallback path used when DRI3/Present are unavailable, grounded on
// original_source/wsi/x11/swapchain.cpp's present_image sw_wsi branch.
func (c *x11Connection) putImage(window, gc uint32, width, height uint16, dstY int16, depth uint8, pix []byte) {
	if len(pix) == 0 {
		return
	}
	C.x11_put_image(c.conn, C.uint32_t(window), C.uint32_t(gc), C.uint16_t(width), C.uint16_t(height),
		C.int16_t(dstY), C.uchar(depth), C.uint32_t(len(pix)), (*C.uint8_t)(unsafe.Pointer(&pix[0])))
}
