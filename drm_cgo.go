//go:build linux

package wsi

// This file is the one deliberate cgo boundary for the DRM/KMS backend:
// libdrm has no usable cgo-free Go binding in the dependency set this layer
// draws from, so framebuffer and page-flip calls go through cgo directly
// rather than reimplementing the ioctl protocol. Kept minimal: open the
// given DRI node, pick the first connected connector's first mode and its
// current encoder's CRTC once, then add/remove/flip
// framebuffers built from already-allocated dma-buf fds.

/*
#cgo pkg-config: libdrm
#include <stdlib.h>
#include <xf86drm.h>
#include <xf86drmMode.h>

static int drm_find_connector(int fd, uint32_t *connector_id, uint32_t *encoder_id, drmModeModeInfo *mode) {
	drmModeRes *res = drmModeGetResources(fd);
	if (!res) {
		return -1;
	}
	int found = -1;
	for (int i = 0; i < res->count_connectors; i++) {
		drmModeConnector *conn = drmModeGetConnector(fd, res->connectors[i]);
		if (!conn) {
			continue;
		}
		if (conn->connection == DRM_MODE_CONNECTED && conn->count_modes > 0) {
			*connector_id = conn->connector_id;
			*encoder_id = conn->encoder_id;
			*mode = conn->modes[0];
			found = 0;
			drmModeFreeConnector(conn);
			break;
		}
		drmModeFreeConnector(conn);
	}
	drmModeFreeResources(res);
	return found;
}

static int drm_find_crtc(int fd, uint32_t encoder_id, uint32_t *crtc_id) {
	drmModeEncoder *enc = drmModeGetEncoder(fd, encoder_id);
	if (!enc) {
		return -1;
	}
	*crtc_id = enc->crtc_id;
	drmModeFreeEncoder(enc);
	return 0;
}

static int drm_add_fb(int fd, uint32_t width, uint32_t height, uint32_t fourcc,
                       uint32_t handles[4], uint32_t pitches[4], uint32_t offsets[4],
                       uint64_t modifier, uint32_t *fb_id) {
	uint64_t modifiers[4] = { modifier, modifier, modifier, modifier };
	uint32_t flags = modifier ? DRM_MODE_FB_MODIFIERS : 0;
	return drmModeAddFB2WithModifiers(fd, width, height, fourcc, handles, pitches, offsets, modifiers, fb_id, flags);
}

static int drm_prime_fd_to_handle(int fd, int prime_fd, uint32_t *handle) {
	return drmPrimeFDToHandle(fd, prime_fd, handle);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

type drmDevice struct {
	fd          int
	connectorID uint32
	crtcID      uint32
	mode        C.drmModeModeInfo
}

func openDRMDevice(path string) (*drmDevice, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("wsi: open %s: %w", path, err)
	}

	var connectorID, encoderID, crtcID C.uint32_t
	var mode C.drmModeModeInfo
	if C.drm_find_connector(C.int(fd), &connectorID, &encoderID, &mode) != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("wsi: %s: no connected connector", path)
	}
	if C.drm_find_crtc(C.int(fd), encoderID, &crtcID) != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("wsi: %s: no CRTC for encoder", path)
	}

	return &drmDevice{fd: fd, connectorID: uint32(connectorID), crtcID: uint32(crtcID), mode: mode}, nil
}

func (d *drmDevice) close() {
	unix.Close(d.fd)
}

func (d *drmDevice) width() uint32  { return uint32(d.mode.hdisplay) }
func (d *drmDevice) height() uint32 { return uint32(d.mode.vdisplay) }

// addFramebuffer imports each plane fd as a GEM handle via
// drmPrimeFDToHandle, then calls drmModeAddFB2WithModifiers.
func (d *drmDevice) addFramebuffer(width, height, fourcc uint32, fds []int, strides, offsets []uint32, modifier uint64) (uint32, error) {
	var handles, pitches, offs [4]C.uint32_t
	for i := range fds {
		var handle C.uint32_t
		if C.drm_prime_fd_to_handle(C.int(d.fd), C.int(fds[i]), &handle) != 0 {
			return 0, fmt.Errorf("wsi: drmPrimeFDToHandle failed for plane %d", i)
		}
		handles[i] = handle
		pitches[i] = C.uint32_t(strides[i])
		offs[i] = C.uint32_t(offsets[i])
	}

	var fbID C.uint32_t
	ret := C.drm_add_fb(C.int(d.fd), C.uint32_t(width), C.uint32_t(height), C.uint32_t(fourcc),
		(*C.uint32_t)(unsafe.Pointer(&handles[0])), (*C.uint32_t)(unsafe.Pointer(&pitches[0])),
		(*C.uint32_t)(unsafe.Pointer(&offs[0])), C.uint64_t(modifier), &fbID)
	if ret != 0 {
		return 0, fmt.Errorf("wsi: drmModeAddFB2WithModifiers failed: %d", ret)
	}
	return uint32(fbID), nil
}

func (d *drmDevice) removeFramebuffer(fbID uint32) {
	C.drmModeRmFB(C.int(d.fd), C.uint32_t(fbID))
}

// pageFlip queues a KMS page flip that requests a completion event and
// returns without waiting for it; waitPageFlipEvent reads that event back
// from the fd.
func (d *drmDevice) pageFlip(fbID uint32, userData unsafe.Pointer) error {
	ret := C.drmModePageFlip(C.int(d.fd), C.uint32_t(d.crtcID), C.uint32_t(fbID), C.DRM_MODE_PAGE_FLIP_EVENT, userData)
	if ret != 0 {
		return fmt.Errorf("wsi: drmModePageFlip failed: %d", ret)
	}
	return nil
}

func (d *drmDevice) setCrtc(fbID uint32) error {
	ret := C.drmModeSetCrtc(C.int(d.fd), C.uint32_t(d.crtcID), C.uint32_t(fbID), 0, 0,
		(*C.uint32_t)(unsafe.Pointer(&d.connectorID)), 1, &d.mode)
	if ret != 0 {
		return fmt.Errorf("wsi: drmModeSetCrtc failed: %d", ret)
	}
	return nil
}

// waitPageFlipEvent reads and discards one DRM event from the fd, the
// minimal subset of drmHandleEvent's job this layer needs: it only cares
// that a flip completed, not which one.
func (d *drmDevice) waitPageFlipEvent() error {
	buf := make([]byte, 1024)
	_, err := unix.Read(d.fd, buf)
	return err
}
