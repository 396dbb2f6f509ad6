package wsi

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vklayer/wsi/internal/wsilog"
)

// driDeviceWaitTimeout bounds how long initPlatform will wait for a DRI
// node that doesn't exist yet, for containers where the compositor and
// the Vulkan client start concurrently and /dev/dri/cardN appears a beat
// after the layer does.
const driDeviceWaitTimeout = 2 * time.Second

// waitForDRIDevice returns immediately if path already exists, otherwise
// watches its parent directory for a create event naming it, up to
// driDeviceWaitTimeout. Grounded on the directory-watch pattern the pack's
// file picker uses (cogentcore-core's filepicker.go) around the same
// library, adapted from "watch for UI-relevant changes" to "watch for a
// device node to be provisioned".
func waitForDRIDevice(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		wsilog.Warnf("DRM backend: fsnotify unavailable (%v), skipping DRI device wait", err)
		return nil
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return nil
	}

	deadline := time.After(driDeviceWaitTimeout)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 && filepath.Clean(ev.Name) == filepath.Clean(path) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			wsilog.Warnf("DRM backend: fsnotify watch error: %v", err)
		case <-deadline:
			wsilog.Warnf("DRM backend: %s did not appear within %s", path, driDeviceWaitTimeout)
			return nil
		}
	}
}
