package wsi

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWaitForDRIDeviceReturnsImmediatelyWhenPresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card0")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := waitForDRIDevice(path); err != nil {
		t.Fatalf("waitForDRIDevice(existing path) = %v, want nil", err)
	}
}
