package wsi

import (
	vk "github.com/vulkan-go/vulkan"
	"github.com/vklayer/wsi/internal/wsierr"
	"github.com/vklayer/wsi/internal/wsilog"
)

// wrapResult classifies a failing vk.Result into the layer's error kind
// vocabulary. Thin convenience wrapper so call sites in the wsi package
// read "return wrapResult(ret)" instead of spelling out wsierr each time,
// mirroring how the teacher's isError/newError pair kept errors.go's API
// short at every call site (teacher errors.go).
func wrapResult(ret vk.Result) error {
	if !wsierr.IsError(ret) {
		return nil
	}
	return wsierr.FromResult(ret)
}

// resultOf is the converse: turn a layer error back into the vk.Result an
// exported entrypoint should return.
func resultOf(err error) vk.Result {
	return wsierr.Result(err)
}

// tryLog logs err at error level and returns it unchanged, letting call
// sites write "return tryLog(err)" instead of duplicating a log call at
// every failure branch. Generalises the teacher's orPanic/checkErr, which
// is only viable in the teacher's sample-app context, into something safe
// to run inside an interposition layer that must never panic across the
// app/ICD boundary.
func tryLog(err error) error {
	if err != nil {
		wsilog.Errorf("%v", err)
	}
	return err
}
