// Package mirror renders a uniform-driven overlay above a live duplicate of
// the desktop.
//
// # Overview
//
// A [Pipeline] drives two graphics contexts. The legacy context duplicates
// the monitor under the window and copies each new desktop image into a
// texture it shares, through an OS handle, with the primary context. The
// primary context samples that texture on a full-screen quad, folds it
// around the overlay triangle described by a [Uniform], and presents the
// result to a double-buffered, premultiplied-alpha swap chain.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/mirror"
//	    _ "github.com/gogpu/mirror/backend/native"
//	    _ "github.com/gogpu/mirror/backend/screen"
//	)
//
//	p, err := mirror.New(window, 1920, 1080)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	p.OnUpdate(mirror.Uniform{ApexX: 960, ApexY: 540, SideLength: 300})
//	for range ticker.C {
//	    if err := p.OnRender(); err != nil {
//	        return err
//	    }
//	}
//
// # Frame
//
// Each OnRender waits for the GPU to go idle, polls the duplication with a
// zero timeout, rebuilds the shared texture when the desktop size changed,
// records one command list against the current back buffer, submits it and
// presents. At most one frame is in flight.
//
// # Threading
//
// Pipeline methods must be called from a single goroutine, usually the
// one running the window's event loop.
package mirror

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"
)
