package app

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework QuartzCore -framework Metal

#import <Cocoa/Cocoa.h>
#import <QuartzCore/CAMetalLayer.h>
#import <Metal/Metal.h>

static void* attachMetalLayer(void* nsWindow) {
    if (nsWindow == NULL) {
        return NULL;
    }
    NSWindow* window = (__bridge NSWindow*)nsWindow;
    NSView* view = [window contentView];
    if (view == nil) {
        return NULL;
    }
    [view setWantsLayer:YES];

    CAMetalLayer* layer = [CAMetalLayer layer];
    layer.device = MTLCreateSystemDefaultDevice();
    layer.pixelFormat = MTLPixelFormatBGRA8Unorm;
    layer.framebufferOnly = YES;
    layer.opaque = NO;
    layer.frame = view.bounds;
    layer.contentsScale = [window backingScaleFactor];
    [view setLayer:layer];
    return (__bridge void*)layer;
}
*/
import "C"

import (
	"errors"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// nativeHandle backs the content view with a CAMetalLayer and returns it.
func nativeHandle(win *glfw.Window) (display, window uintptr, err error) {
	ns := win.GetCocoaWindow()
	if ns == nil {
		return 0, 0, errors.New("app: window has no NSWindow")
	}
	layer := C.attachMetalLayer(ns)
	if layer == nil {
		return 0, 0, errors.New("app: cannot attach a CAMetalLayer")
	}
	return 0, uintptr(layer), nil
}
