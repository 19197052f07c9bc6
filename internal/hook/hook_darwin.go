//go:build darwin

package hook

/*
#cgo darwin CFLAGS: -x objective-c -fmodules -fobjc-arc
#cgo darwin LDFLAGS: -framework CoreGraphics -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>

extern CGEventRef dwHandleTapEvent(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *userInfo);

static CFRunLoopSourceRef dwStartEventTap(uintptr_t handle, CGEventMask mask, CFMachPortRef *tapOut) {
	CFMachPortRef tap = CGEventTapCreate(kCGSessionEventTap,
	                                     kCGHeadInsertEventTap,
	                                     kCGEventTapOptionListenOnly,
	                                     mask,
	                                     dwHandleTapEvent,
	                                     (void *)handle);
	if (tap == NULL) {
		return NULL;
	}
	CGEventTapEnable(tap, true);
	CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
	*tapOut = tap;
	return source;
}

static CFRunLoopRef dwCurrentRunLoop(void) {
	return CFRunLoopGetCurrent();
}

static CGEventMask dwEventMaskBit(CGEventType type) {
	return ((CGEventMask)1) << type;
}

static void dwAddSourceToRunLoop(CFRunLoopRef loop, CFRunLoopSourceRef source) {
	CFRunLoopAddSource(loop, source, kCFRunLoopCommonModes);
}

static void dwRunCurrentRunLoop(void) {
	CFRunLoopRun();
}

static void dwStopRunLoop(CFRunLoopRef loop) {
	CFRunLoopStop(loop);
}

static double dwEventGetX(CGEventRef event) {
	CGPoint point = CGEventGetLocation(event);
	return point.x;
}

static double dwEventGetY(CGEventRef event) {
	CGPoint point = CGEventGetLocation(event);
	return point.y;
}

static int64_t dwEventGetKeycode(CGEventRef event) {
	return CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
}

static uint64_t dwEventGetFlags(CGEventRef event) {
	return (uint64_t)CGEventGetFlags(event);
}

static int64_t dwEventGetScrollDeltaY(CGEventRef event) {
	return CGEventGetIntegerValueField(event, kCGScrollWheelEventDeltaAxis1);
}

static int64_t dwEventGetScrollDeltaX(CGEventRef event) {
	return CGEventGetIntegerValueField(event, kCGScrollWheelEventDeltaAxis2);
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/cgo"
	"strings"
	"sync"
	"unsafe"
)

// darwinTap runs a listen-only CGEvent tap on a dedicated run loop.
type darwinTap struct {
	mask C.CGEventMask
}

// NewPointer returns the pointer tap covering moves, clicks, and scrolls.
func NewPointer() (Hook, error) {
	mask := C.dwEventMaskBit(C.kCGEventMouseMoved) |
		C.dwEventMaskBit(C.kCGEventLeftMouseDown) |
		C.dwEventMaskBit(C.kCGEventLeftMouseUp) |
		C.dwEventMaskBit(C.kCGEventRightMouseDown) |
		C.dwEventMaskBit(C.kCGEventRightMouseUp) |
		C.dwEventMaskBit(C.kCGEventOtherMouseDown) |
		C.dwEventMaskBit(C.kCGEventOtherMouseUp) |
		C.dwEventMaskBit(C.kCGEventScrollWheel)
	return &darwinTap{mask: mask}, nil
}

// NewKeyboard returns the keyboard tap covering key down/up.
func NewKeyboard() (Hook, error) {
	mask := C.dwEventMaskBit(C.kCGEventKeyDown) |
		C.dwEventMaskBit(C.kCGEventKeyUp)
	return &darwinTap{mask: mask}, nil
}

type tapStream struct {
	ev       Events
	stopLoop func()
}

func (t *darwinTap) Run(ctx context.Context, ev Events) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// The run loop must stay on one OS thread for its lifetime.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	stream := &tapStream{ev: ev}
	handle := cgo.NewHandle(stream)
	defer handle.Delete()

	var tap C.CFMachPortRef
	source := C.dwStartEventTap(C.uintptr_t(handle), t.mask, &tap)
	if source == nil {
		return errors.New("failed to create CGEvent tap")
	}
	defer C.CFRelease(C.CFTypeRef(source))
	defer C.CFRelease(C.CFTypeRef(tap))

	loop := C.dwCurrentRunLoop()
	stopOnce := sync.Once{}
	stream.stopLoop = func() {
		stopOnce.Do(func() {
			C.dwStopRunLoop(loop)
		})
	}
	C.dwAddSourceToRunLoop(loop, source)

	watcherDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		stream.stopLoop()
		close(watcherDone)
	}()

	C.dwRunCurrentRunLoop()
	stream.stopLoop()
	<-watcherDone
	return ctx.Err()
}

//export dwHandleTapEvent
func dwHandleTapEvent(_ C.CGEventTapProxy, eventType C.CGEventType, cgEvent C.CGEventRef, userInfo unsafe.Pointer) C.CGEventRef {
	handle := cgo.Handle(uintptr(userInfo))
	stream, ok := handle.Value().(*tapStream)
	if !ok {
		return cgEvent
	}

	x := float64(C.dwEventGetX(cgEvent))
	y := float64(C.dwEventGetY(cgEvent))

	switch eventType {
	case C.kCGEventMouseMoved:
		if stream.ev.Move != nil {
			stream.ev.Move(x, y)
		}
	case C.kCGEventLeftMouseDown:
		stream.click(x, y, "left", true)
	case C.kCGEventLeftMouseUp:
		stream.click(x, y, "left", false)
	case C.kCGEventRightMouseDown:
		stream.click(x, y, "right", true)
	case C.kCGEventRightMouseUp:
		stream.click(x, y, "right", false)
	case C.kCGEventOtherMouseDown:
		stream.click(x, y, "other", true)
	case C.kCGEventOtherMouseUp:
		stream.click(x, y, "other", false)
	case C.kCGEventScrollWheel:
		if stream.ev.Scroll != nil {
			dx := float64(C.dwEventGetScrollDeltaX(cgEvent))
			dy := float64(C.dwEventGetScrollDeltaY(cgEvent))
			stream.ev.Scroll(x, y, dx, dy)
		}
	case C.kCGEventKeyDown, C.kCGEventKeyUp:
		if stream.ev.Key != nil {
			keycode := int(C.dwEventGetKeycode(cgEvent))
			mods := formatFlags(uint64(C.dwEventGetFlags(cgEvent)))
			stream.ev.Key(fmt.Sprintf("key:%d", keycode), mods, eventType == C.kCGEventKeyDown)
		}
	}

	return cgEvent
}

func (s *tapStream) click(x, y float64, button string, pressed bool) {
	if s.ev.Click != nil {
		s.ev.Click(x, y, button, pressed)
	}
}

// formatFlags renders active modifier flags as a comma-separated list.
func formatFlags(flags uint64) string {
	var parts []string
	if flags&uint64(C.kCGEventFlagMaskShift) != 0 {
		parts = append(parts, "shift")
	}
	if flags&uint64(C.kCGEventFlagMaskControl) != 0 {
		parts = append(parts, "ctrl")
	}
	if flags&uint64(C.kCGEventFlagMaskAlternate) != 0 {
		parts = append(parts, "alt")
	}
	if flags&uint64(C.kCGEventFlagMaskCommand) != 0 {
		parts = append(parts, "cmd")
	}
	return strings.Join(parts, ",")
}
