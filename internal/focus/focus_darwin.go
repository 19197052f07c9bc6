//go:build darwin

// Package focus reads the frontmost application and topmost window from the
// OS. It is the production Source behind the tracker's poll loop.
package focus

/*
#cgo darwin CFLAGS: -x objective-c -fmodules -fobjc-arc
#cgo darwin LDFLAGS: -framework AppKit -framework CoreGraphics
#include <stdlib.h>
#include <AppKit/AppKit.h>
#include <CoreGraphics/CoreGraphics.h>

typedef struct {
	char *appName;
	char *bundleID;
	int   appPID;
	int   hasWindow;
	char *windowOwner;
	int   windowOwnerPID;
	int   windowNumber;
	char *windowTitle;
} dwFocusSample;

static char *dwCopyString(NSString *s) {
	if (s == nil) {
		return NULL;
	}
	return strdup([s UTF8String]);
}

static void dwSampleFocus(dwFocusSample *out) {
	memset(out, 0, sizeof(*out));

	NSRunningApplication *front = [[NSWorkspace sharedWorkspace] frontmostApplication];
	if (front != nil) {
		out->appName = dwCopyString(front.localizedName);
		out->bundleID = dwCopyString(front.bundleIdentifier);
		out->appPID = (int)front.processIdentifier;
	}

	CFArrayRef windows = CGWindowListCopyWindowInfo(
		kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements,
		kCGNullWindowID);
	if (windows == NULL) {
		return;
	}
	for (CFIndex i = 0; i < CFArrayGetCount(windows); i++) {
		NSDictionary *info = (__bridge NSDictionary *)CFArrayGetValueAtIndex(windows, i);
		NSNumber *layer = info[(__bridge NSString *)kCGWindowLayer];
		if (layer == nil || layer.intValue != 0) {
			continue;
		}
		out->hasWindow = 1;
		out->windowOwner = dwCopyString(info[(__bridge NSString *)kCGWindowOwnerName]);
		out->windowOwnerPID = [info[(__bridge NSString *)kCGWindowOwnerPID] intValue];
		out->windowNumber = [info[(__bridge NSString *)kCGWindowNumber] intValue];
		out->windowTitle = dwCopyString(info[(__bridge NSString *)kCGWindowName]);
		break;
	}
	CFRelease(windows);
}

static void dwFreeSample(dwFocusSample *s) {
	free(s->appName);
	free(s->bundleID);
	free(s->windowOwner);
	free(s->windowTitle);
}
*/
import "C"

import (
	"github.com/quietloop/deskwatch/internal/tracker"
)

type darwinSource struct{}

// NewSource returns the OS-backed focus source.
func NewSource() (tracker.Source, error) {
	return darwinSource{}, nil
}

// Sample queries NSWorkspace for the frontmost application and walks the
// on-screen window list front to back for the first layer-zero window.
func (darwinSource) Sample() (tracker.Snapshot, error) {
	var raw C.dwFocusSample
	C.dwSampleFocus(&raw)
	defer C.dwFreeSample(&raw)

	snap := tracker.Snapshot{
		App: tracker.AppInfo{
			Name:     goString(raw.appName),
			BundleID: goString(raw.bundleID),
			PID:      int(raw.appPID),
		},
	}
	if raw.hasWindow != 0 {
		snap.Window = &tracker.WindowInfo{
			OwnerName: goString(raw.windowOwner),
			OwnerPID:  int(raw.windowOwnerPID),
			Number:    int(raw.windowNumber),
			Title:     goString(raw.windowTitle),
		}
	}
	return snap, nil
}

func goString(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}
