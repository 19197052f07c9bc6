// Package event defines the payloads that flow from the capture producers
// (input hooks, focus tracker) through the writer intake into storage.
//
// Construction never fails: malformed OS data is represented with empty
// strings and zero values so hook callbacks never block on representation.
package event

import "time"

// Event is the closed set of variants the batching writer knows how to apply.
// The writer type-switches over the concrete types, so adding a variant is a
// compile-time-visible extension.
type Event interface {
	isEvent()
}

// Pointer kinds.
const (
	PointerMove      = "move"
	PointerClickDown = "click_down"
	PointerClickUp   = "click_up"
	PointerScroll    = "scroll"
)

// Key kinds.
const (
	KeyDown = "key_down"
	KeyUp   = "key_up"
)

// Switch kinds.
const (
	SwitchApp    = "app"
	SwitchWindow = "window"
)

// Pointer records a pointer move, click, or scroll.
type Pointer struct {
	TS        float64
	Kind      string
	X         float64
	Y         float64
	Extra     string // button id for clicks, "dx,dy" for scrolls, empty for moves
	BundleID  string
	PID       int // 0 when unknown
	WindowNum int // 0 when unknown
	SessionID string
}

// Key records a key press or release.
type Key struct {
	TS        float64
	Kind      string
	Key       string
	Modifiers string
	BundleID  string
	PID       int
	WindowNum int
	SessionID string
}

// Switch records a detected focus transition. Kind "app" and "window" are
// independent signals; both may fire for the same physical event.
type Switch struct {
	TS              float64
	Kind            string
	FromBundle      string
	FromPID         int
	FromWindowNum   int
	FromWindowTitle string
	ToBundle        string
	ToPID           int
	ToWindowNum     int
	ToWindowTitle   string
	SessionID       string
}

// AppUpsert refreshes the applications dimension for a bundle id. Producers
// enqueue one before or alongside any fact event referencing the bundle so
// the dimension row is committed no later than the fact row.
type AppUpsert struct {
	BundleID string
	Name     string
	SeenAt   float64
}

func (Pointer) isEvent()   {}
func (Key) isEvent()       {}
func (Switch) isEvent()    {}
func (AppUpsert) isEvent() {}

// Now returns the current time as seconds since epoch, the timestamp unit
// used by every fact table.
func Now() float64 {
	return Seconds(time.Now())
}

// Seconds converts a time to seconds since epoch.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
