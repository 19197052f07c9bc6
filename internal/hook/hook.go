// Package hook abstracts the OS-level input taps for pointer and keyboard
// events. Callbacks are invoked synchronously by the OS event subsystem and
// must return quickly: implementations format the raw sample and hand it to
// the supplied callbacks, nothing more.
package hook

import "context"

// Events carries the callbacks a hook invokes. Nil callbacks disable the
// corresponding sample kind at the tap level where the platform allows it.
type Events struct {
	// Move reports pointer position samples.
	Move func(x, y float64)
	// Click reports button transitions. Button is a short identifier such
	// as "left" or "right"; pressed distinguishes down from up.
	Click func(x, y float64, button string, pressed bool)
	// Scroll reports wheel deltas at the current pointer position.
	Scroll func(x, y, dx, dy float64)
	// Key reports key transitions. Key is a printable character or a
	// symbolic name; down distinguishes press from release.
	Key func(key, modifiers string, down bool)
}

// Hook is an OS input tap. Run blocks delivering callbacks until ctx is
// cancelled, then returns ctx.Err(). A platform without an implementation
// returns an unsupported-platform error immediately.
type Hook interface {
	Run(ctx context.Context, ev Events) error
}

// HookFunc adapts a function literal to the Hook interface.
type HookFunc func(ctx context.Context, ev Events) error

// Run calls the underlying function.
func (f HookFunc) Run(ctx context.Context, ev Events) error {
	return f(ctx, ev)
}
