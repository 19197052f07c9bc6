//go:build !darwin

// Package focus reads the frontmost application and topmost window from the
// OS. It is the production Source behind the tracker's poll loop.
package focus

import (
	dwerrors "github.com/quietloop/deskwatch/internal/errors"
	"github.com/quietloop/deskwatch/internal/tracker"
)

// NewSource returns the OS-backed focus source.
func NewSource() (tracker.Source, error) {
	return nil, dwerrors.NewUnsupportedPlatform("focus source")
}
