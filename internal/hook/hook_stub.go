//go:build !darwin

package hook

import (
	dwerrors "github.com/quietloop/deskwatch/internal/errors"
)

// NewPointer returns the platform pointer tap.
func NewPointer() (Hook, error) {
	return nil, dwerrors.NewUnsupportedPlatform("pointer hook")
}

// NewKeyboard returns the platform keyboard tap.
func NewKeyboard() (Hook, error) {
	return nil, dwerrors.NewUnsupportedPlatform("keyboard hook")
}
