//go:build !darwin

package store

import "runtime"

func osVersion() string {
	return runtime.GOOS
}
