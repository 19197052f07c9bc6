//go:build darwin

package store

import (
	"os/exec"
	"strings"
)

// osVersion reports the product version, falling back to a generic label
// when the probe fails.
func osVersion() string {
	out, err := exec.Command("sw_vers", "-productVersion").Output()
	if err != nil {
		return "macOS"
	}
	v := strings.TrimSpace(string(out))
	if v == "" {
		return "macOS"
	}
	return "macOS " + v
}
