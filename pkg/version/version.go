// Package version exposes the release tag baked into the binary.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var raw string

// Get returns the release tag, e.g. "v0.1.0", without surrounding whitespace
func Get() string {
	return strings.TrimSpace(raw)
}
