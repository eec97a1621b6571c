// Package version exposes the vishva release version embedded at build time.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the current vishva version, with whitespace trimmed.
func Get() string {
	return strings.TrimSpace(versionContent)
}
