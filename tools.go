//go:build tools
// +build tools

// Package tools tracks development tool dependencies so go.mod pins
// their versions. Nothing here is compiled into the binaries.
package tools

import (
	_ "golang.org/x/tools/cmd/goimports"
	_ "golang.org/x/vuln/cmd/govulncheck"
)
