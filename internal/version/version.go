// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package version holds the build metadata of the binary.
package version

import (
	"runtime"
)

var (
	// Version is dynamically set by the ci or overridden by the Makefile.
	Version = "DEV"
	// BuildDate is dynamically set at build time by the cli or overridden in the Makefile.
	BuildDate = "" // YYYY-MM-DD
)

// ServiceVersionInformation returns the version, the build date when known and the Go
// runtime version.
func ServiceVersionInformation() string {
	outputString := Version
	if BuildDate != "" {
		outputString += " (" + BuildDate + ")"
	}

	return outputString + ", Go Version: " + runtime.Version()
}
