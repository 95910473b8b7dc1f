// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceVersionInformation(t *testing.T) {
	originalVersion := Version
	originalBuildDate := BuildDate
	t.Cleanup(func() {
		Version = originalVersion
		BuildDate = originalBuildDate
	})

	testCases := map[string]struct {
		version   string
		buildDate string
		expected  string
	}{
		"development build": {
			version:  "DEV",
			expected: "DEV, Go Version: " + runtime.Version(),
		},
		"release without build date": {
			version:  "1.0.0",
			expected: "1.0.0, Go Version: " + runtime.Version(),
		},
		"release with build date": {
			version:   "1.0.0",
			buildDate: "2023-10-27",
			expected:  "1.0.0 (2023-10-27), Go Version: " + runtime.Version(),
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			Version = test.version
			BuildDate = test.buildDate
			assert.Equal(t, test.expected, ServiceVersionInformation())
		})
	}
}
