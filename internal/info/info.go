// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package info holds the application identity used on outgoing requests and status
// routes.
package info

import (
	"github.com/mia-platform/unisync/internal/version"
)

// AppName is the name of the application.
const AppName = "unisync"

// UserAgent returns the User-Agent string used for outgoing HTTP requests.
func UserAgent() string {
	return AppName + "/" + version.Version
}
