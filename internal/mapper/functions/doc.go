// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package functions contains the helpers available inside mapping templates.
// Every helper takes the piped value as its last argument so templates can be
// written as `{{ .name | trimSpace | lower }}`.
package functions
