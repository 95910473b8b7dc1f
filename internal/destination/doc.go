// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package destination contains the helpers shared by destination connectors: the Record
// written to sinks and the Batch link that buffers data until a flush boundary.
package destination
