// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package operation defines the vocabulary of elements flowing through a sync
// pipeline: data records, resource updates, checkpoint boundaries, ready signals
// of fan-in sub-sources and explicit commit boundaries.
package operation
