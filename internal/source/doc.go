// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package source contains the helpers shared by source connectors: converting provider
// records to data operations, paginating provider APIs, tracking per entity cursors and
// merging independent sub-sources into one stream.
package source
