// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package vertical implements the dispatch of unified API operations to the adapters of
// the connectors. A Vertical declares a fixed set of operations; every operation is bound
// to a small Go interface and an adapter implements the operations it supports by
// implementing the matching interfaces. Adapters are validated when they are registered.
package vertical
