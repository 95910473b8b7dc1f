// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package server contains the HTTP surface of unisync. It sets up the Fiber application
// with the request logging middleware, the status and metrics routes, the unified
// vertical API and the route that triggers pipeline syncs.
package server
