// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package logger wraps the underlying logging stack behind a consistent interface.
// It centralizes configuration and makes loggers available through context helpers,
// so that sync runs, links and connectors can log with the fields of the run they
// belong to without threading a logger through every signature.
package logger
