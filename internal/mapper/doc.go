// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package mapper implements the declarative transformation from a provider native
// record to a unified record. A Mapper associates an input Schema and an output
// Schema with a table of field entries; every entry is a key path, a literal, a
// function, a template or a JMESPath expression. The original input is always
// attached to the result under RawDataKey.
package mapper
