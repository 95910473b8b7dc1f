// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package pipeline runs the sync of a pipeline: the operations read from the source
// connection go through the configured links and are consumed by the destination
// connection, while the states committed by the destination are persisted so that the
// next run resumes where this one stopped.
//
// A run walks the phases idle, sourcing, linking, destination_committing and
// state_persisted, ending either completed or failed. Every run leaves a terminal record
// in the store and emits a sync.completed or sync.failed event.
package pipeline
