// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrSyncInProgress is returned when the pipeline is already syncing.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrConnectionDisabled is returned when a connection of the pipeline is disabled.
	ErrConnectionDisabled = errors.New("connection disabled")
	// ErrInvalidTransition signals a bug in the run state machine.
	ErrInvalidTransition = errors.New("invalid phase transition")
)

// RunError is the failure of a run, tagged with the phase it happened in.
type RunError struct {
	RunID string
	Phase Phase
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed while %s: %s", e.RunID, e.Phase, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
