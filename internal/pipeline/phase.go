// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"fmt"
	"slices"
)

// Phase is the state of a run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSourcing
	PhaseLinking
	PhaseDestinationCommitting
	PhaseStatePersisted
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSourcing:
		return "sourcing"
	case PhaseLinking:
		return "linking"
	case PhaseDestinationCommitting:
		return "destination_committing"
	case PhaseStatePersisted:
		return "state_persisted"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// transitions lists the phases reachable from every phase. A run can fail from any
// non terminal phase.
var transitions = map[Phase][]Phase{
	PhaseIdle:                  {PhaseSourcing, PhaseFailed},
	PhaseSourcing:              {PhaseLinking, PhaseFailed},
	PhaseLinking:               {PhaseDestinationCommitting, PhaseFailed},
	PhaseDestinationCommitting: {PhaseStatePersisted, PhaseFailed},
	PhaseStatePersisted:        {PhaseCompleted, PhaseFailed},
}

// Terminal reports whether p ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// CanTransition reports whether a run in phase p can move to next.
func (p Phase) CanTransition(next Phase) bool {
	return slices.Contains(transitions[p], next)
}
