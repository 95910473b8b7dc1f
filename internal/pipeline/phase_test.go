// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseTransitions(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		from     Phase
		to       Phase
		expected bool
	}{
		"idle to sourcing":                          {from: PhaseIdle, to: PhaseSourcing, expected: true},
		"idle to failed":                            {from: PhaseIdle, to: PhaseFailed, expected: true},
		"idle cannot skip to linking":               {from: PhaseIdle, to: PhaseLinking},
		"sourcing to linking":                       {from: PhaseSourcing, to: PhaseLinking, expected: true},
		"linking to destination committing":         {from: PhaseLinking, to: PhaseDestinationCommitting, expected: true},
		"linking cannot persist state":              {from: PhaseLinking, to: PhaseStatePersisted},
		"destination committing to state persisted": {from: PhaseDestinationCommitting, to: PhaseStatePersisted, expected: true},
		"state persisted to completed":              {from: PhaseStatePersisted, to: PhaseCompleted, expected: true},
		"state persisted to failed":                 {from: PhaseStatePersisted, to: PhaseFailed, expected: true},
		"destination committing cannot complete":    {from: PhaseDestinationCommitting, to: PhaseCompleted},
		"completed is terminal":                     {from: PhaseCompleted, to: PhaseFailed},
		"failed is terminal":                        {from: PhaseFailed, to: PhaseSourcing},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.expected, test.from.CanTransition(test.to))
		})
	}
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "destination_committing", PhaseDestinationCommitting.String())
	assert.Equal(t, "state_persisted", PhaseStatePersisted.String())
	assert.Equal(t, "Phase(42)", Phase(42).String())
	assert.True(t, PhaseFailed.Terminal())
	assert.False(t, PhaseLinking.Terminal())
}
