// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azuredevops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		config    config
		expectErr error
	}{
		"valid config": {
			config: config{
				OrganizationURL: "https://dev.azure.com/myorg/",
				PersonalToken:   "pat",
			},
		},
		"missing organization URL": {
			config: config{
				PersonalToken: "pat",
			},
			expectErr: ErrMissingSetting,
		},
		"missing personal token": {
			config: config{
				OrganizationURL: "https://dev.azure.com/myorg/",
			},
			expectErr: ErrMissingSetting,
		},
	}

	for testName, test := range tests {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()
			err := test.config.validate()
			if test.expectErr != nil {
				assert.ErrorIs(t, err, test.expectErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	defaults := config{OrganizationURL: "https://dev.azure.com/default", PersonalToken: "default-pat"}

	assert.Equal(t, defaults, defaults.merge(config{}))
	assert.Equal(t,
		config{OrganizationURL: "https://dev.azure.com/other", PersonalToken: "default-pat"},
		defaults.merge(config{OrganizationURL: "https://dev.azure.com/other"}),
	)
}
