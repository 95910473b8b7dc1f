// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azuredevops

import (
	"errors"
	"fmt"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
)

var (
	// ErrMissingSetting reports missing mandatory settings.
	ErrMissingSetting = errors.New("missing setting")
)

// config holds all the configuration needed to connect to an Azure DevOps organization.
// The environment provides the defaults of the connection settings.
type config struct {
	OrganizationURL string `env:"AZURE_DEVOPS_ORGANIZATION_URL" json:"organizationUrl"`
	PersonalToken   string `env:"AZURE_DEVOPS_PERSONAL_TOKEN" json:"personalToken"`
}

func (c config) merge(overrides config) config {
	if overrides.OrganizationURL != "" {
		c.OrganizationURL = overrides.OrganizationURL
	}
	if overrides.PersonalToken != "" {
		c.PersonalToken = overrides.PersonalToken
	}
	return c
}

func (c config) validate() error {
	if len(c.OrganizationURL) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, "organizationUrl")
	}

	if len(c.PersonalToken) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, "personalToken")
	}
	return nil
}

func (c config) connection() *azuredevops.Connection {
	return azuredevops.NewPatConnection(c.OrganizationURL, c.PersonalToken)
}
