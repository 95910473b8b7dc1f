// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azure

import (
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
)

var (
	// ErrMissingSetting reports missing mandatory settings.
	ErrMissingSetting = errors.New("missing setting")
)

// config holds all the configuration needed to query a subscription. The environment
// provides the defaults of the connection settings.
type config struct {
	SubscriptionID string   `env:"AZURE_SUBSCRIPTION_ID" json:"subscriptionId"`
	ResourceTypes  []string `env:"AZURE_SYNC_RESOURCE_TYPES" json:"resourceTypes"`
	PageSize       int32    `env:"AZURE_SYNC_PAGE_SIZE" envDefault:"1000" json:"pageSize"`

	clientOptions    *arm.ClientOptions
	azureCredentials azcore.TokenCredential
}

func (c config) merge(overrides config) config {
	if overrides.SubscriptionID != "" {
		c.SubscriptionID = overrides.SubscriptionID
	}
	if len(overrides.ResourceTypes) > 0 {
		c.ResourceTypes = overrides.ResourceTypes
	}
	if overrides.PageSize > 0 {
		c.PageSize = overrides.PageSize
	}
	return c
}

// validateForSync checks if the configuration is valid for sync operations.
func (c config) validateForSync() error {
	if len(c.SubscriptionID) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, "subscriptionId")
	}

	return nil
}

func (c config) azureGraphClient() (*armresourcegraph.Client, error) {
	credentials := c.azureCredentials
	if credentials == nil {
		azureCredentials, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, err
		}
		credentials = azureCredentials
	}

	return armresourcegraph.NewClient(credentials, c.clientOptions)
}
