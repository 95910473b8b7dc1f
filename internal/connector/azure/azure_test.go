// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azure

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	fakeazcore "github.com/Azure/azure-sdk-for-go/sdk/azcore/fake"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
	fakearmresourcegraph "github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/cursor"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/operation"
	"github.com/mia-platform/unisync/internal/source"
	"github.com/mia-platform/unisync/internal/store"
	"github.com/mia-platform/unisync/internal/syncerr"
)

const testSubscription = "00000000-0000-0000-0000-000000000000"

func TestNew(t *testing.T) {
	t.Setenv("AZURE_SUBSCRIPTION_ID", "id")
	t.Setenv("AZURE_SYNC_RESOURCE_TYPES", "Microsoft.Resources/resourceGroups,Microsoft.Compute/virtualMachines")

	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, config{
		SubscriptionID: "id",
		ResourceTypes:  []string{"Microsoft.Resources/resourceGroups", "Microsoft.Compute/virtualMachines"},
		PageSize:       1000,
	}, c.config)
}

func TestNewInstanceRequiresSubscription(t *testing.T) {
	t.Parallel()

	c := &Connector{}
	_, err := c.NewInstance(t.Context(), store.Connection{ID: "conn_azure"}, nil)
	require.ErrorIs(t, err, ErrMissingSetting)
	require.ErrorIs(t, err, ErrAzureSource)
}

func TestGraphQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "resourcecontainers | where type =~ 'Microsoft.Resources/subscriptions/resourceGroups'", graphQuery("Microsoft.Resources/resourceGroups"))
	assert.Equal(t, "resources | where type =~ 'Microsoft.Compute/virtualMachines'", graphQuery("Microsoft.Compute/virtualMachines"))
}

func newTestConnector(t *testing.T, types ...string) *Connector {
	t.Helper()

	return &Connector{
		config: config{
			SubscriptionID: testSubscription,
			ResourceTypes:  types,
			PageSize:       1,
			clientOptions: &arm.ClientOptions{
				ClientOptions: policy.ClientOptions{
					Transport: fakeResourceGraphTransport(t),
				},
			},
			azureCredentials: &fakeazcore.TokenCredential{},
		},
	}
}

func run(t *testing.T, c *Connector, req connector.SourceRequest) ([]operation.Operation, error) {
	t.Helper()

	ctx := t.Context()
	instance, err := c.NewInstance(ctx, store.Connection{ID: "conn_azure", ConnectorName: Name}, nil)
	require.NoError(t, err)
	req.Instance = instance

	var ops []operation.Operation
	err = link.Run(ctx, func(ctx context.Context, out chan<- operation.Operation) error {
		return c.SourceSync(ctx, req, out)
	}, link.Identity(), func(_ context.Context, in <-chan operation.Operation) error {
		for op := range in {
			ops = append(ops, op)
		}
		return nil
	})
	return ops, err
}

func TestSourceSync(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		types         []string
		state         source.State
		expectedOps   []string
		expectedKind  syncerr.Kind
		expectedError bool
	}{
		"resource groups": {
			types:       []string{"Microsoft.Resources/resourceGroups"},
			expectedOps: []string{"data(Microsoft.Resources/resourceGroups//subscriptions/" + testSubscription + "/resourceGroups/name)", "commit", "stateUpdate(complete)"},
		},
		"empty subscriptions": {
			types:       []string{"Microsoft.Resources/subscriptions"},
			expectedOps: []string{"commit", "stateUpdate(complete)"},
		},
		"virtual machines follow the skip token": {
			types: []string{"Microsoft.Compute/virtualMachines"},
			expectedOps: []string{
				"data(Microsoft.Compute/virtualMachines/" + vmID("vm-name") + ")", "commit", "stateUpdate(complete)",
				"data(Microsoft.Compute/virtualMachines/" + vmID("vm-name2") + ")", "commit", "stateUpdate(complete)",
			},
		},
		"resume from checkpoint": {
			types: []string{"Microsoft.Compute/virtualMachines"},
			state: source.State{"Microsoft.Compute/virtualMachines": cursor.Encode(cursor.PageToken{Token: "skip-token-1"})},
			expectedOps: []string{
				"data(Microsoft.Compute/virtualMachines/" + vmID("vm-name2") + ")", "commit", "stateUpdate(complete)",
			},
		},
		"forbidden query": {
			types:         []string{"Microsoft.Resources/errorResources"},
			expectedError: true,
			expectedKind:  syncerr.KindUser,
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			c := newTestConnector(t, test.types...)
			req := connector.SourceRequest{}
			if test.state != nil {
				req.State = test.state.Raw()
			}

			ops, err := run(t, c, req)
			if test.expectedError {
				require.ErrorIs(t, err, ErrAzureSource)
				var responseErr *azcore.ResponseError
				require.ErrorAs(t, err, &responseErr)
				assert.Equal(t, test.expectedKind, syncerr.Classify(err))
				return
			}
			require.NoError(t, err)

			names := make([]string, 0, len(ops))
			for _, op := range ops {
				names = append(names, op.String())
			}
			assert.Equal(t, test.expectedOps, names)
			assert.Empty(t, source.DecodeState(t.Context(), ops[len(ops)-1].StateUpdate.SourceState))
		})
	}
}

func TestSourceSyncKeepsRequestedType(t *testing.T) {
	t.Parallel()

	c := newTestConnector(t, "Microsoft.Resources/resourceGroups")
	ops, err := run(t, c, connector.SourceRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, ops)
	assert.Equal(t, "Microsoft.Resources/resourceGroups", ops[0].Data.Entity["type"])
	assert.Equal(t, "region", ops[0].Data.Entity["location"])
}

func vmID(name string) string {
	return "/subscriptions/" + testSubscription + "/resourceGroups/name/providers/Microsoft.Compute/virtualMachines/" + name
}

func fakeResourceGraphTransport(t *testing.T) policy.Transporter {
	t.Helper()
	return fakearmresourcegraph.NewServerTransport(&fakearmresourcegraph.Server{
		Resources: func(_ context.Context, query armresourcegraph.QueryRequest, _ *armresourcegraph.ClientResourcesOptions) (responder fakeazcore.Responder[armresourcegraph.ClientResourcesResponse], errResponder fakeazcore.ErrorResponder) {
			switch resp, status := handleResourceGraphQueryRequest(t, query); {
			case resp != nil:
				responder.SetResponse(http.StatusOK, *resp, nil)
			default:
				errResponder.SetResponseError(status, "AuthorizationFailed")
			}

			return responder, errResponder
		},
	})
}

func handleResourceGraphQueryRequest(t *testing.T, query armresourcegraph.QueryRequest) (*armresourcegraph.ClientResourcesResponse, int) {
	t.Helper()
	require.NotNil(t, query.Query)
	require.Equal(t, []*string{to.Ptr(testSubscription)}, query.Subscriptions)

	skipToken := ""
	if query.Options != nil && query.Options.SkipToken != nil {
		skipToken = *query.Options.SkipToken
	}

	switch *query.Query {
	case fmt.Sprintf(resourceContainerGraphQueryTemplate, "Microsoft.Resources/subscriptions/resourceGroups"):
		return queryResponse(resourceGroupsResponse, nil), 0
	case fmt.Sprintf(resourceContainerGraphQueryTemplate, "Microsoft.Resources/subscriptions"):
		return queryResponse(nil, nil), 0
	case fmt.Sprintf(resourceGraphQueryTemplate, "Microsoft.Compute/virtualMachines"):
		if skipToken == "skip-token-1" {
			return queryResponse([]any{virtualMachine("vm-name2")}, nil), 0
		}
		return queryResponse([]any{virtualMachine("vm-name")}, to.Ptr("skip-token-1")), 0
	case fmt.Sprintf(resourceGraphQueryTemplate, "Microsoft.Resources/errorResources"):
		return nil, http.StatusForbidden
	}

	return nil, http.StatusBadRequest
}

func queryResponse(data []any, skipToken *string) *armresourcegraph.ClientResourcesResponse {
	var payload any
	if data != nil {
		payload = data
	}

	return &armresourcegraph.ClientResourcesResponse{
		QueryResponse: armresourcegraph.QueryResponse{
			TotalRecords:    to.Ptr(int64(len(data))),
			Data:            payload,
			ResultTruncated: to.Ptr(armresourcegraph.ResultTruncatedFalse),
			Count:           to.Ptr(int64(len(data))),
			SkipToken:       skipToken,
		},
	}
}

func virtualMachine(name string) map[string]any {
	return map[string]any{
		"id":       vmID(name),
		"location": "northeurope",
		"name":     name,
		"properties": map[string]any{
			"provisioningState": "Succeeded",
		},
		"type": "microsoft.compute/virtualmachines",
	}
}

var resourceGroupsResponse = []any{
	map[string]any{
		"id":       "/subscriptions/" + testSubscription + "/resourceGroups/name",
		"location": "region",
		"name":     "name",
		"properties": map[string]any{
			"provisioningState": "Succeeded",
		},
		"tags": map[string]any{},
		"type": "microsoft.resources/subscriptions/resourcegroups",
	},
}
