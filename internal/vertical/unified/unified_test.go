// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package unified

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/unisync/internal/vertical"
	"github.com/mia-platform/unisync/internal/vertical/crm"
	"github.com/mia-platform/unisync/internal/vertical/hris"
)

func TestVerticalOperations(t *testing.T) {
	t.Parallel()

	router := NewRouter()
	assert.Equal(t, []string{"accounting", "ats", "banking", "crm", "etl", "hris"}, router.Names())

	expected := map[string][]string{
		"accounting": {"listAccounts", "listExpenses", "listVendors"},
		"ats":        {"listCandidates", "listJobs"},
		"banking":    {"listAccounts", "listCategories", "listTransactions"},
		"crm":        {"getContact", "listCompanies", "listContacts", "listOpportunities"},
		"etl":        {"read"},
		"hris":       {"listEmployees"},
	}

	for name, operations := range expected {
		v, err := router.Vertical(name)
		require.NoError(t, err)
		assert.Equal(t, operations, v.Operations(), name)
	}
}

type peopleAdapter struct{}

func (peopleAdapter) ListContacts(context.Context, vertical.Request[vertical.ListInput]) (vertical.Page[crm.Contact], error) {
	return vertical.NewPage[crm.Contact](nil, nil), nil
}

func (peopleAdapter) ListEmployees(context.Context, vertical.Request[vertical.ListInput]) (vertical.Page[hris.Employee], error) {
	return vertical.NewPage([]hris.Employee{{ID: "e1"}}, nil), nil
}

func TestAdapterSpanningVerticals(t *testing.T) {
	t.Parallel()

	router := NewRouter()
	registered, err := router.RegisterAdapter("people", peopleAdapter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"crm", "hris"}, registered)

	v, operation, err := router.Resolve("crm", "contact", false)
	require.NoError(t, err)
	result, err := v.Dispatch(t.Context(), vertical.Call{ConnectorName: "people", Operation: operation, Input: vertical.ListInput{}})
	require.NoError(t, err)
	assert.Equal(t, vertical.Page[crm.Contact]{Items: []crm.Contact{}}, result)

	v, operation, err = router.Resolve("crm", "contact", true)
	require.NoError(t, err)
	_, err = v.Dispatch(t.Context(), vertical.Call{ConnectorName: "people", Operation: operation, Input: vertical.GetInput{ID: "c1"}})
	assert.ErrorIs(t, err, vertical.ErrNotImplemented)

	v, operation, err = router.Resolve("ats", "job", false)
	require.NoError(t, err)
	_, err = v.Dispatch(t.Context(), vertical.Call{ConnectorName: "people", Operation: operation, Input: vertical.ListInput{}})
	assert.ErrorIs(t, err, vertical.ErrNotConfigured)
}

func TestSchemas(t *testing.T) {
	t.Parallel()

	schemas := Schemas()
	require.Contains(t, schemas, "banking.transaction")
	assert.Equal(t, "Transaction", schemas["banking.transaction"].Name())
	assert.Equal(t, "Contact", schemas[SchemaKey(crm.Name, crm.EntityContact)].Name())
}
