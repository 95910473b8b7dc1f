// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package sandbox

import (
	"context"
	"fmt"

	"github.com/mia-platform/unisync/internal/cursor"
	"github.com/mia-platform/unisync/internal/mapper"
	"github.com/mia-platform/unisync/internal/vertical"
	"github.com/mia-platform/unisync/internal/vertical/banking"
	"github.com/mia-platform/unisync/internal/vertical/crm"
)

var (
	_ banking.AccountLister     = &adapter{}
	_ banking.TransactionLister = &adapter{}
	_ crm.ContactLister         = &adapter{}
	_ crm.ContactGetter         = &adapter{}
	_ crm.CompanyLister         = &adapter{}
)

var (
	accountMapper = mapper.New(mapper.AnySchema, banking.AccountSchema, mapper.Fields{
		"id":              mapper.Path("id"),
		"name":            mapper.Path("name"),
		"type":            mapper.Path("kind"),
		"currency":        mapper.Path("currency"),
		"current_balance": mapper.Path("balance"),
	})
	transactionMapper = mapper.New(mapper.AnySchema, banking.TransactionSchema, mapper.Fields{
		"id":          mapper.Path("id"),
		"account_id":  mapper.Path("account"),
		"date":        mapper.Path("date"),
		"description": mapper.Path("memo"),
		"amount":      mapper.Path("amt"),
		"category":    mapper.Path("category"),
		"pending":     mapper.Literal(false),
	})
	contactMapper = mapper.New(mapper.AnySchema, crm.ContactSchema, mapper.Fields{
		"id":         mapper.Path("id"),
		"first_name": mapper.Path("first"),
		"last_name":  mapper.Path("last"),
		"email":      mapper.Path("email"),
		"company_id": mapper.Path("company"),
		"updated_at": mapper.Path("updated_at"),
	})
	companyMapper = mapper.New(mapper.AnySchema, crm.CompanySchema, mapper.Fields{
		"id":         mapper.Path("id"),
		"name":       mapper.Path("name"),
		"domain":     mapper.Path("domain"),
		"updated_at": mapper.Path("updated_at"),
	})
)

// adapter serves the unified API from the dataset of the instance.
type adapter struct {
	connector *Connector
}

func (a *adapter) ListAccounts(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[banking.Account], error) {
	return listPage[banking.Account](ctx, a.connector.instanceDataset(req.Instance), "account", accountMapper, req.Input)
}

func (a *adapter) ListTransactions(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[banking.Transaction], error) {
	return listPage[banking.Transaction](ctx, a.connector.instanceDataset(req.Instance), "transaction", transactionMapper, req.Input)
}

func (a *adapter) ListContacts(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[crm.Contact], error) {
	return listPage[crm.Contact](ctx, a.connector.instanceDataset(req.Instance), "contact", contactMapper, req.Input)
}

func (a *adapter) GetContact(_ context.Context, req vertical.Request[vertical.GetInput]) (crm.Contact, error) {
	record, ok := a.connector.instanceDataset(req.Instance).get("contact", req.Input.ID)
	if !ok {
		return crm.Contact{}, fmt.Errorf("%w: contact %s", vertical.ErrObjectNotFound, req.Input.ID)
	}
	return mapRecord[crm.Contact](contactMapper, record)
}

func (a *adapter) ListCompanies(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[crm.Company], error) {
	return listPage[crm.Company](ctx, a.connector.instanceDataset(req.Instance), "company", companyMapper, req.Input)
}

// listPage returns the page of entity following the cursor of input. The cursor carries
// the update time and the id of the last record returned.
func listPage[T any](ctx context.Context, dataset *Dataset, entity string, m *mapper.Mapper, input vertical.ListInput) (vertical.Page[T], error) {
	records := dataset.sorted(entity)
	start := 0
	if position, ok := cursor.Decode[cursor.UpdatedAtID](ctx, input.Cursor); ok {
		start = afterID(records, position)
	}

	end := min(start+input.PageSize, len(records))
	items := make([]T, 0, end-start)
	for _, record := range records[start:end] {
		item, err := mapRecord[T](m, record)
		if err != nil {
			return vertical.Page[T]{}, err
		}
		items = append(items, item)
	}

	var next *cursor.UpdatedAtID
	if end < len(records) {
		last := records[end-1]
		next = &cursor.UpdatedAtID{LastUpdatedAt: updatedAt(last), LastID: recordID(last)}
	}
	return vertical.NewPage(items, cursor.EncodePtr(next)), nil
}

func mapRecord[T any](m *mapper.Mapper, record map[string]any) (T, error) {
	mapped, err := m.Parse(record)
	if err != nil {
		var zero T
		return zero, err
	}
	return mapper.Decode[T](mapped)
}
