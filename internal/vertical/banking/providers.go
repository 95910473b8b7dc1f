// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package banking

import (
	"errors"
	"fmt"

	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/mapper"
)

// providerTransactionMappings are the declarative mappings of the provider transactions
// to the unified Transaction.
var providerTransactionMappings = map[string]mapper.Definition{
	// plaid reports outflows as positive amounts
	"plaid": {
		"id":            {Path: "transaction_id"},
		"account_id":    {Path: "account_id"},
		"date":          {Template: `{{ .date | toRFC3339 }}`, Format: "string"},
		"description":   {Path: "name"},
		"amount":        {Template: `{{ .amount | negate }}`},
		"currency":      {Path: "iso_currency_code"},
		"category":      {Expr: "personal_finance_category.primary || category[0]"},
		"merchant_name": {Path: "merchant_name"},
		"pending":       {Path: "pending"},
	},
	"teller": {
		"id":            {Path: "id"},
		"account_id":    {Path: "account_id"},
		"date":          {Template: `{{ .date | toRFC3339 }}`, Format: "string"},
		"description":   {Path: "description"},
		"amount":        {Template: `{{ .amount | float }}`},
		"category":      {Path: "details.category"},
		"merchant_name": {Path: "details.counterparty.name"},
		"pending":       {Expr: "status == 'pending'"},
	},
}

// TransactionMappers returns the transaction mappers of the supported providers keyed as
// expected by link.Mapping.
func TransactionMappers() (map[string]*mapper.Mapper, error) {
	mappers := make(map[string]*mapper.Mapper, len(providerTransactionMappings))
	var errs error
	for provider, definition := range providerTransactionMappings {
		m, err := mapper.FromDefinition(mapper.AnySchema, TransactionSchema, definition)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s transactions: %w", provider, err))
			continue
		}
		mappers[link.MapperKey(provider, EntityTransaction)] = m
	}

	if errs != nil {
		return nil, errs
	}
	return mappers, nil
}

// LinkOptions configures the banking link.
type LinkOptions struct {
	// Categories is the allow list of unified transaction categories; empty keeps every
	// transaction.
	Categories []string `json:"categories,omitempty"`
}

// Link maps provider transactions to the unified Transaction and keeps only the
// transactions whose category is allowed.
func Link(opts LinkOptions) (link.Link, error) {
	mappers, err := TransactionMappers()
	if err != nil {
		return nil, err
	}

	links := []link.Link{link.Mapping(mappers)}
	if len(opts.Categories) > 0 {
		links = append(links, link.CategoryFilter(link.CategoryFilterOptions{
			EntityName: EntityTransaction,
			Field:      "category",
			Allowed:    opts.Categories,
		}))
	}

	return link.Chain(links...), nil
}

// RegisterLinks adds the banking link to registry.
func RegisterLinks(registry *link.Registry) error {
	return registry.Register(Name, func(opts link.Options) (link.Link, error) {
		decoded, err := link.DecodeOptions[LinkOptions](opts)
		if err != nil {
			return nil, err
		}
		return Link(decoded)
	})
}
