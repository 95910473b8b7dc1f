// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package banking declares the unified banking vertical: accounts, transactions and
// transaction categories.
package banking

import (
	"context"

	"github.com/mia-platform/unisync/internal/mapper"
	"github.com/mia-platform/unisync/internal/vertical"
)

const Name = "banking"

// Entity names used by banking sources and destinations.
const (
	EntityAccount     = "account"
	EntityTransaction = "transaction"
	EntityCategory    = "category"
)

type Account struct {
	ID               string         `json:"id" validate:"required"`
	Name             string         `json:"name"`
	Type             string         `json:"type,omitempty"`
	Currency         string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	CurrentBalance   *float64       `json:"current_balance,omitempty"`
	AvailableBalance *float64       `json:"available_balance,omitempty"`
	Mask             string         `json:"mask,omitempty"`
	RawData          map[string]any `json:"raw_data,omitempty"`
}

type Transaction struct {
	ID           string         `json:"id" validate:"required"`
	AccountID    string         `json:"account_id,omitempty"`
	Date         string         `json:"date,omitempty"`
	Description  string         `json:"description,omitempty"`
	Amount       float64        `json:"amount"`
	Currency     string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	Category     string         `json:"category,omitempty"`
	MerchantName string         `json:"merchant_name,omitempty"`
	Pending      bool           `json:"pending"`
	RawData      map[string]any `json:"raw_data,omitempty"`
}

type Category struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	ParentID string `json:"parent_id,omitempty"`
}

var (
	AccountSchema     = mapper.SchemaOf[Account]()
	TransactionSchema = mapper.SchemaOf[Transaction]()
	CategorySchema    = mapper.SchemaOf[Category]()
)

type AccountLister interface {
	ListAccounts(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Account], error)
}

type TransactionLister interface {
	ListTransactions(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Transaction], error)
}

type CategoryLister interface {
	ListCategories(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Category], error)
}

// New returns the banking vertical without adapters.
func New() *vertical.Vertical {
	return vertical.New(Name,
		vertical.List("listAccounts", EntityAccount, AccountLister.ListAccounts),
		vertical.List("listTransactions", EntityTransaction, TransactionLister.ListTransactions),
		vertical.List("listCategories", EntityCategory, CategoryLister.ListCategories),
	)
}
