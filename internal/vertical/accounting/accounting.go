// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package accounting declares the unified accounting vertical.
package accounting

import (
	"context"

	"github.com/mia-platform/unisync/internal/mapper"
	"github.com/mia-platform/unisync/internal/vertical"
)

const Name = "accounting"

const (
	EntityAccount = "account"
	EntityExpense = "expense"
	EntityVendor  = "vendor"
)

type Account struct {
	ID             string         `json:"id" validate:"required"`
	Name           string         `json:"name" validate:"required"`
	Classification string         `json:"classification,omitempty" validate:"omitempty,oneof=asset liability equity income expense"`
	Currency       string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	Balance        *float64       `json:"balance,omitempty"`
	RawData        map[string]any `json:"raw_data,omitempty"`
}

type Expense struct {
	ID        string         `json:"id" validate:"required"`
	AccountID string         `json:"account_id,omitempty"`
	VendorID  string         `json:"vendor_id,omitempty"`
	Amount    float64        `json:"amount"`
	Currency  string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	Date      string         `json:"date,omitempty"`
	Memo      string         `json:"memo,omitempty"`
	RawData   map[string]any `json:"raw_data,omitempty"`
}

type Vendor struct {
	ID       string         `json:"id" validate:"required"`
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email,omitempty" validate:"omitempty,email"`
	Currency string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	RawData  map[string]any `json:"raw_data,omitempty"`
}

var (
	AccountSchema = mapper.SchemaOf[Account]()
	ExpenseSchema = mapper.SchemaOf[Expense]()
	VendorSchema  = mapper.SchemaOf[Vendor]()
)

type AccountLister interface {
	ListAccounts(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Account], error)
}

type ExpenseLister interface {
	ListExpenses(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Expense], error)
}

type VendorLister interface {
	ListVendors(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Vendor], error)
}

func New() *vertical.Vertical {
	return vertical.New(Name,
		vertical.List("listAccounts", EntityAccount, AccountLister.ListAccounts),
		vertical.List("listExpenses", EntityExpense, ExpenseLister.ListExpenses),
		vertical.List("listVendors", EntityVendor, VendorLister.ListVendors),
	)
}
