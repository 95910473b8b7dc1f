// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package unified assembles the router of every supported vertical.
package unified

import (
	"github.com/mia-platform/unisync/internal/mapper"
	"github.com/mia-platform/unisync/internal/vertical"
	"github.com/mia-platform/unisync/internal/vertical/accounting"
	"github.com/mia-platform/unisync/internal/vertical/ats"
	"github.com/mia-platform/unisync/internal/vertical/banking"
	"github.com/mia-platform/unisync/internal/vertical/crm"
	"github.com/mia-platform/unisync/internal/vertical/etl"
	"github.com/mia-platform/unisync/internal/vertical/hris"
)

// NewRouter returns a router with all the verticals and no adapters.
func NewRouter() *vertical.Router {
	return vertical.NewRouter(
		accounting.New(),
		ats.New(),
		banking.New(),
		crm.New(),
		etl.New(),
		hris.New(),
	)
}

// SchemaKey returns the key of the unified schema of entity in Schemas.
func SchemaKey(verticalName, entity string) string {
	return verticalName + "." + entity
}

// Schemas returns the unified output schemas by `<vertical>.<entity>`.
func Schemas() map[string]mapper.Schema {
	return map[string]mapper.Schema{
		SchemaKey(accounting.Name, accounting.EntityAccount): accounting.AccountSchema,
		SchemaKey(accounting.Name, accounting.EntityExpense): accounting.ExpenseSchema,
		SchemaKey(accounting.Name, accounting.EntityVendor):  accounting.VendorSchema,
		SchemaKey(ats.Name, ats.EntityJob):                   ats.JobSchema,
		SchemaKey(ats.Name, ats.EntityCandidate):             ats.CandidateSchema,
		SchemaKey(banking.Name, banking.EntityAccount):       banking.AccountSchema,
		SchemaKey(banking.Name, banking.EntityTransaction):   banking.TransactionSchema,
		SchemaKey(banking.Name, banking.EntityCategory):      banking.CategorySchema,
		SchemaKey(crm.Name, crm.EntityContact):               crm.ContactSchema,
		SchemaKey(crm.Name, crm.EntityCompany):               crm.CompanySchema,
		SchemaKey(crm.Name, crm.EntityOpportunity):           crm.OpportunitySchema,
		SchemaKey(hris.Name, hris.EntityEmployee):            hris.EmployeeSchema,
	}
}
