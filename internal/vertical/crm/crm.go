// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package crm declares the unified CRM vertical.
package crm

import (
	"context"

	"github.com/mia-platform/unisync/internal/mapper"
	"github.com/mia-platform/unisync/internal/vertical"
)

const Name = "crm"

const (
	EntityContact     = "contact"
	EntityCompany     = "company"
	EntityOpportunity = "opportunity"
)

type Contact struct {
	ID        string         `json:"id" validate:"required"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Email     string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string         `json:"phone,omitempty"`
	CompanyID string         `json:"company_id,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	RawData   map[string]any `json:"raw_data,omitempty"`
}

type Company struct {
	ID        string         `json:"id" validate:"required"`
	Name      string         `json:"name" validate:"required"`
	Domain    string         `json:"domain,omitempty"`
	Industry  string         `json:"industry,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	RawData   map[string]any `json:"raw_data,omitempty"`
}

type Opportunity struct {
	ID        string         `json:"id" validate:"required"`
	Name      string         `json:"name"`
	Amount    *float64       `json:"amount,omitempty"`
	Stage     string         `json:"stage,omitempty"`
	CompanyID string         `json:"company_id,omitempty"`
	CloseDate string         `json:"close_date,omitempty"`
	RawData   map[string]any `json:"raw_data,omitempty"`
}

var (
	ContactSchema     = mapper.SchemaOf[Contact]()
	CompanySchema     = mapper.SchemaOf[Company]()
	OpportunitySchema = mapper.SchemaOf[Opportunity]()
)

type ContactLister interface {
	ListContacts(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Contact], error)
}

type ContactGetter interface {
	GetContact(ctx context.Context, req vertical.Request[vertical.GetInput]) (Contact, error)
}

type CompanyLister interface {
	ListCompanies(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Company], error)
}

type OpportunityLister interface {
	ListOpportunities(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Opportunity], error)
}

func New() *vertical.Vertical {
	return vertical.New(Name,
		vertical.List("listContacts", EntityContact, ContactLister.ListContacts),
		vertical.Get("getContact", EntityContact, ContactGetter.GetContact),
		vertical.List("listCompanies", EntityCompany, CompanyLister.ListCompanies),
		vertical.List("listOpportunities", EntityOpportunity, OpportunityLister.ListOpportunities),
	)
}
