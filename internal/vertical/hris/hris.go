// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package hris declares the unified human resources vertical.
package hris

import (
	"context"

	"github.com/mia-platform/unisync/internal/mapper"
	"github.com/mia-platform/unisync/internal/vertical"
)

const Name = "hris"

const EntityEmployee = "employee"

type Employee struct {
	ID         string         `json:"id" validate:"required"`
	FirstName  string         `json:"first_name,omitempty"`
	LastName   string         `json:"last_name,omitempty"`
	Email      string         `json:"email,omitempty" validate:"omitempty,email"`
	Title      string         `json:"title,omitempty"`
	Department string         `json:"department,omitempty"`
	StartDate  string         `json:"start_date,omitempty"`
	Status     string         `json:"status,omitempty" validate:"omitempty,oneof=active inactive pending"`
	RawData    map[string]any `json:"raw_data,omitempty"`
}

var EmployeeSchema = mapper.SchemaOf[Employee]()

type EmployeeLister interface {
	ListEmployees(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Employee], error)
}

func New() *vertical.Vertical {
	return vertical.New(Name,
		vertical.List("listEmployees", EntityEmployee, EmployeeLister.ListEmployees),
	)
}
