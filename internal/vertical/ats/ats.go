// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package ats declares the unified applicant tracking vertical.
package ats

import (
	"context"

	"github.com/mia-platform/unisync/internal/mapper"
	"github.com/mia-platform/unisync/internal/vertical"
)

const Name = "ats"

const (
	EntityJob       = "job"
	EntityCandidate = "candidate"
)

type Job struct {
	ID         string         `json:"id" validate:"required"`
	Title      string         `json:"title" validate:"required"`
	Status     string         `json:"status,omitempty" validate:"omitempty,oneof=open closed draft archived"`
	Department string         `json:"department,omitempty"`
	Location   string         `json:"location,omitempty"`
	UpdatedAt  string         `json:"updated_at,omitempty"`
	RawData    map[string]any `json:"raw_data,omitempty"`
}

type Candidate struct {
	ID            string         `json:"id" validate:"required"`
	FirstName     string         `json:"first_name,omitempty"`
	LastName      string         `json:"last_name,omitempty"`
	Email         string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string         `json:"phone,omitempty"`
	AppliedJobIDs []string       `json:"applied_job_ids,omitempty"`
	UpdatedAt     string         `json:"updated_at,omitempty"`
	RawData       map[string]any `json:"raw_data,omitempty"`
}

var (
	JobSchema       = mapper.SchemaOf[Job]()
	CandidateSchema = mapper.SchemaOf[Candidate]()
)

type JobLister interface {
	ListJobs(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Job], error)
}

type CandidateLister interface {
	ListCandidates(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Candidate], error)
}

func New() *vertical.Vertical {
	return vertical.New(Name,
		vertical.List("listJobs", EntityJob, JobLister.ListJobs),
		vertical.List("listCandidates", EntityCandidate, CandidateLister.ListCandidates),
	)
}
