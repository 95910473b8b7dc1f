// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package etl declares the raw record vertical used to read any stream of a connector
// without unification.
package etl

import (
	"context"

	"github.com/mia-platform/unisync/internal/vertical"
)

const Name = "etl"

// Record is one record of a connector stream in its native shape.
type Record struct {
	Stream string         `json:"stream"`
	ID     string         `json:"id"`
	Data   map[string]any `json:"data"`
}

type Reader interface {
	Read(ctx context.Context, req vertical.Request[vertical.ListInput]) (vertical.Page[Record], error)
}

func New() *vertical.Vertical {
	return vertical.New(Name,
		vertical.List("read", "record", Reader.Read),
	)
}
