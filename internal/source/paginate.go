// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package source

import (
	"context"
	"errors"
	"fmt"
)

const loggerName = "unisync:source"

// ErrTooManyPages is returned when a provider keeps returning new pages past the limit.
var ErrTooManyPages = errors.New("too many pages")

// DefaultMaxPages bounds Paginate loops.
const DefaultMaxPages = 10_000

// PageFunc fetches the page starting at cursor. It returns the items and the cursor of
// the next page, empty on the last page.
type PageFunc[T any] func(ctx context.Context, cursor string) (items []T, next string, err error)

// EmitFunc handles the items of one page. next is the cursor to resume after the page.
type EmitFunc[T any] func(ctx context.Context, items []T, next string) error

// Paginate fetches pages starting from cursor until the provider reports no next page.
// A provider returning the cursor it was called with is treated as exhausted.
func Paginate[T any](ctx context.Context, cursor string, fetch PageFunc[T], emit EmitFunc[T]) error {
	for page := 0; page < DefaultMaxPages; page++ {
		items, next, err := fetch(ctx, cursor)
		if err != nil {
			return err
		}

		if err := emit(ctx, items, next); err != nil {
			return err
		}

		if next == "" || next == cursor {
			return nil
		}
		cursor = next
	}

	return fmt.Errorf("%w: stopped after %d pages", ErrTooManyPages, DefaultMaxPages)
}
