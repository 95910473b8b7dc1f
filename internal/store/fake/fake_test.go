// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"testing"

	"github.com/mia-platform/unisync/internal/store"
	"github.com/mia-platform/unisync/internal/store/storetest"
)

func TestFakeStore(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		return NewStore(t)
	})
}
