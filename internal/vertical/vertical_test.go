// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package vertical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID string `json:"id"`
}

type widgetLister interface {
	ListWidgets(ctx context.Context, req Request[ListInput]) (Page[widget], error)
}

type gadgetLister interface {
	ListGadgets(ctx context.Context, req Request[ListInput]) (Page[widget], error)
}

type widgetGetter interface {
	GetWidget(ctx context.Context, req Request[GetInput]) (widget, error)
}

type widgetAdapter struct {
	received Request[ListInput]
}

func (a *widgetAdapter) ListWidgets(_ context.Context, req Request[ListInput]) (Page[widget], error) {
	a.received = req
	next := "next"
	return NewPage([]widget{{ID: "w1"}}, &next), nil
}

func (a *widgetAdapter) GetWidget(_ context.Context, req Request[GetInput]) (widget, error) {
	return widget{ID: req.Input.ID}, nil
}

type unrelated struct{}

func newTestVertical() *Vertical {
	return New("test",
		List("listWidgets", "widget", widgetLister.ListWidgets),
		List("listGadgets", "gadget", gadgetLister.ListGadgets),
		Get("getWidget", "widget", widgetGetter.GetWidget),
	)
}

func TestRegister(t *testing.T) {
	t.Parallel()

	v := newTestVertical()
	assert.ErrorIs(t, v.Register("nothing", unrelated{}), ErrInvalidAdapter)
	assert.ErrorIs(t, v.Register("nil", nil), ErrInvalidAdapter)

	adapter := new(widgetAdapter)
	require.NoError(t, v.Register("acme", adapter))
	assert.Equal(t, []string{"getWidget", "listWidgets"}, v.Implemented(adapter))
	assert.Equal(t, []string{"acme"}, v.Connectors())
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	v := newTestVertical()
	adapter := new(widgetAdapter)
	require.NoError(t, v.Register("acme", adapter))

	testCases := map[string]struct {
		call        Call
		expected    any
		expectedErr error
	}{
		"list dispatch applies defaults": {
			call: Call{
				ConnectorName: "acme",
				Operation:     "listWidgets",
				Instance:      "client",
				Input:         ListInput{Cursor: "abc"},
				Context:       Context{ConnectionID: "conn_1", ConnectorName: "acme"},
			},
			expected: NewPage([]widget{{ID: "w1"}}, ptr("next")),
		},
		"point read": {
			call:     Call{ConnectorName: "acme", Operation: "getWidget", Input: GetInput{ID: "w9"}},
			expected: widget{ID: "w9"},
		},
		"connector without adapter is not configured": {
			call:        Call{ConnectorName: "other", Operation: "listWidgets", Input: ListInput{}},
			expectedErr: ErrNotConfigured,
		},
		"missing method is not implemented": {
			call:        Call{ConnectorName: "acme", Operation: "listGadgets", Input: ListInput{}},
			expectedErr: ErrNotImplemented,
		},
		"unknown operation": {
			call:        Call{ConnectorName: "acme", Operation: "deleteWidget"},
			expectedErr: ErrUnknownOperation,
		},
		"wrong input type": {
			call:        Call{ConnectorName: "acme", Operation: "listWidgets", Input: GetInput{}},
			expectedErr: ErrInvalidInput,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			result, err := v.Dispatch(t.Context(), test.call)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expected, result)
		})
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	v := newTestVertical()
	require.NoError(t, v.Register("acme", new(widgetAdapter)))

	testCases := map[string]struct {
		connectorName string
		operation     string
		expectedErr   error
	}{
		"supported operation": {
			connectorName: "acme",
			operation:     "listWidgets",
		},
		"connector without adapter": {
			connectorName: "other",
			operation:     "listWidgets",
			expectedErr:   ErrNotConfigured,
		},
		"adapter without method": {
			connectorName: "acme",
			operation:     "listGadgets",
			expectedErr:   ErrNotImplemented,
		},
		"unknown operation": {
			connectorName: "acme",
			operation:     "deleteWidget",
			expectedErr:   ErrUnknownOperation,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := v.Check(test.connectorName, test.operation)
			if test.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestDispatchPassesRequest(t *testing.T) {
	t.Parallel()

	v := newTestVertical()
	adapter := new(widgetAdapter)
	require.NoError(t, v.Register("acme", adapter))

	_, err := v.Dispatch(t.Context(), Call{
		ConnectorName: "acme",
		Operation:     "listWidgets",
		Instance:      "client",
		Input:         ListInput{Cursor: "abc", PageSize: 5000},
		Context:       Context{ConnectionID: "conn_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, Request[ListInput]{
		Instance: "client",
		Input:    ListInput{Cursor: "abc", PageSize: MaxPageSize, SyncMode: SyncModeFull},
		Context:  Context{ConnectionID: "conn_1"},
	}, adapter.received)
}

func TestParseListInput(t *testing.T) {
	t.Parallel()

	input, err := ParseListInput("abc", "", "incremental")
	require.NoError(t, err)
	assert.Equal(t, ListInput{Cursor: "abc", PageSize: DefaultPageSize, SyncMode: SyncModeIncremental}, input)

	_, err = ParseListInput("", "ten", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseListInput("", "", "sometimes")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRouter(t *testing.T) {
	t.Parallel()

	router := NewRouter(newTestVertical())

	registered, err := router.RegisterAdapter("acme", new(widgetAdapter))
	require.NoError(t, err)
	assert.Equal(t, []string{"test"}, registered)

	_, err = router.RegisterAdapter("nothing", unrelated{})
	assert.ErrorIs(t, err, ErrInvalidAdapter)

	_, operation, err := router.Resolve("test", "widget", false)
	require.NoError(t, err)
	assert.Equal(t, "listWidgets", operation)

	_, operation, err = router.Resolve("test", "widget", true)
	require.NoError(t, err)
	assert.Equal(t, "getWidget", operation)

	_, _, err = router.Resolve("test", "sprocket", false)
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, _, err = router.Resolve("crm", "contact", false)
	assert.ErrorIs(t, err, ErrUnknownVertical)
}

func ptr(s string) *string {
	return &s
}
