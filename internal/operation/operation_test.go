// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package operation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalOperation(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		operation    Operation
		expectedJSON string
		expectedErr  error
	}{
		"data operation": {
			operation:    NewData("1", "transaction", map[string]any{"amt": 10}, "plaid").WithConnection("conn_1"),
			expectedJSON: `{"type":"data","data":{"id":"1","entityName":"transaction","entity":{"amt":10},"connectorName":"plaid","connection_id":"conn_1"}}`,
		},
		"state complete carries opaque states": {
			operation:    NewStateComplete(json.RawMessage(`{"last_id":"42"}`), nil),
			expectedJSON: `{"type":"stateUpdate","data":{"subtype":"complete","sourceState":{"last_id":"42"}}}`,
		},
		"commit has an empty payload": {
			operation:    NewCommit(),
			expectedJSON: `{"type":"commit","data":{}}`,
		},
		"ready": {
			operation:    NewReady("accounts"),
			expectedJSON: `{"type":"ready","data":{"source":"accounts"}}`,
		},
		"missing payload": {
			operation:   Operation{Type: TypeData},
			expectedErr: ErrMissingPayload,
		},
		"unknown type": {
			operation:   Operation{Type: "delete"},
			expectedErr: ErrUnknownType,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(test.operation)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.JSONEq(t, test.expectedJSON, string(data))
		})
	}
}

func TestUnmarshalOperation(t *testing.T) {
	t.Parallel()

	var op Operation
	require.NoError(t, json.Unmarshal([]byte(`{"type":"resoUpdate","data":{"id":"conn_1","settings":{"token":"new"}}}`), &op))
	assert.Equal(t, NewResoUpdate("conn_1", map[string]any{"token": "new"}), op)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"commit"}`), &op))
	assert.Equal(t, NewCommit(), op)

	err := json.Unmarshal([]byte(`{"type":"data"}`), &op)
	assert.ErrorIs(t, err, ErrMissingPayload)

	err = json.Unmarshal([]byte(`{"type":"unknown","data":{}}`), &op)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestCloneDoesNotShareEntity(t *testing.T) {
	t.Parallel()

	original := NewData("1", "account", map[string]any{"name": "checking"}, "teller")
	clone := original.Clone()
	clone.Data.Entity["name"] = "savings"
	clone.Data.EntityName = "renamed"

	assert.Equal(t, "checking", original.Data.Entity["name"])
	assert.Equal(t, "account", original.Data.EntityName)
}

func TestOperationString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "data(account/1)", NewData("1", "account", nil, "teller").String())
	assert.Equal(t, "stateUpdate(init)", NewStateInit().String())
	assert.Equal(t, "commit", NewCommit().String())
}
