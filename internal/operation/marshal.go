// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package operation

import (
	"encoding/json"
	"fmt"
)

type wireOperation struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (o Operation) payload() any {
	switch o.Type {
	case TypeData:
		return o.Data
	case TypeResoUpdate:
		return o.ResoUpdate
	case TypeStateUpdate:
		return o.StateUpdate
	case TypeReady:
		return o.Ready
	case TypeCommit:
		return struct{}{}
	}

	return nil
}

// MarshalJSON encodes the operation as {"type": <tag>, "data": <payload>}.
func (o Operation) MarshalJSON() ([]byte, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(o.payload())
	if err != nil {
		return nil, err
	}

	return json.Marshal(wireOperation{Type: o.Type, Data: data})
}

func (o *Operation) UnmarshalJSON(b []byte) error {
	var wire wireOperation
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	op := Operation{Type: wire.Type}
	var target any
	switch wire.Type {
	case TypeData:
		op.Data = new(Data)
		target = op.Data
	case TypeResoUpdate:
		op.ResoUpdate = new(ResoUpdate)
		target = op.ResoUpdate
	case TypeStateUpdate:
		op.StateUpdate = new(StateUpdate)
		target = op.StateUpdate
	case TypeReady:
		op.Ready = new(Ready)
		target = op.Ready
	case TypeCommit:
		op.Commit = new(Commit)
		*o = op
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, wire.Type)
	}

	if len(wire.Data) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingPayload, wire.Type)
	}
	if err := json.Unmarshal(wire.Data, target); err != nil {
		return fmt.Errorf("decoding %s payload: %w", wire.Type, err)
	}

	*o = op
	return nil
}
