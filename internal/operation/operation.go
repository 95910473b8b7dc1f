// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package operation

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

var (
	ErrUnknownType    = errors.New("unknown operation type")
	ErrMissingPayload = errors.New("operation payload missing")
)

// Type is the tag of an Operation.
type Type string

const (
	TypeData        Type = "data"
	TypeResoUpdate  Type = "resoUpdate"
	TypeStateUpdate Type = "stateUpdate"
	TypeReady       Type = "ready"
	TypeCommit      Type = "commit"
)

// StateSubtype marks the start or the end of a checkpointing window.
type StateSubtype string

const (
	StateInit     StateSubtype = "init"
	StateComplete StateSubtype = "complete"
)

// Data carries one record coming from a connection.
type Data struct {
	ID            string         `json:"id"`
	EntityName    string         `json:"entityName"`
	Entity        map[string]any `json:"entity"`
	ConnectorName string         `json:"connectorName"`
	ConnectionID  string         `json:"connection_id,omitempty"`
}

// ResoUpdate signals that the settings or the integration metadata of a connection changed.
type ResoUpdate struct {
	ID                 string         `json:"id"`
	Settings           map[string]any `json:"settings,omitempty"`
	Integration        map[string]any `json:"integration,omitempty"`
	TriggerDefaultSync bool           `json:"triggerDefaultSync,omitempty"`
}

// StateUpdate delimits a checkpointing window. Source and destination states are opaque
// blobs owned by the connectors.
type StateUpdate struct {
	Subtype          StateSubtype    `json:"subtype"`
	SourceState      json.RawMessage `json:"sourceState,omitempty"`
	DestinationState json.RawMessage `json:"destinationState,omitempty"`
}

// Ready signals that an independent sub-source exhausted its current batch.
type Ready struct {
	Source string `json:"source,omitempty"`
}

// Commit is an explicit flush boundary.
type Commit struct{}

// Operation is the tagged union of the elements of a sync stream. Exactly the payload
// matching Type is set.
type Operation struct {
	Type Type

	Data        *Data
	ResoUpdate  *ResoUpdate
	StateUpdate *StateUpdate
	Ready       *Ready
	Commit      *Commit
}

func NewData(id, entityName string, entity map[string]any, connectorName string) Operation {
	return Operation{
		Type: TypeData,
		Data: &Data{ID: id, EntityName: entityName, Entity: entity, ConnectorName: connectorName},
	}
}

func NewResoUpdate(id string, settings map[string]any) Operation {
	return Operation{Type: TypeResoUpdate, ResoUpdate: &ResoUpdate{ID: id, Settings: settings}}
}

func NewStateInit() Operation {
	return Operation{Type: TypeStateUpdate, StateUpdate: &StateUpdate{Subtype: StateInit}}
}

// NewStateComplete returns a checkpoint closing operation carrying the states to persist.
func NewStateComplete(sourceState, destinationState json.RawMessage) Operation {
	return Operation{
		Type: TypeStateUpdate,
		StateUpdate: &StateUpdate{
			Subtype:          StateComplete,
			SourceState:      sourceState,
			DestinationState: destinationState,
		},
	}
}

func NewReady(source string) Operation {
	return Operation{Type: TypeReady, Ready: &Ready{Source: source}}
}

func NewCommit() Operation {
	return Operation{Type: TypeCommit, Commit: &Commit{}}
}

// WithConnection returns a copy of a data operation tagged with the connection id.
// Other operation types are returned unchanged.
func (o Operation) WithConnection(connectionID string) Operation {
	if o.Type != TypeData || o.Data == nil {
		return o
	}

	data := *o.Data
	data.ConnectionID = connectionID
	o.Data = &data
	return o
}

// Clone returns a copy of the operation that does not share the top level payload
// and the entity map with the receiver.
func (o Operation) Clone() Operation {
	switch o.Type {
	case TypeData:
		if o.Data != nil {
			data := *o.Data
			data.Entity = maps.Clone(o.Data.Entity)
			o.Data = &data
		}
	case TypeResoUpdate:
		if o.ResoUpdate != nil {
			reso := *o.ResoUpdate
			reso.Settings = maps.Clone(o.ResoUpdate.Settings)
			reso.Integration = maps.Clone(o.ResoUpdate.Integration)
			o.ResoUpdate = &reso
		}
	case TypeStateUpdate:
		if o.StateUpdate != nil {
			state := *o.StateUpdate
			o.StateUpdate = &state
		}
	case TypeReady:
		if o.Ready != nil {
			ready := *o.Ready
			o.Ready = &ready
		}
	case TypeCommit:
	}

	return o
}

// Validate reports if the payload matching the operation type is present.
func (o Operation) Validate() error {
	var present bool
	switch o.Type {
	case TypeData:
		present = o.Data != nil
	case TypeResoUpdate:
		present = o.ResoUpdate != nil
	case TypeStateUpdate:
		present = o.StateUpdate != nil
	case TypeReady:
		present = o.Ready != nil
	case TypeCommit:
		present = true
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, o.Type)
	}

	if !present {
		return fmt.Errorf("%w: %s", ErrMissingPayload, o.Type)
	}
	return nil
}

func (o Operation) String() string {
	switch o.Type {
	case TypeData:
		if o.Data != nil {
			return fmt.Sprintf("data(%s/%s)", o.Data.EntityName, o.Data.ID)
		}
	case TypeStateUpdate:
		if o.StateUpdate != nil {
			return fmt.Sprintf("stateUpdate(%s)", o.StateUpdate.Subtype)
		}
	case TypeResoUpdate:
		if o.ResoUpdate != nil {
			return fmt.Sprintf("resoUpdate(%s)", o.ResoUpdate.ID)
		}
	case TypeReady, TypeCommit:
	}

	return string(o.Type)
}
