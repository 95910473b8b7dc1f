// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

// RawDataKey is the output field holding the original input record.
const RawDataKey = "raw_data"

var errNullInput = errors.New("input is null")

// Fields associates every output field with the entry computing its value.
type Fields map[string]Entry

// WholeFunc maps a whole input record, replacing the per field algorithm.
type WholeFunc func(input map[string]any) (map[string]any, error)

// Mapper transforms records of its input Schema into records of its output Schema.
type Mapper struct {
	input  Schema
	output Schema
	fields Fields
	whole  WholeFunc
}

// New returns a Mapper computing each output field with the matching entry.
func New(input, output Schema, fields Fields) *Mapper {
	return &Mapper{
		input:  orAny(input),
		output: orAny(output),
		fields: fields,
	}
}

// NewWhole returns a Mapper whose output is computed by fn. The raw input is still
// attached to the result.
func NewWhole(input, output Schema, fn WholeFunc) *Mapper {
	return &Mapper{
		input:  orAny(input),
		output: orAny(output),
		whole:  fn,
	}
}

func orAny(schema Schema) Schema {
	if schema == nil {
		return AnySchema
	}
	return schema
}

func (m *Mapper) InputSchema() Schema  { return m.input }
func (m *Mapper) OutputSchema() Schema { return m.output }

// Apply maps input without validating it. The returned record always contains a deep
// copy of input under RawDataKey.
func (m *Mapper) Apply(input map[string]any) (map[string]any, error) {
	output, err := m.apply(input)
	if err != nil {
		return nil, err
	}

	output[RawDataKey] = deepCopy(input)
	return output, nil
}

func (m *Mapper) apply(input map[string]any) (map[string]any, error) {
	if m.whole != nil {
		output, err := m.whole(input)
		if err != nil {
			return nil, err
		}
		if output == nil {
			return make(map[string]any, 1), nil
		}
		return maps.Clone(output), nil
	}

	output := make(map[string]any, len(m.fields)+1)
	for field, entry := range m.fields {
		value, err := entry.Resolve(input)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		if value != nil {
			output[field] = value
		}
	}

	return output, nil
}

// Parse normalizes input into a record, validates it against the input schema, maps it
// and validates the result against the output schema.
func (m *Mapper) Parse(input any) (map[string]any, error) {
	record, err := normalize(input)
	if err != nil {
		return nil, &ValidationError{Schema: m.input.Name(), Stage: StageInput, Err: err}
	}

	if err := m.input.Validate(record); err != nil {
		return nil, &ValidationError{Schema: m.input.Name(), Stage: StageInput, Err: err}
	}

	output, err := m.apply(record)
	if err != nil {
		return nil, err
	}

	if err := m.output.Validate(output); err != nil {
		return nil, &ValidationError{Schema: m.output.Name(), Stage: StageOutput, Err: err}
	}

	output[RawDataKey] = deepCopy(record)
	return output, nil
}

func normalize(input any) (map[string]any, error) {
	if record, ok := input.(map[string]any); ok {
		return record, nil
	}

	data, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("input of type %T is not an object", input)
	}
	if record == nil {
		return nil, errNullInput
	}
	return record, nil
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return v
		}
		copied := make(map[string]any, len(v))
		for key, item := range v {
			copied[key] = deepCopy(item)
		}
		return copied
	case []any:
		if v == nil {
			return v
		}
		copied := make([]any, len(v))
		for idx, item := range v {
			copied[idx] = deepCopy(item)
		}
		return copied
	default:
		return v
	}
}
