// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Schema validates the shape of a record.
type Schema interface {
	Name() string
	Validate(record map[string]any) error
}

type anySchema struct{}

func (anySchema) Name() string                  { return "any" }
func (anySchema) Validate(map[string]any) error { return nil }

// AnySchema accepts every record.
var AnySchema Schema = anySchema{}

type structSchema[T any] struct {
	name string
}

// SchemaOf returns a Schema that accepts records decodable into T whose fields satisfy
// the `validate` struct tags of T.
func SchemaOf[T any]() Schema {
	var zero T
	return structSchema[T]{name: reflect.TypeOf(zero).Name()}
}

func (s structSchema[T]) Name() string {
	return s.name
}

func (s structSchema[T]) Validate(record map[string]any) error {
	value, err := Decode[T](record)
	if err != nil {
		return err
	}

	if reflect.ValueOf(value).Kind() != reflect.Struct {
		return nil
	}

	if err := validate.Struct(value); err != nil {
		return describeValidationErrors(err)
	}
	return nil
}

// Decode converts a record into the typed value T.
func Decode[T any](record map[string]any) (T, error) {
	var result T
	if typed, ok := any(record).(T); ok {
		return typed, nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("record is not a valid %T: %w", result, err)
	}

	return result, nil
}

// Encode converts a typed value into a record.
func Encode(value any) (map[string]any, error) {
	if record, ok := value.(map[string]any); ok {
		return record, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("value of type %T is not an object: %w", value, err)
	}
	return record, nil
}

func describeValidationErrors(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, fmt.Sprintf("field %q failed rule %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%s: %w", strings.Join(messages, ", "), err)
}
