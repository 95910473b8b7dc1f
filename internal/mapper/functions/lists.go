// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package functions

import (
	"fmt"
	"reflect"
)

// List creates a list from the provided elements.
func List(elements ...any) []any {
	return elements
}

// Append returns a new list with elements added after the ones of list.
func Append(elements any, list any) ([]any, error) {
	items, err := toSlice(list)
	if err != nil {
		return nil, err
	}

	return append(items, elements), nil
}

// Prepend returns a new list with element added before the ones of list.
func Prepend(element any, list any) ([]any, error) {
	items, err := toSlice(list)
	if err != nil {
		return nil, err
	}

	return append([]any{element}, items...), nil
}

// First returns the first element of a list or nil when it is empty.
func First(list any) (any, error) {
	items, err := toSlice(list)
	if err != nil || len(items) == 0 {
		return nil, err
	}

	return items[0], nil
}

// Last returns the last element of a list or nil when it is empty.
func Last(list any) (any, error) {
	items, err := toSlice(list)
	if err != nil || len(items) == 0 {
		return nil, err
	}

	return items[len(items)-1], nil
}

// toSlice copies any slice or array into a []any. A nil value is an empty list.
func toSlice(list any) ([]any, error) {
	if list == nil {
		return []any{}, nil
	}

	value := reflect.ValueOf(list)
	switch value.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, value.Len())
		for i := range value.Len() {
			items[i] = value.Index(i).Interface()
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected a list, got %s", value.Kind())
	}
}
