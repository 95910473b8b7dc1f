// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package functions

import (
	"encoding/json"
	"maps"
)

// Object builds a map from alternating key and value arguments.
func Object(keyAndValues ...any) map[string]any {
	obj := make(map[string]any, len(keyAndValues)/2)
	for idx := 0; idx < len(keyAndValues); idx += 2 {
		var value any
		if idx+1 < len(keyAndValues) {
			value = keyAndValues[idx+1]
		}
		obj[castToString(keyAndValues[idx])] = value
	}

	return obj
}

// ToJSON returns the JSON encoding of v or an empty string when it cannot be encoded.
func ToJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return string(data)
}

func Pick(object map[string]any, keys ...string) map[string]any {
	result := make(map[string]any, len(keys))
	for _, key := range keys {
		if val, exists := object[key]; exists {
			result[key] = val
		}
	}

	return result
}

func Get(key string, defaultValue any, object map[string]any) any {
	if val, exists := object[key]; exists && val != nil {
		return val
	}

	return defaultValue
}

// Set returns a copy of object with key set to value.
func Set(key string, value any, object map[string]any) map[string]any {
	result := maps.Clone(object)
	if result == nil {
		result = make(map[string]any, 1)
	}
	result[key] = value
	return result
}

// Default returns value unless it is nil or an empty string.
func Default(defaultValue any, value any) any {
	if isEmpty(value) {
		return defaultValue
	}

	return value
}

// Coalesce returns the first argument that is not nil nor an empty string.
func Coalesce(values ...any) any {
	for _, value := range values {
		if !isEmpty(value) {
			return value
		}
	}

	return nil
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	str, ok := value.(string)
	return ok && str == ""
}
