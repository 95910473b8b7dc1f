// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package functions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToFloat converts numbers and numeric strings to float64.
func ToFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to a number", value)
	}
}

// Negate flips the sign of a numeric value. Providers such as plaid report outflows
// as positive amounts.
func Negate(value any) (float64, error) {
	number, err := ToFloat(value)
	if err != nil {
		return 0, err
	}

	return -number, nil
}

// FromCents converts an amount expressed in minor units to major units.
func FromCents(value any) (float64, error) {
	number, err := ToFloat(value)
	if err != nil {
		return 0, err
	}

	return number / 100, nil
}

// Sign returns "positive", "negative" or "zero" for a numeric value.
func Sign(value any) (string, error) {
	number, err := ToFloat(value)
	if err != nil {
		return "", err
	}

	switch {
	case number > 0:
		return "positive", nil
	case number < 0:
		return "negative", nil
	default:
		return "zero", nil
	}
}
