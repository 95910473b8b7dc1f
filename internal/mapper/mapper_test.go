// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mapper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerTransaction struct {
	ID     string  `json:"id" validate:"required"`
	Amount float64 `json:"amt"`
}

type unifiedTransaction struct {
	ID       string  `json:"id" validate:"required"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category" validate:"required,oneof=income expense"`
}

func mustEntry(t *testing.T) func(Entry, error) Entry {
	return func(entry Entry, err error) Entry {
		t.Helper()
		require.NoError(t, err)
		return entry
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		fields        func(t *testing.T) Fields
		input         map[string]any
		expected      map[string]any
		expectedError error
	}{
		"key paths literals and functions": {
			fields: func(*testing.T) Fields {
				return Fields{
					"id":       Path("id"),
					"currency": Literal("USD"),
					"city":     Path("location.address.city"),
					"double": Func(func(input map[string]any) (any, error) {
						return input["amt"].(float64) * 2, nil
					}),
				}
			},
			input: map[string]any{"id": "1", "amt": 10.0, "location": map[string]any{"address": map[string]any{"city": "Milan"}}},
			expected: map[string]any{
				"id":       "1",
				"currency": "USD",
				"city":     "Milan",
				"double":   20.0,
			},
		},
		"missing optional chain resolves to an absent field": {
			fields: func(*testing.T) Fields {
				return Fields{
					"city":    Path("location.address.city"),
					"country": Path("location.country"),
				}
			},
			input:    map[string]any{"location": nil},
			expected: map[string]any{},
		},
		"key path indexes lists": {
			fields: func(*testing.T) Fields {
				return Fields{
					"category": Path("category.0"),
					"missing":  Path("category.5"),
				}
			},
			input:    map[string]any{"category": []any{"Food", "Restaurants"}},
			expected: map[string]any{"category": "Food"},
		},
		"key path through a scalar is an error": {
			fields: func(*testing.T) Fields {
				return Fields{"city": Path("location.city")}
			},
			input:         map[string]any{"location": "Milan"},
			expectedError: &KeyPathError{},
		},
		"templates decode json values": {
			fields: func(t *testing.T) Fields {
				return Fields{
					"amount":  mustEntry(t)(Template(`{{ .amt | negate }}`)),
					"label":   mustEntry(t)(Template(`{{ .name | trimSpace }}-{{ .id }}`)),
					"id":      mustEntry(t)(StringTemplate(`{{ .id }}`)),
					"missing": mustEntry(t)(Template(`{{ .nothing }}`)),
				}
			},
			input:    map[string]any{"id": "42", "amt": 12.5, "name": " coffee "},
			expected: map[string]any{"amount": -12.5, "label": "coffee-42", "id": "42"},
		},
		"jmespath expressions": {
			fields: func(t *testing.T) Fields {
				return Fields{
					"primaryEmail": mustEntry(t)(Expr(`emails[?primary].address | [0]`)),
				}
			},
			input: map[string]any{"emails": []any{
				map[string]any{"address": "a@example.com", "primary": false},
				map[string]any{"address": "b@example.com", "primary": true},
			}},
			expected: map[string]any{"primaryEmail": "b@example.com"},
		},
		"function errors are propagated": {
			fields: func(*testing.T) Fields {
				return Fields{"broken": Func(func(map[string]any) (any, error) {
					return nil, errBoom
				})}
			},
			input:         map[string]any{},
			expectedError: errBoom,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := New(nil, nil, test.fields(t))
			output, err := m.Apply(test.input)
			if test.expectedError != nil {
				var keyPathErr *KeyPathError
				if errors.As(test.expectedError, &keyPathErr) {
					assert.ErrorAs(t, err, &keyPathErr)
				} else {
					assert.ErrorIs(t, err, test.expectedError)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.input, output[RawDataKey])
			delete(output, RawDataKey)
			assert.Equal(t, test.expected, output)
		})
	}
}

var errBoom = errors.New("boom")

func TestRawDataIsPreserved(t *testing.T) {
	t.Parallel()

	input := map[string]any{
		"id":    "1",
		"tags":  []any{"a", map[string]any{"b": 1}},
		"owner": map[string]any{"name": "alice"},
	}

	m := NewWhole(nil, nil, func(input map[string]any) (map[string]any, error) {
		input["owner"].(map[string]any)["name"] = "mutated after copy"
		return map[string]any{"id": input["id"]}, nil
	})

	output, err := m.Apply(input)
	require.NoError(t, err)
	assert.Equal(t, "1", output["id"])

	raw, ok := output[RawDataKey].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, input, raw)

	raw["owner"].(map[string]any)["name"] = "changed"
	assert.Equal(t, "mutated after copy", input["owner"].(map[string]any)["name"])
}

func TestWholeMapperNilResult(t *testing.T) {
	t.Parallel()

	m := NewWhole(nil, nil, func(map[string]any) (map[string]any, error) { return nil, nil })
	output, err := m.Apply(map[string]any{"id": "1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{RawDataKey: map[string]any{"id": "1"}}, output)
}

func TestParse(t *testing.T) {
	t.Parallel()

	m := New(SchemaOf[providerTransaction](), SchemaOf[unifiedTransaction](), Fields{
		"id":     Path("id"),
		"amount": Path("amt"),
		"category": Func(func(input map[string]any) (any, error) {
			if input["amt"].(float64) > 0 {
				return "income", nil
			}
			return "expense", nil
		}),
	})

	t.Run("valid typed input", func(t *testing.T) {
		t.Parallel()

		output, err := m.Parse(providerTransaction{ID: "1", Amount: 10})
		require.NoError(t, err)
		assert.Equal(t, "income", output["category"])
		assert.Equal(t, map[string]any{"id": "1", "amt": 10.0}, output[RawDataKey])

		unified, err := Decode[unifiedTransaction](output)
		require.NoError(t, err)
		assert.Equal(t, unifiedTransaction{ID: "1", Amount: 10, Category: "income"}, unified)
	})

	t.Run("input rejected", func(t *testing.T) {
		t.Parallel()

		_, err := m.Parse(map[string]any{"amt": 10.0})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, StageInput, validationErr.Stage)
		assert.Equal(t, "providerTransaction", validationErr.Schema)
	})

	t.Run("output rejected", func(t *testing.T) {
		t.Parallel()

		broken := New(AnySchema, SchemaOf[unifiedTransaction](), Fields{"id": Path("id")})
		_, err := broken.Parse(map[string]any{"id": "1"})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, StageOutput, validationErr.Stage)
		assert.ErrorContains(t, err, "Category")
	})

	t.Run("non object input", func(t *testing.T) {
		t.Parallel()

		_, err := m.Parse([]string{"a"})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, StageInput, validationErr.Stage)
	})
}

func TestBrokenTemplateAndExpression(t *testing.T) {
	t.Parallel()

	_, err := Template("{{ .name | unknownFunc }}")
	var parsingErr *ParsingError
	require.ErrorAs(t, err, &parsingErr)

	_, err = Expr("items[")
	require.ErrorAs(t, err, &parsingErr)
}
