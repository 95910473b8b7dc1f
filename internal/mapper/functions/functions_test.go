// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package functions

import (
	"bytes"
	"testing"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateFunctions(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		template string
		input    map[string]any
		expected string
	}{
		"strings pipeline": {
			template: `{{ .name | trimSpace | upper }}`,
			input:    map[string]any{"name": "  checking  "},
			expected: "CHECKING",
		},
		"truncate from the end": {
			template: `{{ .mask | truncate -4 }}`,
			input:    map[string]any{"mask": "0000111122223333"},
			expected: "3333",
		},
		"join list": {
			template: `{{ .tags | join "," }}`,
			input:    map[string]any{"tags": []any{"food", "groceries"}},
			expected: "food,groceries",
		},
		"first element": {
			template: `{{ .category | first }}`,
			input:    map[string]any{"category": []string{"Food and Drink", "Restaurants"}},
			expected: "Food and Drink",
		},
		"default on missing value": {
			template: `{{ .currency | default "USD" }}`,
			input:    map[string]any{},
			expected: "USD",
		},
		"coalesce": {
			template: `{{ coalesce .merchant_name .name }}`,
			input:    map[string]any{"merchant_name": "", "name": "Coffee Shop"},
			expected: "Coffee Shop",
		},
		"negate amount": {
			template: `{{ .amount | negate }}`,
			input:    map[string]any{"amount": 12.5},
			expected: "-12.5",
		},
		"from cents": {
			template: `{{ .amount | fromCents }}`,
			input:    map[string]any{"amount": "1250"},
			expected: "12.5",
		},
		"date normalization": {
			template: `{{ .date | toRFC3339 }}`,
			input:    map[string]any{"date": "2024-06-10"},
			expected: "2024-06-10T00:00:00Z",
		},
		"unix seconds": {
			template: `{{ .created | unixToTime }}`,
			input:    map[string]any{"created": 1718031845},
			expected: "2024-06-10T15:04:05Z",
		},
		"sha256": {
			template: `{{ sha256sum "hello world" }}`,
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
		"dict and json": {
			template: `{{ dict "id" .id "kind" "account" | toJSON }}`,
			input:    map[string]any{"id": "acc_1"},
			expected: `{"id":"acc_1","kind":"account"}`,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tmpl, err := template.New(name).Funcs(FuncMap()).Option("missingkey=zero").Parse(test.template)
			require.NoError(t, err)

			buffer := new(bytes.Buffer)
			require.NoError(t, tmpl.Execute(buffer, test.input))
			assert.Equal(t, test.expected, buffer.String())
		})
	}
}

func TestListFunctionsRejectScalars(t *testing.T) {
	t.Parallel()

	_, err := First(42)
	assert.Error(t, err)

	items, err := Append("c", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, items)

	items, err = Prepend("z", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"z"}, items)
}

func TestSetDoesNotMutate(t *testing.T) {
	t.Parallel()

	original := map[string]any{"a": 1}
	updated := Set("b", 2, original)
	assert.Equal(t, map[string]any{"a": 1}, original)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, updated)
}

func TestSign(t *testing.T) {
	t.Parallel()

	for value, expected := range map[any]string{10: "positive", -5.5: "negative", "0": "zero"} {
		sign, err := Sign(value)
		require.NoError(t, err)
		assert.Equal(t, expected, sign)
	}

	_, err := Sign(map[string]any{})
	assert.Error(t, err)
}

func TestNow(t *testing.T) {
	loc := time.FixedZone("Fixed+01", int((1 * time.Hour).Seconds()))
	nowFn = func() time.Time {
		return time.Date(2024, 6, 10, 15, 4, 5, 0, loc)
	}
	t.Cleanup(func() { nowFn = time.Now })

	assert.Equal(t, "2024-06-10T14:04:05Z", Now())
}

func TestIdentifiers(t *testing.T) {
	t.Parallel()

	id, err := UUIDV4()
	require.NoError(t, err)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.EqualValues(t, 4, parsed.Version())

	id, err = UUIDV7()
	require.NoError(t, err)
	parsed, err = uuid.Parse(id)
	require.NoError(t, err)
	assert.EqualValues(t, 7, parsed.Version())

	assert.Equal(t, UUIDV5("txn_1"), UUIDV5("txn_1"))
	assert.NotEqual(t, UUIDV5("txn_1"), UUIDV5("txn_2"))
}
