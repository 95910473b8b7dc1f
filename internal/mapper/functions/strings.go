// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package functions

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Quote returns the string form of s wrapped in double quotes.
func Quote(s any) string {
	return fmt.Sprintf("%q", castToString(s))
}

func TrimSpace(s any) string {
	return strings.TrimSpace(castToString(s))
}

func TrimPrefix(prefix string, s any) string {
	return strings.TrimPrefix(castToString(s), prefix)
}

func TrimSuffix(suffix string, s any) string {
	return strings.TrimSuffix(castToString(s), suffix)
}

// Replace substitutes every occurrence of old with replacement.
func Replace(old, replacement string, s any) string {
	return strings.ReplaceAll(castToString(s), old, replacement)
}

func ToUpper(s any) string {
	return strings.ToUpper(castToString(s))
}

func ToLower(s any) string {
	return strings.ToLower(castToString(s))
}

// Truncate keeps the first length runes of s, or the last ones when length is negative.
func Truncate(length int, s any) string {
	runes := []rune(castToString(s))
	switch {
	case length < 0 && len(runes)+length > 0:
		return string(runes[len(runes)+length:])
	case length >= 0 && len(runes) > length:
		return string(runes[:length])
	default:
		return string(runes)
	}
}

func Split(sep string, s any) []string {
	return strings.Split(castToString(s), sep)
}

// Join concatenates the string form of every element of list using sep.
func Join(sep string, list any) (string, error) {
	elements, err := toSlice(list)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(elements))
	for _, element := range elements {
		parts = append(parts, castToString(element))
	}
	return strings.Join(parts, sep), nil
}

func EncodeBase64(s any) string {
	return base64.StdEncoding.EncodeToString([]byte(castToString(s)))
}

func DecodeBase64(s any) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(castToString(s))
	if err != nil {
		return "", err
	}

	return string(decoded), nil
}

func castToString(obj any) string {
	switch v := obj.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
