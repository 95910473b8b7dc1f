// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package functions

import (
	"fmt"
	"time"
)

var nowFn = time.Now

var acceptedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Now returns the current time in UTC in RFC3339 format.
func Now() string {
	return nowFn().UTC().Format(time.RFC3339)
}

// ToRFC3339 normalizes the date formats commonly returned by providers to RFC3339 in UTC.
func ToRFC3339(value any) (string, error) {
	raw := castToString(value)
	if raw == "" {
		return "", nil
	}

	for _, layout := range acceptedLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC().Format(time.RFC3339), nil
		}
	}

	return "", fmt.Errorf("unsupported date format %q", raw)
}

// UnixToRFC3339 converts seconds since the epoch to RFC3339 in UTC.
func UnixToRFC3339(value any) (string, error) {
	seconds, err := ToFloat(value)
	if err != nil {
		return "", err
	}

	return time.Unix(int64(seconds), 0).UTC().Format(time.RFC3339), nil
}
