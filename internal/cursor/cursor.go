// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package cursor encodes pagination progress into opaque URL safe tokens.
package cursor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/mia-platform/unisync/internal/logger"
)

const loggerName = "unisync:cursor"

var (
	errNotAnObject  = errors.New("cursor payload is not a JSON object")
	errTrailingData = errors.New("cursor payload has trailing data")
)

// UpdatedAtID resumes an incremental read after the last record seen, ordered by
// update time and id.
type UpdatedAtID struct {
	LastUpdatedAt time.Time `json:"last_updated_at"`
	LastID        string    `json:"last_id"`
}

// UpdatedAtOffset resumes an incremental read at an offset among the records sharing
// the same update time.
type UpdatedAtOffset struct {
	LastUpdatedAt time.Time `json:"last_updated_at"`
	NextOffset    int       `json:"next_offset"`
}

// PageToken wraps a continuation token returned by a provider.
type PageToken struct {
	Token string `json:"token"`
}

// Shape lists the cursor payloads supported by the codec.
type Shape interface {
	UpdatedAtID | UpdatedAtOffset | PageToken
}

// Encode returns the opaque token for a cursor payload.
func Encode[T Shape](value T) string {
	data, err := json.Marshal(value)
	if err != nil {
		// the supported shapes always marshal
		panic(err)
	}

	return base64.RawURLEncoding.EncodeToString(data)
}

// EncodePtr is like Encode but returns nil for a nil payload, matching the next_cursor
// field of a page envelope.
func EncodePtr[T Shape](value *T) *string {
	if value == nil {
		return nil
	}

	token := Encode(*value)
	return &token
}

// Decode returns the cursor payload of token. An empty token returns false; a malformed
// token is logged as a warning and returns false, so callers restart from scratch.
func Decode[T Shape](ctx context.Context, token string) (T, bool) {
	var value T
	if token == "" {
		return value, false
	}

	log := logger.Named(ctx, loggerName)
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		log.Warn("malformed cursor, restarting from scratch", "error", err.Error())
		return value, false
	}

	if err := decodeObject(data, &value); err != nil {
		log.Warn("malformed cursor payload, restarting from scratch", "error", err.Error())
		var zero T
		return zero, false
	}

	return value, true
}

// decodeObject decodes data into value accepting exactly one JSON object with no unknown
// fields and nothing but whitespace after it.
func decodeObject(data []byte, value any) error {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return errNotAnObject
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}
