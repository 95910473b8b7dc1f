// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mapper

import (
	"errors"
	"fmt"
)

var (
	_ error = &ParsingError{}
	_ error = &KeyPathError{}
	_ error = &ValidationError{}
)

var (
	errTemplateParsing = "mapper template parsing error"

	ErrInvalidDefinition = errors.New("invalid field definition")
)

// ParsingError is returned when a template or an expression of a mapping cannot be compiled.
type ParsingError struct {
	msg string
	err error
}

func NewParsingError(err error) *ParsingError {
	msg := errTemplateParsing
	if err != nil {
		msg = msg + "\n" + err.Error()
	}

	return &ParsingError{
		msg: msg,
		err: err,
	}
}

func (e *ParsingError) Error() string {
	return e.msg
}

func (e *ParsingError) Unwrap() error {
	return e.err
}

func (e *ParsingError) Is(target error) bool {
	if e == nil || target == nil {
		return e == target
	}

	if t, ok := target.(*ParsingError); ok {
		return e.Error() == t.Error()
	}

	return false
}

// KeyPathError is returned when a key path traverses a value that is neither an object
// nor a list: the mapping does not match the shape of the input.
type KeyPathError struct {
	Path    string
	Segment string
	Found   string
}

func (e *KeyPathError) Error() string {
	return fmt.Sprintf("key path %q: cannot read %q from a value of type %s", e.Path, e.Segment, e.Found)
}

// Stage tells which side of a mapper rejected a record.
type Stage string

const (
	StageInput  Stage = "input"
	StageOutput Stage = "output"
)

// ValidationError is returned by Parse when the input or the output schema rejects a record.
type ValidationError struct {
	Schema string
	Stage  Stage
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s schema %q rejected record: %s", e.Stage, e.Schema, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
