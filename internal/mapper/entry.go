// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/jmespath/go-jmespath"

	"github.com/mia-platform/unisync/internal/mapper/functions"
)

const noValue = "<no value>"

// Entry computes the value of one output field from the whole input record.
// A nil value means that the field is absent from the output.
type Entry interface {
	Resolve(input map[string]any) (any, error)
}

type pathEntry struct {
	path     string
	segments []string
}

// Path reads a dotted key path from the input. Numeric segments index lists.
// A missing key or a nil intermediate value resolves to nil; traversing a scalar
// value is an error.
func Path(path string) Entry {
	return pathEntry{path: path, segments: strings.Split(path, ".")}
}

func (e pathEntry) Resolve(input map[string]any) (any, error) {
	var current any = input
	for _, segment := range e.segments {
		switch value := current.(type) {
		case nil:
			return nil, nil
		case map[string]any:
			current = value[segment]
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil {
				return nil, &KeyPathError{Path: e.path, Segment: segment, Found: "list"}
			}
			if idx < 0 || idx >= len(value) {
				return nil, nil
			}
			current = value[idx]
		default:
			return nil, &KeyPathError{Path: e.path, Segment: segment, Found: fmt.Sprintf("%T", value)}
		}
	}

	return current, nil
}

type literalEntry struct {
	value any
}

// Literal always resolves to value.
func Literal(value any) Entry {
	return literalEntry{value: value}
}

func (e literalEntry) Resolve(map[string]any) (any, error) {
	return e.value, nil
}

// Func resolves to the result of fn invoked with the whole input record.
type Func func(input map[string]any) (any, error)

func (fn Func) Resolve(input map[string]any) (any, error) {
	return fn(input)
}

type templateEntry struct {
	tmpl       *template.Template
	keepString bool
}

// Template compiles a text/template rendered against the input record with the helpers
// of the functions package. A rendered JSON value is decoded, so templates can produce
// numbers, booleans, lists and objects; an empty rendering resolves to nil.
func Template(text string) (Entry, error) {
	tmpl, err := template.New("field").
		Funcs(functions.FuncMap()).
		Option("missingkey=zero").
		Parse(text)
	if err != nil {
		return nil, NewParsingError(err)
	}

	return templateEntry{tmpl: tmpl}, nil
}

// StringTemplate is like Template but the rendering is always returned as a string.
func StringTemplate(text string) (Entry, error) {
	entry, err := Template(text)
	if err != nil {
		return nil, err
	}

	tmplEntry := entry.(templateEntry)
	tmplEntry.keepString = true
	return tmplEntry, nil
}

func (e templateEntry) Resolve(input map[string]any) (any, error) {
	buffer := new(bytes.Buffer)
	if err := e.tmpl.Execute(buffer, input); err != nil {
		return nil, err
	}

	rendered := strings.TrimSpace(buffer.String())
	if rendered == "" || rendered == noValue {
		return nil, nil
	}

	if e.keepString {
		return rendered, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(rendered), &decoded); err == nil {
		return decoded, nil
	}
	return rendered, nil
}

type exprEntry struct {
	expression string
	compiled   *jmespath.JMESPath
}

// Expr compiles a JMESPath expression evaluated against the input record.
func Expr(expression string) (Entry, error) {
	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, NewParsingError(fmt.Errorf("invalid expression %q: %w", expression, err))
	}

	return exprEntry{expression: expression, compiled: compiled}, nil
}

func (e exprEntry) Resolve(input map[string]any) (any, error) {
	result, err := e.compiled.Search(input)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", e.expression, err)
	}
	return result, nil
}
