// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mapper

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const formatString = "string"

// FieldDefinition is the declarative form of an Entry. Exactly one of Path, Literal,
// Template or Expr must be set. A plain scalar in YAML is read as a Path.
type FieldDefinition struct {
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Literal  any    `json:"literal,omitempty" yaml:"literal,omitempty"`
	Template string `json:"template,omitempty" yaml:"template,omitempty"`
	Expr     string `json:"expr,omitempty" yaml:"expr,omitempty"`
	// Format set to "string" keeps template renderings as strings.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// UnmarshalYAML accepts both the `field: some.path` shorthand and the full object form.
func (d *FieldDefinition) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.Path = value.Value
		return nil
	}

	type plain FieldDefinition
	var decoded plain
	if err := value.Decode(&decoded); err != nil {
		return err
	}

	*d = FieldDefinition(decoded)
	return nil
}

// Entry compiles the definition.
func (d FieldDefinition) Entry() (Entry, error) {
	set := 0
	for _, present := range []bool{d.Path != "", d.Literal != nil, d.Template != "", d.Expr != ""} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one of path, literal, template and expr must be set", ErrInvalidDefinition)
	}

	switch {
	case d.Path != "":
		return Path(d.Path), nil
	case d.Literal != nil:
		return Literal(d.Literal), nil
	case d.Template != "" && d.Format == formatString:
		return StringTemplate(d.Template)
	case d.Template != "":
		return Template(d.Template)
	default:
		return Expr(d.Expr)
	}
}

// Definition is the declarative form of a Mapper.
type Definition map[string]FieldDefinition

// FromDefinition compiles every field of definition and returns the resulting Mapper.
// All the invalid fields are reported together.
func FromDefinition(input, output Schema, definition Definition) (*Mapper, error) {
	var errs error
	fields := make(Fields, len(definition))
	for name, field := range definition {
		entry, err := field.Entry()
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("field %q: %w", name, err))
			continue
		}
		fields[name] = entry
	}

	if errs != nil {
		return nil, errs
	}
	return New(input, output, fields), nil
}
