// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package config loads the declarative configuration of the process: the mapping files
// turning provider records into unified records, the workspace file declaring orgs,
// connections and pipelines, and the environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/mapper"
)

const (
	// MappingLinkName is the link applying the mappers loaded from the mapping files.
	MappingLinkName = "mapping"

	EntityField   = "entity"
	MappingsField = "mappings"
)

var (
	// ErrParsing reports failures that occur while decoding configuration files.
	ErrParsing = errors.New("error parsing")
	// ErrUnknownSchema is returned when a mapping targets a schema that does not exist.
	ErrUnknownSchema = errors.New("unknown schema")
	// ErrDuplicateMapping is returned when two mappings target the same connector entity.
	ErrDuplicateMapping = errors.New("duplicate mapping")
)

// MappingConfig maps the records of one entity, optionally of a single connector, to the
// records written to the destinations.
type MappingConfig struct {
	Connector string `json:"connector,omitempty" yaml:"connector,omitempty"`
	Entity    string `json:"entity" yaml:"entity"`
	// Schema is the `<vertical>.<entity>` unified schema the mapped records must satisfy;
	// empty accepts any record.
	Schema   string            `json:"schema,omitempty" yaml:"schema,omitempty"`
	Mappings mapper.Definition `json:"mappings" yaml:"mappings"`
}

// Key returns the key of the mapper in the map used by the mapping link.
func (c *MappingConfig) Key() string {
	if c.Connector == "" {
		return c.Entity
	}
	return link.MapperKey(c.Connector, c.Entity)
}

// Mapper compiles the mapping validating its output with the schema found in schemas.
func (c *MappingConfig) Mapper(schemas map[string]mapper.Schema) (*mapper.Mapper, error) {
	output := mapper.AnySchema
	if c.Schema != "" {
		schema, ok := schemas[c.Schema]
		if !ok {
			return nil, fmt.Errorf("%w %q in mapping of %s", ErrUnknownSchema, c.Schema, c.Key())
		}
		output = schema
	}

	m, err := mapper.FromDefinition(mapper.AnySchema, output, c.Mappings)
	if err != nil {
		return nil, fmt.Errorf("mapping of %s: %w", c.Key(), err)
	}
	return m, nil
}

// NewMappingConfigsFromPath parses the file at path and returns any mapping
// configurations it contains. A file can hold several YAML documents.
func NewMappingConfigsFromPath(path string) ([]*MappingConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	configs := make([]*MappingConfig, 0)
	for {
		config := new(MappingConfig)
		err := decoder.Decode(&config)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w %q: %w", ErrParsing, path, err)
		}

		// empty documents
		if config == nil {
			continue
		}

		missingFields := []string{}
		if config.Entity == "" {
			missingFields = append(missingFields, EntityField)
		}
		if len(config.Mappings) == 0 {
			missingFields = append(missingFields, MappingsField)
		}
		if len(missingFields) > 0 {
			return nil, fmt.Errorf("%w %q: missing required fields: %v", ErrParsing, path, strings.Join(missingFields, ", "))
		}

		configs = append(configs, config)
	}

	return configs, nil
}

// BuildMappers compiles every mapping keyed as expected by link.Mapping. All the invalid
// mappings are reported together.
func BuildMappers(configs []*MappingConfig, schemas map[string]mapper.Schema) (map[string]*mapper.Mapper, error) {
	mappers := make(map[string]*mapper.Mapper, len(configs))
	var errs error
	for _, config := range configs {
		key := config.Key()
		if _, found := mappers[key]; found {
			errs = errors.Join(errs, fmt.Errorf("%w: %s", ErrDuplicateMapping, key))
			continue
		}

		m, err := config.Mapper(schemas)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		mappers[key] = m
	}

	if errs != nil {
		return nil, errs
	}
	return mappers, nil
}

// RegisterMappingLink registers on registry the link applying mappers, so pipelines can
// reference it by MappingLinkName.
func RegisterMappingLink(registry *link.Registry, mappers map[string]*mapper.Mapper) error {
	return registry.Register(MappingLinkName, func(link.Options) (link.Link, error) {
		return link.Mapping(mappers), nil
	})
}
