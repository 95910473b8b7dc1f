// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package link

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/mapper"
)

var (
	ErrUnknownLink   = errors.New("unknown link")
	ErrDuplicateLink = errors.New("link already registered")
	ErrInvalidOption = errors.New("invalid link options")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Options are the free form options of a link in a pipeline definition.
type Options map[string]any

// Config names a registered link and its options.
type Config struct {
	Name    string  `json:"name" yaml:"name"`
	Options Options `json:"options,omitempty" yaml:"options,omitempty"`
}

// Factory builds a Link from its options.
type Factory func(opts Options) (Link, error)

// Registry resolves link names to links.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateLink, name)
	}

	r.factories[name] = factory
	return nil
}

// Names returns the registered link names in alphabetical order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.factories))
}

// Resolve builds the links of configs in order. Unknown names are an error.
func (r *Registry) Resolve(configs []Config) ([]Link, error) {
	links := make([]Link, 0, len(configs))
	for idx, config := range configs {
		factory, ok := r.factories[config.Name]
		if !ok {
			return nil, fmt.Errorf("%w %q at position %d", ErrUnknownLink, config.Name, idx)
		}

		link, err := factory(config.Options)
		if err != nil {
			return nil, fmt.Errorf("link %q: %w", config.Name, err)
		}
		links = append(links, link)
	}

	return links, nil
}

// DecodeOptions converts opts into T and validates it.
func DecodeOptions[T any](opts Options) (T, error) {
	if opts == nil {
		opts = Options{}
	}

	decoded, err := mapper.Decode[T](opts)
	if err != nil {
		return decoded, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	if err := validate.Struct(decoded); err != nil {
		return decoded, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	return decoded, nil
}

type logOptions struct {
	Level string `json:"level" validate:"omitempty,oneof=trace debug info warn error"`
}

type singleTableOptions struct {
	Table string `json:"table" validate:"required"`
}

type mergeReadyOptions struct {
	Expected int `json:"expected" validate:"min=1"`
}

// DefaultRegistry returns a Registry with the generic links.
func DefaultRegistry() *Registry {
	registry := NewRegistry()
	defaults := map[string]Factory{
		"identity": func(Options) (Link, error) {
			return Identity(), nil
		},
		"log": func(opts Options) (Link, error) {
			decoded, err := DecodeOptions[logOptions](opts)
			if err != nil {
				return nil, err
			}
			if decoded.Level == "" {
				decoded.Level = logger.DEBUG.String()
			}
			return Log(logger.LevelFromString(decoded.Level)), nil
		},
		"prefixConnectorName": func(Options) (Link, error) {
			return PrefixConnectorName(), nil
		},
		"singleTable": func(opts Options) (Link, error) {
			decoded, err := DecodeOptions[singleTableOptions](opts)
			if err != nil {
				return nil, err
			}
			return SingleTable(decoded.Table), nil
		},
		"renameEntity": func(opts Options) (Link, error) {
			decoded, err := DecodeOptions[RenameOptions](opts)
			if err != nil {
				return nil, err
			}
			return RenameEntity(decoded), nil
		},
		"categoryFilter": func(opts Options) (Link, error) {
			decoded, err := DecodeOptions[CategoryFilterOptions](opts)
			if err != nil {
				return nil, err
			}
			return CategoryFilter(decoded), nil
		},
		"mergeReady": func(opts Options) (Link, error) {
			decoded, err := DecodeOptions[mergeReadyOptions](opts)
			if err != nil {
				return nil, err
			}
			return MergeReady(decoded.Expected), nil
		},
	}

	for name, factory := range defaults {
		_ = registry.Register(name, factory)
	}
	return registry
}
