// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/store"
)

const loggerName = "unisync:config"

// ErrInvalidWorkspace reports workspace files referencing undeclared resources.
var ErrInvalidWorkspace = errors.New("invalid workspace")

// Workspace declares the orgs, connections and pipelines seeded into the store.
type Workspace struct {
	Orgs        []store.Org        `yaml:"orgs,omitempty"`
	Connections []store.Connection `yaml:"connections,omitempty"`
	Pipelines   []store.Pipeline   `yaml:"pipelines,omitempty"`
}

// LoadWorkspace parses the workspace file at path. The documents of a multi document
// file are merged.
func LoadWorkspace(path string) (*Workspace, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	workspace := new(Workspace)
	for {
		document := new(Workspace)
		if err := decoder.Decode(document); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w %q: %w", ErrParsing, path, err)
		}

		workspace.Orgs = append(workspace.Orgs, document.Orgs...)
		workspace.Connections = append(workspace.Connections, document.Connections...)
		workspace.Pipelines = append(workspace.Pipelines, document.Pipelines...)
	}

	if err := workspace.validate(); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidWorkspace, path, err)
	}
	return workspace, nil
}

func (w *Workspace) validate() error {
	problems := make([]string, 0)

	connections := make(map[string]bool, len(w.Connections))
	for idx, connection := range w.Connections {
		switch {
		case connection.ID == "":
			problems = append(problems, fmt.Sprintf("connection %d has no id", idx))
		case connections[connection.ID]:
			problems = append(problems, fmt.Sprintf("connection %s declared twice", connection.ID))
		}
		if connection.ConnectorName == "" {
			problems = append(problems, fmt.Sprintf("connection %q has no connectorName", connection.ID))
		}
		connections[connection.ID] = true
	}

	orgs := make(map[string]bool, len(w.Orgs))
	for idx, org := range w.Orgs {
		if org.ID == "" {
			problems = append(problems, fmt.Sprintf("org %d has no id", idx))
		}
		if org.DefaultDestinationID != "" && !connections[org.DefaultDestinationID] {
			problems = append(problems, fmt.Sprintf("org %s references unknown connection %s", org.ID, org.DefaultDestinationID))
		}
		orgs[org.ID] = true
	}

	for _, connection := range w.Connections {
		if connection.OrgID != "" && !orgs[connection.OrgID] {
			problems = append(problems, fmt.Sprintf("connection %s references unknown org %s", connection.ID, connection.OrgID))
		}
	}

	pipelines := make(map[string]bool, len(w.Pipelines))
	for idx, pipeline := range w.Pipelines {
		if pipeline.ID == "" {
			problems = append(problems, fmt.Sprintf("pipeline %d has no id", idx))
		} else if pipelines[pipeline.ID] {
			problems = append(problems, fmt.Sprintf("pipeline %s declared twice", pipeline.ID))
		}
		pipelines[pipeline.ID] = true

		for _, ref := range []string{pipeline.SourceID, pipeline.DestinationID} {
			if !connections[ref] {
				problems = append(problems, fmt.Sprintf("pipeline %s references unknown connection %q", pipeline.ID, ref))
			}
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Apply writes the workspace into s. Connections already stored keep their settings,
// which may hold credentials refreshed by previous runs; their config and disabled flag
// follow the workspace. Stored pipelines get the links and streams of the workspace and
// keep their states.
func (w *Workspace) Apply(ctx context.Context, s store.Store) error {
	log := logger.Named(ctx, loggerName)

	for _, org := range w.Orgs {
		if err := s.PutOrg(ctx, org); err != nil {
			return fmt.Errorf("storing org %s: %w", org.ID, err)
		}
	}

	for _, connection := range w.Connections {
		_, err := s.GetConnection(ctx, connection.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			if _, err := s.CreateConnection(ctx, connection); err != nil {
				return fmt.Errorf("creating connection %s: %w", connection.ID, err)
			}
			log.Debug("connection created", "connectionId", connection.ID, "connectorName", connection.ConnectorName)
		case err != nil:
			return err
		default:
			disabled := connection.Disabled
			patch := store.ConnectionPatch{Config: connection.Config, Disabled: &disabled}
			if _, err := s.PatchConnection(ctx, connection.ID, patch); err != nil {
				return fmt.Errorf("updating connection %s: %w", connection.ID, err)
			}
		}
	}

	for _, pipeline := range w.Pipelines {
		_, err := s.GetPipeline(ctx, pipeline.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			created, isNew, err := s.CreatePipeline(ctx, pipeline)
			if err != nil {
				return fmt.Errorf("creating pipeline %s: %w", pipeline.ID, err)
			}
			if !isNew {
				log.Warn("pipeline already stored with another id", "pipelineId", pipeline.ID, "storedId", created.ID)
			}
		case err != nil:
			return err
		default:
			links := pipeline.Links
			if _, err := s.PatchPipeline(ctx, pipeline.ID, store.PipelinePatch{Links: &links, Streams: pipeline.Streams}); err != nil {
				return fmt.Errorf("updating pipeline %s: %w", pipeline.ID, err)
			}
		}
	}

	log.Info("workspace applied", "orgs", len(w.Orgs), "connections", len(w.Connections), "pipelines", len(w.Pipelines))
	return nil
}
