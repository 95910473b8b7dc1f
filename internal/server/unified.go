// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/pipeline"
	"github.com/mia-platform/unisync/internal/store"
	"github.com/mia-platform/unisync/internal/vertical"
)

const connectionIDHeader = "x-connection-id"

func (s *Server) unifiedRoutes(router fiber.Router) {
	router.Get("/:vertical/:object", s.unifiedHandler(false))
	router.Get("/:vertical/:object/:id", s.unifiedHandler(true))
}

// unifiedHandler dispatches /unified/<vertical>/<object> to the adapter of the
// connector behind the connection named by the x-connection-id header.
func (s *Server) unifiedHandler(pointRead bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		v, operation, err := s.deps.Router.Resolve(c.Params("vertical"), c.Params("object"), pointRead)
		if err != nil {
			return err
		}

		var input any
		if pointRead {
			input = vertical.GetInput{ID: c.Params("id")}
		} else {
			input, err = vertical.ParseListInput(c.Query("cursor"), c.Query("page_size"), c.Query("sync_mode"))
			if err != nil {
				return err
			}
		}

		connectionID := c.Get(connectionIDHeader)
		if connectionID == "" {
			return ErrMissingConnectionID
		}
		connection, err := s.deps.Store.GetConnection(ctx, connectionID)
		if err != nil {
			return fmt.Errorf("connection %s: %w", connectionID, err)
		}
		if connection.Disabled {
			return fmt.Errorf("connection %s: %w", connectionID, pipeline.ErrConnectionDisabled)
		}

		conn, err := s.deps.Connectors.Get(connection.ConnectorName)
		if err != nil {
			return err
		}
		if err := v.Check(connection.ConnectorName, operation); err != nil {
			return err
		}

		instance, err := connector.NewInstance(ctx, conn, connection, s.settingsChanged(connection.ID))
		if err != nil {
			return fmt.Errorf("building %s instance: %w", conn.Name(), err)
		}
		defer func() {
			if err := connector.CloseInstance(context.WithoutCancel(ctx), instance); err != nil {
				logger.Named(ctx, loggerName).Warn("closing connector instance", "connectorName", conn.Name(), "error", err.Error())
			}
		}()

		result, err := v.Dispatch(ctx, vertical.Call{
			ConnectorName: connection.ConnectorName,
			Operation:     operation,
			Instance:      instance,
			Input:         input,
			Context: vertical.Context{
				ConnectionID:  connection.ID,
				ConnectorName: connection.ConnectorName,
				OrgID:         connection.OrgID,
				EndUserID:     connection.EndUserID,
			},
		})
		if err != nil {
			return err
		}

		return c.JSON(result)
	}
}

func (s *Server) settingsChanged(connectionID string) connector.SettingsChanged {
	return func(ctx context.Context, settings map[string]any) error {
		if _, err := s.deps.Store.PatchConnection(ctx, connectionID, store.ConnectionPatch{Settings: settings}); err != nil {
			return fmt.Errorf("persisting settings of connection %s: %w", connectionID, err)
		}
		return nil
	}
}
