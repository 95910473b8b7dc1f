// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/pipeline"
)

type syncRequest struct {
	FullResync bool `json:"fullResync"`
}

func (s *Server) pipelineRoutes(router fiber.Router) {
	router.Post("/pipelines/:id/sync", s.syncPipeline)
	router.Get("/runs/:id", s.getRun)
}

// syncPipeline runs the pipeline and returns its run record. Failed runs are returned
// with their classification; only syncs that produced no run record are errors.
func (s *Server) syncPipeline(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var request syncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidBody, err.Error())
		}
	}
	if c.QueryBool("full_resync") {
		request.FullResync = true
	}

	pipelineID := c.Params("id")
	run, err := s.deps.Syncer.Sync(ctx, pipelineID, pipeline.Options{FullResync: request.FullResync})
	if err != nil && run.ID == "" {
		return err
	}
	if err != nil {
		logger.Named(ctx, loggerName).Warn("pipeline sync failed",
			"pipelineId", pipelineID,
			"runId", run.ID,
			"errorKind", run.ErrorKind,
		)
	}

	return c.JSON(run)
}

func (s *Server) getRun(c *fiber.Ctx) error {
	run, err := s.deps.Store.GetRun(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(run)
}
