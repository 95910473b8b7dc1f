// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type statusResponse struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Version string `json:"version"`
}

// statusRoutes registers the health checks and the metrics endpoint under /-/.
func statusRoutes(app *fiber.App, serviceName, serviceVersion string) {
	status := statusResponse{Name: serviceName, Status: "OK", Version: serviceVersion}
	healthCheck := func(c *fiber.Ctx) error {
		return c.JSON(status)
	}

	group := app.Group("/-")
	group.Get("/healthz", healthCheck)
	group.Get("/ready", healthCheck)
	group.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
