// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/pipeline"
	"github.com/mia-platform/unisync/internal/store"
	"github.com/mia-platform/unisync/internal/syncerr"
	"github.com/mia-platform/unisync/internal/vertical"
)

var (
	ErrMissingConnectionID = errors.New("missing " + connectionIDHeader + " header")
	ErrInvalidBody         = errors.New("invalid request body")
)

// statusCodeFor maps the errors of the routes to the returned HTTP status code.
func statusCodeFor(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	switch {
	case errors.Is(err, vertical.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, vertical.ErrNotConfigured),
		errors.Is(err, vertical.ErrInvalidInput),
		errors.Is(err, connector.ErrUnknownConnector),
		errors.Is(err, connector.ErrInvalidSettings),
		errors.Is(err, pipeline.ErrConnectionDisabled),
		errors.Is(err, ErrMissingConnectionID),
		errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, vertical.ErrUnknownVertical),
		errors.Is(err, vertical.ErrUnknownOperation),
		errors.Is(err, vertical.ErrObjectNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrSyncInProgress):
		return http.StatusConflict
	}

	switch syncerr.Classify(err) {
	case syncerr.KindUser:
		return http.StatusUnprocessableEntity
	case syncerr.KindRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
