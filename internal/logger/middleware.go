// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	forwardedHostHeaderKey = "x-forwarded-host"
	forwardedForHeaderKey  = "x-forwarded-for"
	requestIDHeaderName    = "x-request-id"
	connectionIDHeaderName = "x-connection-id"

	IncomingRequestMessage  = "incoming request"
	RequestCompletedMessage = "request completed"
)

// httpRequest groups the request fields emitted on every access log line.
type httpRequest struct {
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// httpResponse groups the response fields emitted on the completion log line.
type httpResponse struct {
	StatusCode int `json:"statusCode,omitempty"`
	BodyBytes  int `json:"bodyBytes"`
}

// host has the host information.
type host struct {
	Hostname      string `json:"hostname,omitempty"`
	ForwardedHost string `json:"forwardedHost,omitempty"`
	IP            string `json:"ip,omitempty"`
}

func removePort(host string) string {
	return strings.Split(host, ":")[0]
}

// requestID returns the incoming request id or generates a new random one.
func requestID(c *fiber.Ctx) string {
	if id := c.Get(requestIDHeaderName); id != "" {
		return id
	}

	return uuid.NewString()
}

func requestFields(c *fiber.Ctx) []any {
	return []any{
		"http", httpRequest{
			Method:    c.Method(),
			Path:      string(c.Request().URI().RequestURI()),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		},
		"host", host{
			ForwardedHost: c.Get(forwardedHostHeaderKey),
			Hostname:      removePort(string(c.Request().Host())),
			IP:            c.Get(forwardedForHeaderKey),
		},
	}
}

// responseStatus returns the status code that will be sent, honoring fiber errors
// returned by the handler chain that the error handler has not rendered yet.
func responseStatus(c *fiber.Ctx, handlerErr error) (int, int) {
	var fiberErr *fiber.Error
	if errors.As(handlerErr, &fiberErr) {
		return fiberErr.Code, len(fiberErr.Message)
	}

	return c.Response().StatusCode(), len(c.Response().Body())
}

// RequestMiddlewareLogger is a fiber middleware to log all requests.
// It logs the incoming request and, when the request is completed, its status and latency.
// The request scoped logger is stored in the user context so handlers can retrieve it
// with FromContext.
func RequestMiddlewareLogger(logger Logger, excludedPrefix []string) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		path := string(c.Request().URI().RequestURI())
		for _, prefix := range excludedPrefix {
			if strings.HasPrefix(path, prefix) {
				return c.Next()
			}
		}

		start := time.Now()
		reqID := requestID(c)
		c.Set(requestIDHeaderName, reqID)

		requestLogger := logger.With("requestId", reqID)
		if connectionID := c.Get(connectionIDHeaderName); connectionID != "" {
			requestLogger = requestLogger.With("connectionId", connectionID)
		}
		c.SetUserContext(WithContext(c.UserContext(), requestLogger))

		requestLogger.WithName("incoming_request").Trace(IncomingRequestMessage, requestFields(c)...)
		err := c.Next()

		status, size := responseStatus(c, err)
		fields := append(requestFields(c),
			"response", httpResponse{StatusCode: status, BodyBytes: size},
			"responseTime", float64(time.Since(start).Milliseconds()),
		)
		requestLogger.WithName("request_completed").Info(RequestCompletedMessage, fields...)

		return err
	}
}
