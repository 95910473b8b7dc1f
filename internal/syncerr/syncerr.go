// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package syncerr classifies the errors that abort a sync run into user, remote and
// internal failures.
package syncerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
	"golang.org/x/oauth2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is the classification of a failure.
type Kind string

const (
	// KindUser is an authentication or authorization failure at the provider; it needs
	// the connection owner to act before retrying.
	KindUser Kind = "USER_ERROR"
	// KindRemote is a failure of the provider API; it can be retried with backoff.
	KindRemote Kind = "REMOTE_ERROR"
	// KindInternal is everything else.
	KindInternal Kind = "INTERNAL_ERROR"
)

// Error attaches an explicit Kind to an error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func User(err error) error {
	return wrap(KindUser, err)
}

func Remote(err error) error {
	return wrap(KindRemote, err)
}

func Internal(err error) error {
	return wrap(KindInternal, err)
}

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// StatusError reports an unexpected HTTP status returned by a provider or a sink.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// Classify returns the Kind of err. A nil error has no kind.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var explicit *Error
	if errors.As(err, &explicit) {
		return explicit.Kind
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			switch retrieveErr.Response.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
				return KindUser
			}
		}
		return KindRemote
	}

	if code, ok := statusCode(err); ok {
		return classifyStatus(code)
	}

	if grpcStatus, ok := status.FromError(err); ok && grpcStatus.Code() != codes.OK && grpcStatus.Code() != codes.Unknown {
		return classifyGRPC(grpcStatus.Code())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindRemote
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindRemote
	}

	return KindInternal
}

// statusCode extracts the HTTP status of the error types returned by the SDKs in use.
func statusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}

	var azureErr *azcore.ResponseError
	if errors.As(err, &azureErr) {
		return azureErr.StatusCode, true
	}

	var devopsErr azuredevops.WrappedError
	if errors.As(err, &devopsErr) && devopsErr.StatusCode != nil {
		return *devopsErr.StatusCode, true
	}

	var devopsErrPtr *azuredevops.WrappedError
	if errors.As(err, &devopsErrPtr) && devopsErrPtr.StatusCode != nil {
		return *devopsErrPtr.StatusCode, true
	}

	return 0, false
}

func classifyStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return KindUser
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return KindRemote
	default:
		return KindInternal
	}
}

func classifyGRPC(code codes.Code) Kind {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return KindUser
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
		return KindRemote
	default:
		return KindInternal
	}
}
