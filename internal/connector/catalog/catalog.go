// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package catalog implements a destination sending the committed records to the
// Mia-Platform Catalog in batches.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/credentials"
	"github.com/mia-platform/unisync/internal/destination"
	"github.com/mia-platform/unisync/internal/info"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/store"
	"github.com/mia-platform/unisync/internal/syncerr"
)

const Name = "catalog"

var (
	_ connector.Destination     = &Connector{}
	_ connector.InstanceFactory = &Connector{}

	errMissingEndpoint = errors.New("missing catalog endpoint")
)

type CatalogError struct {
	err error
}

func (e *CatalogError) Error() string {
	return "catalog: " + e.err.Error()
}

func (e *CatalogError) Unwrap() error {
	return e.err
}

func (e *CatalogError) Is(target error) bool {
	cre, ok := target.(*CatalogError)
	if !ok {
		return false
	}

	return e.err.Error() == cre.err.Error()
}

// settings are read from the environment and overridden by the connection settings.
type settings struct {
	Endpoint  string `json:"endpoint,omitempty" env:"MIA_CATALOG_ENDPOINT"`
	Token     string `json:"token,omitempty" env:"MIA_CATALOG_TOKEN"`
	BatchSize int    `json:"batchSize,omitempty" env:"MIA_CATALOG_BATCH_SIZE" envDefault:"100"`
}

// Connector is the catalog destination connector.
type Connector struct {
	defaults settings
}

// New returns the catalog connector with its defaults read from the environment.
func New() (*Connector, error) {
	defaults, err := env.ParseAs[settings]()
	if err != nil {
		return nil, handleError(err)
	}
	return &Connector{defaults: defaults}, nil
}

func (c *Connector) Name() string {
	return Name
}

type instance struct {
	endpoint  string
	token     string
	batchSize int
	client    *http.Client
}

// NewInstance implements connector.InstanceFactory. Connections with OAuth2 settings get
// a client refreshing its token, the others authenticate with the static token.
func (c *Connector) NewInstance(ctx context.Context, connection store.Connection, onSettingsChanged connector.SettingsChanged) (any, error) {
	override, err := connector.DecodeSettings[settings](connection)
	if err != nil {
		return nil, handleError(err)
	}

	merged := c.defaults
	if override.Endpoint != "" {
		merged.Endpoint = override.Endpoint
	}
	if override.Token != "" {
		merged.Token = override.Token
	}
	if override.BatchSize > 0 {
		merged.BatchSize = override.BatchSize
	}

	if merged.Endpoint == "" {
		return nil, handleError(errMissingEndpoint)
	}
	if _, err := url.Parse(merged.Endpoint); err != nil {
		return nil, handleError(err)
	}

	client := &http.Client{}
	if _, ok, _ := credentials.FromConnection(connection); ok {
		client, err = credentials.NewHTTPClient(ctx, connection, onSettingsChanged)
		if err != nil {
			return nil, handleError(err)
		}
		merged.Token = ""
	}

	return &instance{
		endpoint:  merged.Endpoint,
		token:     merged.Token,
		batchSize: merged.BatchSize,
		client:    client,
	}, nil
}

// DestinationSync implements connector.Destination.
func (c *Connector) DestinationSync(_ context.Context, req connector.DestinationRequest) (link.Link, error) {
	inst, err := connector.InstanceAs[*instance](req.Instance)
	if err != nil {
		return nil, handleError(err)
	}

	return destination.Batch(destination.BatchOptions{ConnectorName: Name, Size: inst.batchSize}, inst.send), nil
}

// send posts a batch of records to the catalog.
func (i *instance) send(ctx context.Context, records []destination.Record) error {
	body, err := json.Marshal(map[string]any{"items": records})
	if err != nil {
		return handleError(err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return handleError(err)
	}

	request.Header.Set("User-Agent", info.UserAgent())
	request.Header.Set("Content-Type", "application/json")
	if i.token != "" {
		request.Header.Set("Authorization", "Bearer "+i.token)
	}

	resp, err := i.client.Do(request)
	if err != nil {
		return handleError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return handleError(&syncerr.StatusError{StatusCode: resp.StatusCode, Body: "invalid token or insufficient permissions"})
	}

	message := "unexpected error"
	data, _ := io.ReadAll(resp.Body)
	var respBody map[string]any
	if err := json.Unmarshal(data, &respBody); err == nil {
		if value, ok := respBody["message"].(string); ok {
			message = value
		}
	}
	return handleError(&syncerr.StatusError{StatusCode: resp.StatusCode, Body: message})
}

func handleError(err error) error {
	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	return &CatalogError{
		err: err,
	}
}
