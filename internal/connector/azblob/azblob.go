// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package azblob implements a destination uploading every committed batch of records
// to Azure Blob Storage as a newline delimited JSON blob.
package azblob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/destination"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/store"
)

const (
	Name       = "azblob"
	loggerName = "unisync:connector:azblob"
)

var (
	// ErrMissingSetting reports missing mandatory settings.
	ErrMissingSetting = errors.New("missing setting")
	// ErrInvalidSetting reports malformed setting values.
	ErrInvalidSetting = errors.New("invalid setting")

	_ connector.Destination     = &Connector{}
	_ connector.InstanceFactory = &Connector{}
)

// config is read from the environment and overridden by the connection settings.
type config struct {
	ConnectionString string `env:"AZURE_STORAGE_BLOB_CONNECTION_STRING" json:"connectionString"`
	StorageAccount   string `env:"AZURE_STORAGE_BLOB_ACCOUNT_NAME" json:"storageAccount"`
	ContainerName    string `env:"AZURE_STORAGE_BLOB_CONTAINER_NAME" json:"containerName"`
	Prefix           string `env:"AZURE_STORAGE_BLOB_PREFIX" json:"prefix"`
	BatchSize        int    `env:"AZURE_STORAGE_BLOB_BATCH_SIZE" envDefault:"1000" json:"batchSize"`

	clientOptions    *azblob.ClientOptions
	azureCredentials azcore.TokenCredential
}

func (c config) merge(overrides config) config {
	if overrides.ConnectionString != "" || overrides.StorageAccount != "" {
		c.ConnectionString = overrides.ConnectionString
		c.StorageAccount = overrides.StorageAccount
	}
	if overrides.ContainerName != "" {
		c.ContainerName = overrides.ContainerName
	}
	if overrides.Prefix != "" {
		c.Prefix = overrides.Prefix
	}
	if overrides.BatchSize > 0 {
		c.BatchSize = overrides.BatchSize
	}
	return c
}

func (c config) validate() error {
	switch {
	case len(c.ConnectionString) == 0 && len(c.StorageAccount) == 0:
		return fmt.Errorf("%w: %s", ErrInvalidSetting, "one of connectionString or storageAccount must be present")
	case len(c.ContainerName) == 0:
		return fmt.Errorf("%w: %s", ErrMissingSetting, "containerName")
	}
	return nil
}

// serviceURL accepts both an account name and the full url of the service.
func (c config) serviceURL() string {
	if strings.Contains(c.StorageAccount, "://") {
		return c.StorageAccount
	}
	if strings.Contains(c.StorageAccount, ".blob.core.windows.net") {
		return "https://" + c.StorageAccount
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/", c.StorageAccount)
}

func (c config) newClient() (*azblob.Client, error) {
	if c.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(c.ConnectionString, c.clientOptions)
	}

	credentials := c.azureCredentials
	if credentials == nil {
		azureCredentials, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, err
		}
		credentials = azureCredentials
	}
	return azblob.NewClient(c.serviceURL(), credentials, c.clientOptions)
}

// Connector is the blob storage destination.
type Connector struct {
	config

	now func() time.Time
}

// New returns a Connector whose defaults are read from the environment.
func New() (*Connector, error) {
	config, err := env.ParseAs[config]()
	if err != nil {
		return nil, err
	}
	return &Connector{config: config, now: time.Now}, nil
}

func (c *Connector) Name() string {
	return Name
}

// Instance is the blob client of a destination connection.
type Instance struct {
	config
	client *azblob.Client
}

// NewInstance implements connector.InstanceFactory.
func (c *Connector) NewInstance(_ context.Context, connection store.Connection, _ connector.SettingsChanged) (any, error) {
	overrides, err := connector.DecodeSettings[config](connection)
	if err != nil {
		return nil, err
	}

	merged := c.merge(overrides)
	if err := merged.validate(); err != nil {
		return nil, err
	}

	client, err := merged.newClient()
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}
	return &Instance{config: merged, client: client}, nil
}

// DestinationSync implements connector.Destination. Each flushed batch becomes one blob
// named after the connection, the flush time and a random suffix.
func (c *Connector) DestinationSync(_ context.Context, req connector.DestinationRequest) (link.Link, error) {
	instance, err := connector.InstanceAs[*Instance](req.Instance)
	if err != nil {
		return nil, err
	}

	now := c.now
	if now == nil {
		now = time.Now
	}
	connectionID := req.Connection.ID

	return destination.Batch(destination.BatchOptions{ConnectorName: Name, Size: instance.BatchSize, Now: now}, func(ctx context.Context, records []destination.Record) error {
		body := new(bytes.Buffer)
		encoder := json.NewEncoder(body)
		for _, record := range records {
			if err := encoder.Encode(record); err != nil {
				return err
			}
		}

		blobName := path.Join(instance.Prefix, connectionID, now().UTC().Format("20060102T150405Z")+"-"+uuid.NewString()+".ndjson")
		if _, err := instance.client.UploadBuffer(ctx, instance.ContainerName, blobName, body.Bytes(), nil); err != nil {
			return fmt.Errorf("uploading %s: %w", blobName, err)
		}

		logger.Named(ctx, loggerName).Debug("batch uploaded", "blob", blobName, "records", len(records))
		return nil
	}), nil
}
