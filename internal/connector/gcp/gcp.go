// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package gcp implements a source listing the resources of a Google Cloud organization,
// folder or project through the Cloud Asset Inventory.
package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	asset "cloud.google.com/go/asset/apiv1"
	"cloud.google.com/go/asset/apiv1/assetpb"
	"github.com/caarlos0/env/v11"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/cursor"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/operation"
	"github.com/mia-platform/unisync/internal/source"
	"github.com/mia-platform/unisync/internal/store"
)

const (
	Name       = "gcp"
	loggerName = "unisync:connector:gcp"

	// stateKey holds the page token of the listing in the source state.
	stateKey = "assets"

	defaultPageSize = 500
)

var (
	// ErrMissingSetting reports missing mandatory settings.
	ErrMissingSetting = errors.New("missing setting")
	// ErrInvalidSetting reports malformed setting values.
	ErrInvalidSetting = errors.New("invalid setting")
	// ErrGCPSource wraps errors emitted by the GCP source implementation.
	ErrGCPSource = errors.New("gcp source")

	syncParentRegex = regexp.MustCompile(`^(projects|organizations|folders)\/.*`)

	_ connector.Source          = &Connector{}
	_ connector.InstanceFactory = &Connector{}
)

// assetConfig is read from the environment and overridden by the connection settings.
type assetConfig struct {
	Parent     string   `env:"GOOGLE_CLOUD_SYNC_PARENT" json:"parent"`
	AssetTypes []string `env:"GOOGLE_CLOUD_SYNC_ASSET_TYPES" json:"assetTypes"`
	PageSize   int      `env:"GOOGLE_CLOUD_SYNC_PAGE_SIZE" envDefault:"500" json:"pageSize"`
}

// checkAssetConfig validates the required configuration for Cloud Asset clients.
func checkAssetConfig(cfg assetConfig) error {
	if cfg.Parent == "" {
		return fmt.Errorf("%w: %s", ErrMissingSetting, "parent")
	}

	if !syncParentRegex.MatchString(cfg.Parent) {
		return fmt.Errorf("%w: %s", ErrInvalidSetting, "parent must be one of 'organizations/[organization-number]', 'projects/[project-id]', 'projects/[project-number]', or 'folders/[folder-number]'")
	}
	return nil
}

// Connector is the Cloud Asset source.
type Connector struct {
	defaults assetConfig

	clientOptions []option.ClientOption
}

// New returns a Connector whose defaults are read from the environment. Options are
// passed to every Cloud Asset client it creates.
func New(opts ...option.ClientOption) (*Connector, error) {
	defaults, err := env.ParseAs[assetConfig]()
	if err != nil {
		return nil, handleError(err)
	}

	return &Connector{defaults: defaults, clientOptions: opts}, nil
}

func (c *Connector) Name() string {
	return Name
}

// Instance is the Cloud Asset client of a connection.
type Instance struct {
	config assetConfig
	client *asset.Client
}

// NewInstance implements connector.InstanceFactory.
func (c *Connector) NewInstance(ctx context.Context, connection store.Connection, _ connector.SettingsChanged) (any, error) {
	overrides, err := connector.DecodeSettings[assetConfig](connection)
	if err != nil {
		return nil, handleError(err)
	}

	config := c.defaults
	if overrides.Parent != "" {
		config.Parent = overrides.Parent
	}
	if len(overrides.AssetTypes) > 0 {
		config.AssetTypes = overrides.AssetTypes
	}
	if overrides.PageSize > 0 {
		config.PageSize = overrides.PageSize
	}
	if config.PageSize <= 0 {
		config.PageSize = defaultPageSize
	}
	if err := checkAssetConfig(config); err != nil {
		return nil, handleError(err)
	}

	client, err := asset.NewClient(ctx, c.clientOptions...)
	if err != nil {
		return nil, handleError(err)
	}
	return &Instance{config: config, client: client}, nil
}

// Close implements connector.Closable.
func (i *Instance) Close(ctx context.Context) error {
	log := logger.Named(ctx, loggerName)
	log.Debug("closing GCP asset client")
	if err := i.client.Close(); err != nil {
		return handleError(err)
	}
	log.Trace("closed GCP asset client")
	return nil
}

// listAssetsRequest builds a ListAssets request for the configured parent.
func (i *Instance) listAssetsRequest(req connector.SourceRequest) *assetpb.ListAssetsRequest {
	types := make([]string, 0, len(i.config.AssetTypes))
	for _, assetType := range i.config.AssetTypes {
		if req.StreamEnabled(assetType) {
			types = append(types, assetType)
		}
	}

	return &assetpb.ListAssetsRequest{
		Parent:      i.config.Parent,
		AssetTypes:  types,
		ContentType: assetpb.ContentType_RESOURCE,
	}
}

// SourceSync implements connector.Source. Assets are read one page at a time; every
// page is followed by a commit and a checkpoint holding the token of the next page.
func (c *Connector) SourceSync(ctx context.Context, req connector.SourceRequest, out chan<- operation.Operation) error {
	log := logger.Named(ctx, loggerName)
	instance, err := connector.InstanceAs[*Instance](req.Instance)
	if err != nil {
		return handleError(err)
	}

	state := source.DecodeState(ctx, req.State)
	start := ""
	if token, ok := cursor.Decode[cursor.PageToken](ctx, state[stateKey]); ok {
		log.Debug("resuming asset listing")
		start = token.Token
	}

	listRequest := instance.listAssetsRequest(req)
	if len(instance.config.AssetTypes) > 0 && len(listRequest.AssetTypes) == 0 {
		log.Debug("no asset type selected")
		return nil
	}

	pager := iterator.NewPager(instance.client.ListAssets(ctx, listRequest), instance.config.PageSize, start)
	fetch := func(context.Context, string) ([]*assetpb.Asset, string, error) {
		var assets []*assetpb.Asset
		next, err := pager.NextPage(&assets)
		return assets, next, err
	}

	emit := func(ctx context.Context, assets []*assetpb.Asset, next string) error {
		for _, item := range assets {
			values := assetToMap(item)
			if values == nil {
				log.Warn("skipping asset that cannot be converted", "name", item.GetName())
				continue
			}
			if err := link.Send(ctx, out, operation.NewData(item.GetName(), item.GetAssetType(), values, Name)); err != nil {
				return err
			}
		}
		if err := link.Send(ctx, out, operation.NewCommit()); err != nil {
			return err
		}

		token := ""
		if next != "" {
			token = cursor.Encode(cursor.PageToken{Token: next})
		}
		state = state.With(stateKey, token)
		return link.Send(ctx, out, operation.NewStateComplete(state.Raw(), nil))
	}

	return handleError(source.Paginate(ctx, start, fetch, emit))
}

// assetToMap converts a Cloud Asset message to a generic map.
func assetToMap(asset *assetpb.Asset) map[string]any {
	if asset == nil {
		return nil
	}
	b, err := protojson.Marshal(asset)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

// handleError wraps err with ErrGCPSource keeping the grpc status for the
// classification of the run error.
func handleError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrGCPSource, err)
}
