// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package gcp

import (
	"context"
	"net"
	"strconv"
	"testing"

	"cloud.google.com/go/asset/apiv1/assetpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/cursor"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/operation"
	"github.com/mia-platform/unisync/internal/source"
	"github.com/mia-platform/unisync/internal/store"
	"github.com/mia-platform/unisync/internal/syncerr"
)

type fakeAssetServiceServer struct {
	assetpb.UnimplementedAssetServiceServer

	assets []*assetpb.Asset
	err    error
}

func (s *fakeAssetServiceServer) ListAssets(_ context.Context, req *assetpb.ListAssetsRequest) (*assetpb.ListAssetsResponse, error) {
	if s.err != nil {
		return nil, s.err
	}

	filtered := make([]*assetpb.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		if len(req.GetAssetTypes()) == 0 || contains(req.GetAssetTypes(), a.GetAssetType()) {
			filtered = append(filtered, a)
		}
	}

	start := 0
	if req.GetPageToken() != "" {
		var err error
		if start, err = strconv.Atoi(req.GetPageToken()); err != nil {
			return nil, status.Error(codes.InvalidArgument, "bad token")
		}
	}
	size := int(req.GetPageSize())
	if size <= 0 {
		size = len(filtered)
	}
	end := min(start+size, len(filtered))

	next := ""
	if end < len(filtered) {
		next = strconv.Itoa(end)
	}
	return &assetpb.ListAssetsResponse{Assets: filtered[start:end], NextPageToken: next}, nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func fakeAsset(name, assetType string) *assetpb.Asset {
	return &assetpb.Asset{
		Name:      "//" + assetType + "/" + name,
		AssetType: assetType,
		Resource: &assetpb.Resource{
			Data: &structpb.Struct{
				Fields: map[string]*structpb.Value{
					"name": structpb.NewStringValue(name),
				},
			},
		},
	}
}

var fakeAssets = []*assetpb.Asset{
	fakeAsset("bucket-1", "storage.googleapis.com/Bucket"),
	fakeAsset("bucket-2", "storage.googleapis.com/Bucket"),
	fakeAsset("network-1", "compute.googleapis.com/Network"),
}

func newTestConnector(t *testing.T, srv *fakeAssetServiceServer) *Connector {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	gsrv := grpc.NewServer()
	assetpb.RegisterAssetServiceServer(gsrv, srv)
	go func() {
		_ = gsrv.Serve(l)
	}()
	t.Cleanup(gsrv.Stop)

	return &Connector{
		defaults: assetConfig{
			Parent:     "projects/my-project",
			AssetTypes: []string{"storage.googleapis.com/Bucket", "compute.googleapis.com/Network"},
			PageSize:   2,
		},
		clientOptions: []option.ClientOption{
			option.WithEndpoint(l.Addr().String()),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		},
	}
}

func run(t *testing.T, c *Connector, req connector.SourceRequest) ([]operation.Operation, error) {
	t.Helper()

	ctx := t.Context()
	instance, err := c.NewInstance(ctx, store.Connection{ID: "conn_gcp", ConnectorName: Name}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = connector.CloseInstance(ctx, instance) })
	req.Instance = instance

	var ops []operation.Operation
	err = link.Run(ctx, func(ctx context.Context, out chan<- operation.Operation) error {
		return c.SourceSync(ctx, req, out)
	}, link.Identity(), func(_ context.Context, in <-chan operation.Operation) error {
		for op := range in {
			ops = append(ops, op)
		}
		return nil
	})
	return ops, err
}

func TestCheckAssetConfig(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		config      assetConfig
		expectedErr error
	}{
		"valid project": {
			config: assetConfig{Parent: "projects/my-project"},
		},
		"missing parent": {
			config:      assetConfig{},
			expectedErr: ErrMissingSetting,
		},
		"invalid parent": {
			config:      assetConfig{Parent: "buckets/my-bucket"},
			expectedErr: ErrInvalidSetting,
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			err := checkAssetConfig(test.config)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_SYNC_PARENT", "organizations/42")
	t.Setenv("GOOGLE_CLOUD_SYNC_ASSET_TYPES", "storage.googleapis.com/Bucket,compute.googleapis.com/Network")

	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, assetConfig{
		Parent:     "organizations/42",
		AssetTypes: []string{"storage.googleapis.com/Bucket", "compute.googleapis.com/Network"},
		PageSize:   500,
	}, c.defaults)
}

func TestSourceSync(t *testing.T) {
	t.Parallel()

	c := newTestConnector(t, &fakeAssetServiceServer{assets: fakeAssets})
	ops, err := run(t, c, connector.SourceRequest{})
	require.NoError(t, err)

	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.String())
	}
	assert.Equal(t, []string{
		"data(storage.googleapis.com/Bucket///storage.googleapis.com/Bucket/bucket-1)",
		"data(storage.googleapis.com/Bucket///storage.googleapis.com/Bucket/bucket-2)",
		"commit",
		"stateUpdate(complete)",
		"data(compute.googleapis.com/Network///compute.googleapis.com/Network/network-1)",
		"commit",
		"stateUpdate(complete)",
	}, names)

	midway := source.DecodeState(t.Context(), ops[3].StateUpdate.SourceState)
	token, ok := cursor.Decode[cursor.PageToken](t.Context(), midway[stateKey])
	require.True(t, ok)
	assert.Equal(t, "2", token.Token)
	assert.Empty(t, source.DecodeState(t.Context(), ops[6].StateUpdate.SourceState))

	resource, ok := ops[0].Data.Entity["resource"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"name": "bucket-1"}, resource["data"])
}

func TestSourceSyncResumesAndFiltersStreams(t *testing.T) {
	t.Parallel()

	c := newTestConnector(t, &fakeAssetServiceServer{assets: fakeAssets})
	state := source.State{stateKey: cursor.Encode(cursor.PageToken{Token: "1"})}
	ops, err := run(t, c, connector.SourceRequest{
		State:   state.Raw(),
		Streams: map[string]bool{"storage.googleapis.com/Bucket": true},
	})
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, "bucket-2", ops[0].Data.Entity["resource"].(map[string]any)["data"].(map[string]any)["name"])
}

func TestSourceSyncKeepsGRPCStatus(t *testing.T) {
	t.Parallel()

	c := newTestConnector(t, &fakeAssetServiceServer{err: status.Error(codes.PermissionDenied, "denied")})
	_, err := run(t, c, connector.SourceRequest{})
	require.ErrorIs(t, err, ErrGCPSource)
	assert.Equal(t, syncerr.KindUser, syncerr.Classify(err))
}
