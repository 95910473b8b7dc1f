// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package credentials builds the authenticated HTTP clients of connections from their
// OAuth2 settings. Refreshed tokens are handed to the connection settings callback as
// soon as they are obtained.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/jwt"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/store"
)

const (
	loggerName = "unisync:credentials"

	// SettingsKey is the connection settings key holding the OAuth2 settings.
	SettingsKey = "oauth"
)

var ErrMissingCredentials = errors.New("missing credentials")

// Settings describes how a connection authenticates. The first usable flow wins: a
// token with a refresh token, client credentials, a JWT assertion, a static token.
type Settings struct {
	TokenURL     string        `json:"tokenUrl,omitempty"`
	ClientID     string        `json:"clientId,omitempty"`
	ClientSecret string        `json:"clientSecret,omitempty"`
	PrivateKey   string        `json:"privateKey,omitempty"`
	PrivateKeyID string        `json:"privateKeyId,omitempty"`
	Scopes       []string      `json:"scopes,omitempty"`
	Token        *oauth2.Token `json:"token,omitempty"`
}

// FromConnection reads the OAuth2 settings of connection; ok is false when the
// connection has none.
func FromConnection(connection store.Connection) (settings Settings, ok bool, err error) {
	if _, found := connection.Settings[SettingsKey]; !found {
		return Settings{}, false, nil
	}

	wrapper, err := connector.DecodeSettings[struct {
		OAuth Settings `json:"oauth"`
	}](connection)
	if err != nil {
		return Settings{}, false, err
	}
	return wrapper.OAuth, true, nil
}

// TokenSource returns the token source of settings. onRefresh is called with every new
// token obtained through a refresh token.
func TokenSource(ctx context.Context, settings Settings, onRefresh func(ctx context.Context, token *oauth2.Token) error) (oauth2.TokenSource, error) {
	switch {
	case settings.Token != nil && settings.Token.RefreshToken != "":
		config := &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			Scopes:       settings.Scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  settings.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		}
		return &notifyingSource{
			ctx:       ctx,
			source:    config.TokenSource(ctx, settings.Token),
			last:      settings.Token.AccessToken,
			onRefresh: onRefresh,
		}, nil
	case settings.ClientID != "" && settings.ClientSecret != "":
		config := clientcredentials.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			TokenURL:     settings.TokenURL,
			Scopes:       settings.Scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		return config.TokenSource(ctx), nil
	case settings.PrivateKey != "":
		config := &jwt.Config{
			Subject:      settings.ClientID,
			PrivateKey:   []byte(settings.PrivateKey),
			PrivateKeyID: settings.PrivateKeyID,
			Scopes:       settings.Scopes,
			TokenURL:     settings.TokenURL,
		}
		return config.TokenSource(ctx), nil
	case settings.Token != nil && settings.Token.AccessToken != "":
		return oauth2.StaticTokenSource(settings.Token), nil
	}

	return nil, ErrMissingCredentials
}

// NewHTTPClient returns a client authenticating the requests of connection. Refreshed
// tokens are merged into the connection settings and passed to onSettingsChanged.
func NewHTTPClient(ctx context.Context, connection store.Connection, onSettingsChanged connector.SettingsChanged) (*http.Client, error) {
	settings, ok, err := FromConnection(connection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: connection %s has no %q settings", ErrMissingCredentials, connection.ID, SettingsKey)
	}

	current := maps.Clone(connection.Settings)
	var lock sync.Mutex
	source, err := TokenSource(ctx, settings, func(ctx context.Context, token *oauth2.Token) error {
		if onSettingsChanged == nil {
			return nil
		}

		lock.Lock()
		defer lock.Unlock()

		settings.Token = token
		encoded, err := connector.EncodeSettings(settings)
		if err != nil {
			return err
		}
		current = maps.Clone(current)
		current[SettingsKey] = encoded
		return onSettingsChanged(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: &oauth2.Transport{Source: source},
	}, nil
}

// notifyingSource reports every token different from the last one seen.
type notifyingSource struct {
	ctx       context.Context //nolint:containedctx // token refreshes happen inside the transport
	source    oauth2.TokenSource
	onRefresh func(ctx context.Context, token *oauth2.Token) error

	lock sync.Mutex
	last string
}

func (s *notifyingSource) Token() (*oauth2.Token, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	token, err := s.source.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken == s.last {
		return token, nil
	}

	logger.Named(s.ctx, loggerName).Debug("access token refreshed", "expiry", token.Expiry)
	if s.onRefresh != nil {
		if err := s.onRefresh(s.ctx, token); err != nil {
			return nil, fmt.Errorf("persisting refreshed token: %w", err)
		}
	}
	s.last = token.AccessToken
	return token, nil
}
