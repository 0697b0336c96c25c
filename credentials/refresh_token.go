// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// RefreshToken is a credential backed by an authorized user descriptor: a
// client ID/secret pair and a long-lived refresh token. Every fetch
// exchanges the refresh token for a new access token.
type RefreshToken struct {
	clientID     string
	clientSecret string
	refreshToken string

	once sync.Once
	conf *oauth2.Config
}

var _ Credential = (*RefreshToken)(nil)

// NewRefreshToken parses a JSON authorized user descriptor. All three fields
// are mandatory and missing fields surface here, not on first use.
func NewRefreshToken(jsonData []byte) (*RefreshToken, error) {
	var descriptor struct {
		Type         string `json:"type"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(jsonData, &descriptor); err != nil {
		return nil, fmt.Errorf("error parsing refresh token descriptor: %w", err)
	}
	for field, value := range map[string]string{
		"client_id":     descriptor.ClientID,
		"client_secret": descriptor.ClientSecret,
		"refresh_token": descriptor.RefreshToken,
	} {
		if value == "" {
			return nil, fmt.Errorf("refresh token descriptor must set the %s field", field)
		}
	}
	return &RefreshToken{
		clientID:     descriptor.ClientID,
		clientSecret: descriptor.ClientSecret,
		refreshToken: descriptor.RefreshToken,
	}, nil
}

func (r *RefreshToken) AccessToken(ctx context.Context) (*AccessToken, error) {
	// The seed token carries no access token, so every call performs a
	// refresh grant against the token endpoint.
	seed := &oauth2.Token{RefreshToken: r.refreshToken}
	token, err := r.config().TokenSource(ctx, seed).Token()
	if err != nil {
		return nil, fmt.Errorf("error exchanging refresh token for access token: %w", err)
	}
	return newAccessToken(token), nil
}

func (r *RefreshToken) config() *oauth2.Config {
	r.once.Do(func() {
		r.conf = &oauth2.Config{
			ClientID:     r.clientID,
			ClientSecret: r.clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       AccessScopes(),
		}
	})
	return r.conf
}
