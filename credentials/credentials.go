// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

// Package credentials provides OAuth2 access tokens for authenticating with
// the identity, user-management and realtime-data APIs. Three variants are
// supported: service account keys, application-default credentials and user
// refresh tokens. Each variant constructs its underlying token source at
// most once and reuses it for every fetch; the fetch itself is always a
// fresh network round-trip, token caching is the OAuth library's concern.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
)

type (
	// AccessToken is a single OAuth2 access token produced by a fetch.
	// It is never mutated and has no lifecycle beyond the call that
	// produced it.
	AccessToken struct {
		Value  string
		Expiry time.Time
	}

	// Credential provides OAuth2 access tokens. Implementations are safe
	// for concurrent use.
	Credential interface {
		AccessToken(ctx context.Context) (*AccessToken, error)
	}
)

// AccessScopes is the fixed set of OAuth scopes requested by all credential
// variants. It covers the identity toolkit, user-management and realtime
// database APIs and is not configurable per instance.
func AccessScopes() []string {
	return []string{
		"https://www.googleapis.com/auth/firebase.database",
		"https://www.googleapis.com/auth/identitytoolkit",
		"https://www.googleapis.com/auth/userinfo.email",
	}
}

// FromJSON constructs a credential from a JSON payload, dispatching on the
// payload's type field: a service account key or an authorized user (refresh
// token) descriptor. Malformed payloads fail immediately.
func FromJSON(data []byte) (Credential, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("error parsing credential JSON: %w", err)
	}
	switch probe.Type {
	case "service_account":
		return NewServiceAccount(data)
	case "authorized_user":
		return NewRefreshToken(data)
	default:
		return nil, fmt.Errorf("unsupported credential type: %q", probe.Type)
	}
}

// FromFile reads a credential JSON file. An empty path falls back to the
// GOOGLE_APPLICATION_CREDENTIALS environment variable, and if that is also
// unset, to application-default credentials.
func FromFile(path string) (Credential, error) {
	if path == "" {
		path = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if path == "" {
		return NewApplicationDefault(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading credential file: %w", err)
	}
	return FromJSON(data)
}

func newAccessToken(token *oauth2.Token) *AccessToken {
	return &AccessToken{
		Value:  token.AccessToken,
		Expiry: token.Expiry,
	}
}
