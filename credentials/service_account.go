// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package credentials

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"sync"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2/google"
	oauth2jwt "golang.org/x/oauth2/jwt"
)

// ServiceAccount is a credential backed by a service account key. Besides
// fetching access tokens it exposes the project ID, client email and private
// key parsed from the key payload, which the token components need for
// signing custom tokens and verifying ID tokens.
type ServiceAccount struct {
	projectID   string
	clientEmail string
	privateKey  *rsa.PrivateKey
	jsonKey     []byte

	once    sync.Once
	conf    *oauth2jwt.Config
	confErr error
}

var _ Credential = (*ServiceAccount)(nil)

// NewServiceAccount parses a JSON service account key. The project_id,
// client_email and private_key fields are mandatory and parsing failures
// surface here, not on first use.
func NewServiceAccount(jsonKey []byte) (*ServiceAccount, error) {
	var key struct {
		Type        string `json:"type"`
		ProjectID   string `json:"project_id"`
		PrivateKey  string `json:"private_key"`
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(jsonKey, &key); err != nil {
		return nil, fmt.Errorf("error parsing service account key: %w", err)
	}
	if key.ProjectID == "" {
		return nil, fmt.Errorf("service account key must set the project_id field")
	}
	if key.ClientEmail == "" {
		return nil, fmt.Errorf("service account key must set the client_email field")
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("error parsing service account private key: %w", err)
	}
	return &ServiceAccount{
		projectID:   key.ProjectID,
		clientEmail: key.ClientEmail,
		privateKey:  privateKey,
		jsonKey:     jsonKey,
	}, nil
}

// AccessToken performs a fresh token exchange for the fixed scope set.
func (s *ServiceAccount) AccessToken(ctx context.Context) (*AccessToken, error) {
	conf, err := s.config()
	if err != nil {
		return nil, err
	}
	// A new token source is derived per call, so each fetch performs an
	// independent exchange against the OAuth endpoint.
	token, err := conf.TokenSource(ctx).Token()
	if err != nil {
		return nil, fmt.Errorf("error exchanging service account assertion for access token: %w", err)
	}
	return newAccessToken(token), nil
}

func (s *ServiceAccount) ProjectID() string {
	return s.projectID
}

func (s *ServiceAccount) ClientEmail() string {
	return s.clientEmail
}

func (s *ServiceAccount) PrivateKey() *rsa.PrivateKey {
	return s.privateKey
}

// config builds the two-legged OAuth config at most once, even under
// concurrent first use.
func (s *ServiceAccount) config() (*oauth2jwt.Config, error) {
	s.once.Do(func() {
		s.conf, s.confErr = google.JWTConfigFromJSON(s.jsonKey, AccessScopes()...)
		if s.confErr != nil {
			s.confErr = fmt.Errorf("error building token source from service account key: %w", s.confErr)
		}
	})
	return s.conf, s.confErr
}
