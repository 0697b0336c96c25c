// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

// Package auth implements the server-side authentication operations of the
// SDK: minting custom tokens, verifying ID tokens and managing user
// accounts. Client exposes the blocking API, which is the canonical
// implementation; AsyncClient wraps it with the shared worker pool.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/matheuscscp/identity-admin/credentials"
	"github.com/matheuscscp/identity-admin/internal/metrics"
	"github.com/matheuscscp/identity-admin/internal/publickeys"

	"github.com/prometheus/client_golang/prometheus"
)

type (
	// Client exposes blocking authentication operations. Safe for
	// concurrent use.
	Client struct {
		credential credentials.Credential
		users      *userManagementClient
		keys       *publickeys.Manager
		now        func() time.Time
	}

	// Config carries the collaborators of a Client. Only Credential is
	// mandatory.
	Config struct {
		Credential             credentials.Credential
		HTTPClient             *http.Client
		PublicKeysURL          string
		UserManagementEndpoint string
		MetricsRegistry        *prometheus.Registry
		Now                    func() time.Time
	}
)

func NewClient(conf *Config) (*Client, error) {
	if conf == nil || conf.Credential == nil {
		return nil, fmt.Errorf("a credential is required for creating an auth client")
	}
	httpClient := conf.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	now := conf.Now
	if now == nil {
		now = time.Now
	}
	endpoint := conf.UserManagementEndpoint
	if endpoint == "" {
		endpoint = DefaultUserManagementEndpoint
	}

	var latency *prometheus.HistogramVec
	if conf.MetricsRegistry != nil {
		latency = metrics.NewLatencyMillis("user_management", []string{"method", "status"})
		conf.MetricsRegistry.MustRegister(latency)
	}

	return &Client{
		credential: conf.Credential,
		users: &userManagementClient{
			endpoint:   endpoint,
			httpClient: httpClient,
			credential: conf.Credential,
			latency:    latency,
		},
		keys: publickeys.NewManager(publickeys.ManagerOptions{
			URL:             conf.PublicKeysURL,
			HTTPClient:      httpClient,
			Now:             now,
			MetricsRegistry: conf.MetricsRegistry,
		}),
		now: now,
	}, nil
}

// AccessToken fetches a fresh OAuth2 access token from the active
// credential. Tokens are never cached here, each call is an independent
// exchange.
func (c *Client) AccessToken(ctx context.Context) (*credentials.AccessToken, error) {
	token, err := c.credential.AccessToken(ctx)
	if err != nil {
		return nil, newError(ErrorAccessTokenFetchFailed, "error fetching access token: %v", err)
	}
	return token, nil
}

// CustomToken mints a signed custom token asserting the given uid. The
// token can be exchanged by a client application through the
// signInWithCustomToken API.
func (c *Client) CustomToken(ctx context.Context, uid string) (string, error) {
	return c.CustomTokenWithClaims(ctx, uid, nil)
}

// CustomTokenWithClaims is like CustomToken but additionally embeds the
// given developer claims in the token. Claim names colliding with reserved
// JWT claims are rejected.
func (c *Client) CustomTokenWithClaims(ctx context.Context, uid string, developerClaims map[string]any) (string, error) {
	sa, err := c.serviceAccount("CustomToken")
	if err != nil {
		return "", err
	}
	g := &tokenGenerator{
		clientEmail: sa.ClientEmail(),
		privateKey:  sa.PrivateKey(),
		now:         c.now,
	}
	return g.sign(uid, developerClaims)
}

// VerifyIDToken verifies the signature and standard claims of an ID token
// produced by a client-side sign-in, returning its parsed form.
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	sa, err := c.serviceAccount("VerifyIDToken")
	if err != nil {
		return nil, err
	}
	v := &tokenVerifier{
		projectID: sa.ProjectID(),
		keys:      c.keys,
		now:       c.now,
	}
	return v.verify(ctx, idToken)
}

// GetUser fetches the user record with the given uid.
func (c *Client) GetUser(ctx context.Context, uid string) (*UserRecord, error) {
	if err := validateUID(uid); err != nil {
		return nil, err
	}
	return c.users.getUserByID(ctx, uid)
}

// GetUserByEmail fetches the user record with the given email address.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	if email == "" {
		return nil, fmt.Errorf("email must not be empty")
	}
	return c.users.getUserByEmail(ctx, email)
}

// CreateUser provisions a new user account and returns its full record.
func (c *Client) CreateUser(ctx context.Context, req *CreateRequest) (*UserRecord, error) {
	if req == nil {
		return nil, fmt.Errorf("create request must not be nil")
	}
	if req.UID != "" {
		if err := validateUID(req.UID); err != nil {
			return nil, err
		}
	}
	uid, err := c.users.createUser(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.users.getUserByID(ctx, uid)
}

// UpdateUser applies the given changes to an existing user account and
// returns the updated record.
func (c *Client) UpdateUser(ctx context.Context, req *UpdateRequest) (*UserRecord, error) {
	if req == nil {
		return nil, fmt.Errorf("update request must not be nil")
	}
	if err := validateUID(req.UID); err != nil {
		return nil, err
	}
	if err := c.users.updateUser(ctx, req); err != nil {
		return nil, err
	}
	return c.users.getUserByID(ctx, req.UID)
}

// DeleteUser deletes the user account with the given uid.
func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	if err := validateUID(uid); err != nil {
		return err
	}
	return c.users.deleteUser(ctx, uid)
}

func (c *Client) serviceAccount(operation string) (*credentials.ServiceAccount, error) {
	sa, ok := c.credential.(*credentials.ServiceAccount)
	if !ok {
		return nil, newError(ErrorInvalidCredential,
			"must initialize the app with a service account credential to call %s()", operation)
	}
	return sa, nil
}
