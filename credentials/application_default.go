// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package credentials

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/compute/metadata"
	"golang.org/x/oauth2/google"
)

// ApplicationDefault is a credential backed by the standard application
// default resolution chain: the GOOGLE_APPLICATION_CREDENTIALS environment
// variable, the gcloud well-known file, or the metadata server. Resolution
// is deferred to first use because it may perform RPCs in some environments,
// and happens at most once per instance.
type ApplicationDefault struct {
	once  sync.Once
	creds *google.Credentials
	err   error
}

var _ Credential = (*ApplicationDefault)(nil)

func NewApplicationDefault() *ApplicationDefault {
	return &ApplicationDefault{}
}

func (a *ApplicationDefault) AccessToken(ctx context.Context) (*AccessToken, error) {
	creds, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}
	token, err := creds.TokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("error fetching access token from application default credentials: %w", err)
	}
	return newAccessToken(token), nil
}

// ProjectID reports the project associated with the resolved credentials,
// falling back to the metadata server when running on GCE.
func (a *ApplicationDefault) ProjectID(ctx context.Context) (string, error) {
	creds, err := a.resolve(ctx)
	if err != nil {
		return "", err
	}
	if creds.ProjectID != "" {
		return creds.ProjectID, nil
	}
	if metadata.OnGCE() {
		return metadata.ProjectIDWithContext(ctx)
	}
	return "", fmt.Errorf("could not determine the project of the application default credentials")
}

func (a *ApplicationDefault) resolve(ctx context.Context) (*google.Credentials, error) {
	a.once.Do(func() {
		a.creds, a.err = google.FindDefaultCredentials(ctx, AccessScopes()...)
		if a.err != nil {
			a.err = fmt.Errorf("error resolving application default credentials: %w", a.err)
		}
	})
	return a.creds, a.err
}
