// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"context"
	"fmt"

	"github.com/matheuscscp/identity-admin/credentials"
	"github.com/matheuscscp/identity-admin/tasks"
)

// AsyncClient exposes the same operations as Client through futures: each
// call submits the blocking implementation to the shared worker pool and
// returns immediately. Argument validation still happens synchronously,
// before any work is scheduled; failures past that point are delivered
// through the task.
type AsyncClient struct {
	client *Client
	pool   tasks.Executor
}

func NewAsyncClient(client *Client, pool tasks.Executor) (*AsyncClient, error) {
	if client == nil || pool == nil {
		return nil, fmt.Errorf("a client and a worker pool are required for creating an async auth client")
	}
	return &AsyncClient{client: client, pool: pool}, nil
}

// Blocking returns the underlying blocking client.
func (a *AsyncClient) Blocking() *Client {
	return a.client
}

func (a *AsyncClient) AccessToken(ctx context.Context) *tasks.Task[*credentials.AccessToken] {
	return tasks.Call(a.pool, func() (*credentials.AccessToken, error) {
		return a.client.AccessToken(ctx)
	})
}

func (a *AsyncClient) CustomToken(ctx context.Context, uid string) (*tasks.Task[string], error) {
	return a.CustomTokenWithClaims(ctx, uid, nil)
}

func (a *AsyncClient) CustomTokenWithClaims(ctx context.Context, uid string, developerClaims map[string]any) (*tasks.Task[string], error) {
	if err := validateUID(uid); err != nil {
		return nil, err
	}
	return tasks.Call(a.pool, func() (string, error) {
		return a.client.CustomTokenWithClaims(ctx, uid, developerClaims)
	}), nil
}

func (a *AsyncClient) VerifyIDToken(ctx context.Context, idToken string) (*tasks.Task[*Token], error) {
	if idToken == "" {
		return nil, fmt.Errorf("id token must not be empty")
	}
	return tasks.Call(a.pool, func() (*Token, error) {
		return a.client.VerifyIDToken(ctx, idToken)
	}), nil
}

func (a *AsyncClient) GetUser(ctx context.Context, uid string) (*tasks.Task[*UserRecord], error) {
	if err := validateUID(uid); err != nil {
		return nil, err
	}
	return tasks.Call(a.pool, func() (*UserRecord, error) {
		return a.client.GetUser(ctx, uid)
	}), nil
}

func (a *AsyncClient) GetUserByEmail(ctx context.Context, email string) (*tasks.Task[*UserRecord], error) {
	if email == "" {
		return nil, fmt.Errorf("email must not be empty")
	}
	return tasks.Call(a.pool, func() (*UserRecord, error) {
		return a.client.GetUserByEmail(ctx, email)
	}), nil
}

func (a *AsyncClient) CreateUser(ctx context.Context, req *CreateRequest) (*tasks.Task[*UserRecord], error) {
	if req == nil {
		return nil, fmt.Errorf("create request must not be nil")
	}
	return tasks.Call(a.pool, func() (*UserRecord, error) {
		return a.client.CreateUser(ctx, req)
	}), nil
}

func (a *AsyncClient) UpdateUser(ctx context.Context, req *UpdateRequest) (*tasks.Task[*UserRecord], error) {
	if req == nil {
		return nil, fmt.Errorf("update request must not be nil")
	}
	if err := validateUID(req.UID); err != nil {
		return nil, err
	}
	return tasks.Call(a.pool, func() (*UserRecord, error) {
		return a.client.UpdateUser(ctx, req)
	}), nil
}

func (a *AsyncClient) DeleteUser(ctx context.Context, uid string) (*tasks.Task[struct{}], error) {
	if err := validateUID(uid); err != nil {
		return nil, err
	}
	return tasks.Call(a.pool, func() (struct{}, error) {
		return struct{}{}, a.client.DeleteUser(ctx, uid)
	}), nil
}
