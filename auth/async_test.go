// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package auth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/matheuscscp/identity-admin/auth"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// goroutinePool runs each unit of work on its own goroutine, standing in for
// the shared worker pool.
type goroutinePool struct{}

func (goroutinePool) Submit(fn func()) { go fn() }

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestAsyncCustomToken(t *testing.T) {
	client, key := newServiceAccountClient(t, nil)
	async, err := auth.NewAsyncClient(client, goroutinePool{})
	require.NoError(t, err)
	assert.Same(t, client, async.Blocking())

	task, err := async.CustomTokenWithClaims(context.Background(), "user1", map[string]any{"premium": true})
	require.NoError(t, err)

	signed, err := task.Get(waitCtx(t))
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.NewParser().ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user1", claims["uid"])
}

func TestAsyncValidatesArgumentsSynchronously(t *testing.T) {
	client, _ := newServiceAccountClient(t, nil)
	async, err := auth.NewAsyncClient(client, goroutinePool{})
	require.NoError(t, err)
	ctx := context.Background()

	// Invalid arguments fail before any work is scheduled: no task is
	// returned at all.
	task, err := async.CustomToken(ctx, "")
	require.Error(t, err)
	assert.Nil(t, task)

	idTask, err := async.VerifyIDToken(ctx, "")
	require.Error(t, err)
	assert.Nil(t, idTask)

	userTask, err := async.GetUser(ctx, "")
	require.Error(t, err)
	assert.Nil(t, userTask)

	userTask, err = async.CreateUser(ctx, nil)
	require.Error(t, err)
	assert.Nil(t, userTask)

	userTask, err = async.UpdateUser(ctx, &auth.UpdateRequest{})
	require.Error(t, err)
	assert.Nil(t, userTask)

	delTask, err := async.DeleteUser(ctx, "")
	require.Error(t, err)
	assert.Nil(t, delTask)
}

func TestAsyncAccessToken(t *testing.T) {
	cred := &countingCredential{}
	client, err := auth.NewClient(&auth.Config{Credential: cred})
	require.NoError(t, err)
	async, err := auth.NewAsyncClient(client, goroutinePool{})
	require.NoError(t, err)

	token, err := async.AccessToken(context.Background()).Get(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "mock-access-token-1", token.Value)
}

func TestAsyncUserOperations(t *testing.T) {
	api, server := newUserAPIServer(t)
	api.respond("getAccountInfo", http.StatusOK, userPayload("user1"))
	client, _ := newUserClient(t, server)
	async, err := auth.NewAsyncClient(client, goroutinePool{})
	require.NoError(t, err)

	task, err := async.GetUser(context.Background(), "user1")
	require.NoError(t, err)
	user, err := task.Get(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "user1", user.UID)

	delTask, err := async.DeleteUser(context.Background(), "user1")
	require.NoError(t, err)
	_, err = delTask.Get(waitCtx(t))
	require.NoError(t, err)
}

func TestAsyncDeliversOperationFailures(t *testing.T) {
	api, server := newUserAPIServer(t)
	api.respond("getAccountInfo", http.StatusOK, map[string]any{"users": []any{}})
	client, _ := newUserClient(t, server)
	async, err := auth.NewAsyncClient(client, goroutinePool{})
	require.NoError(t, err)

	task, err := async.GetUser(context.Background(), "ghost")
	require.NoError(t, err)

	_, err = task.Get(waitCtx(t))
	require.Error(t, err)
	// The SDK error code survives the task wrapping.
	assert.Equal(t, auth.ErrorUserNotFound, auth.Code(err))
}

func TestNewAsyncClientRequiresCollaborators(t *testing.T) {
	client, _ := newServiceAccountClient(t, nil)
	_, err := auth.NewAsyncClient(nil, goroutinePool{})
	require.Error(t, err)
	_, err = auth.NewAsyncClient(client, nil)
	require.Error(t, err)
}
