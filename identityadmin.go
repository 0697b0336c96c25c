// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

// Package identityadmin is the entry point of the server-side SDK. An App
// ties a credential to the shared executor pools and hands out the service
// clients. Multiple apps share the same underlying pools, which exist from
// the first Initialize until the last Delete.
package identityadmin

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/matheuscscp/identity-admin/auth"
	"github.com/matheuscscp/identity-admin/credentials"
	"github.com/matheuscscp/identity-admin/internal/executors"
	"github.com/matheuscscp/identity-admin/tasks"

	"github.com/prometheus/client_golang/prometheus"
)

type (
	// App is an initialized SDK instance. Create with Initialize and
	// dispose with Delete.
	App struct {
		opts     Options
		pools    *executors.Pools
		registry *executors.Registry

		mu      sync.Mutex
		deleted bool
		client  *auth.Client
	}

	// Options configures an App. The zero value initializes a default
	// app using application-default credentials.
	Options struct {
		// Credential authenticates API calls. Defaults to
		// application-default credentials.
		Credential credentials.Credential

		// Name distinguishes multiple apps in the same process.
		// Defaults to DefaultAppName.
		Name string

		// HTTPClient is used for all outbound calls. Defaults to
		// http.DefaultClient.
		HTTPClient *http.Client

		// MetricsRegistry optionally collects SDK metrics.
		MetricsRegistry *prometheus.Registry

		// PublicKeysURL and UserManagementEndpoint override the
		// well-known API endpoints, for tests.
		PublicKeysURL          string
		UserManagementEndpoint string
	}
)

const DefaultAppName = "[DEFAULT]"

var (
	appsMutex       sync.Mutex
	apps            = make(map[string]*App)
	defaultRegistry = executors.NewRegistry(executors.RegistryOptions{})
)

// Initialize creates an App and registers it with the executor registry.
// The shared pools are created by the first registration and reused by
// later ones. App names must be unique among live apps.
func Initialize(opts Options) (*App, error) {
	if opts.Name == "" {
		opts.Name = DefaultAppName
	}
	if opts.Credential == nil {
		opts.Credential = credentials.NewApplicationDefault()
	}
	registry := defaultRegistry

	appsMutex.Lock()
	defer appsMutex.Unlock()
	if _, ok := apps[opts.Name]; ok {
		return nil, fmt.Errorf("an app named %q already exists", opts.Name)
	}
	app := &App{
		opts:     opts,
		pools:    registry.Acquire(opts.Name),
		registry: registry,
	}
	apps[opts.Name] = app
	return app, nil
}

// Delete deregisters the app. When the last live app is deleted the shared
// executor pools are torn down. Using the app afterwards is an error.
func (a *App) Delete() {
	a.mu.Lock()
	if a.deleted {
		a.mu.Unlock()
		return
	}
	a.deleted = true
	a.mu.Unlock()

	appsMutex.Lock()
	delete(apps, a.opts.Name)
	appsMutex.Unlock()
	a.registry.Release(a.opts.Name)
}

func (a *App) Name() string {
	return a.opts.Name
}

func (a *App) Credential() credentials.Credential {
	return a.opts.Credential
}

// Workers returns the shared worker pool assigned to this app.
func (a *App) Workers() tasks.Executor {
	return a.pools.Workers
}

// Schedule runs fn on the shared scheduled executor after the given delay.
// The returned function cancels the pending execution.
func (a *App) Schedule(delay time.Duration, fn func()) (cancel func()) {
	return a.pools.Scheduler.Schedule(delay, fn)
}

// Auth returns the blocking authentication client of this app. The client
// is built on first use and reused afterwards.
func (a *App) Auth() (*auth.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.deleted {
		return nil, fmt.Errorf("app %q was deleted", a.opts.Name)
	}
	if a.client == nil {
		client, err := auth.NewClient(&auth.Config{
			Credential:             a.opts.Credential,
			HTTPClient:             a.opts.HTTPClient,
			PublicKeysURL:          a.opts.PublicKeysURL,
			UserManagementEndpoint: a.opts.UserManagementEndpoint,
			MetricsRegistry:        a.opts.MetricsRegistry,
		})
		if err != nil {
			return nil, err
		}
		a.client = client
	}
	return a.client, nil
}

// AsyncAuth returns the future-based authentication client of this app,
// backed by the shared worker pool.
func (a *App) AsyncAuth() (*auth.AsyncClient, error) {
	client, err := a.Auth()
	if err != nil {
		return nil, err
	}
	return auth.NewAsyncClient(client, a.pools.Workers)
}
