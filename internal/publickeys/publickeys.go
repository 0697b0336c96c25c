// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

// Package publickeys maintains the rotating set of public keys used to
// verify ID token signatures. Keys are fetched from a well-known HTTPS
// endpoint serving a JSON map of key ID to PEM-encoded certificate, and are
// cached according to the Cache-Control headers of the response.
package publickeys

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matheuscscp/identity-admin/internal/logging"
	"github.com/matheuscscp/identity-admin/internal/metrics"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

type (
	Manager struct {
		opts ManagerOptions

		mu     sync.Mutex
		keys   map[string]*rsa.PublicKey
		expiry time.Time
		group  singleflight.Group

		refreshFailures prometheus.Counter
	}

	ManagerOptions struct {
		URL             string
		HTTPClient      *http.Client
		Now             func() time.Time
		MetricsRegistry *prometheus.Registry
	}
)

// DefaultURL serves the certificates of the keys currently used to sign
// ID tokens.
const DefaultURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

func NewManager(opts ManagerOptions) *Manager {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Manager{opts: opts}
	if opts.MetricsRegistry != nil {
		m.refreshFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "public_keys",
			Name:      "refresh_failures_total",
			Help:      "Total failures when refreshing the set of token signing public keys.",
		})
		opts.MetricsRegistry.MustRegister(m.refreshFailures)
	}
	return m
}

// Key returns the public key matching the given key ID, refreshing the
// cached set first if it went stale. Concurrent refreshes are collapsed
// into a single fetch.
func (m *Manager) Key(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	m.mu.Lock()
	if key, ok := m.keys[keyID]; ok && m.opts.Now().Before(m.expiry) {
		m.mu.Unlock()
		return key, nil
	}
	m.mu.Unlock()

	if _, err, _ := m.group.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	}); err != nil {
		if m.refreshFailures != nil {
			m.refreshFailures.Inc()
		}
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("no public key matching the token key id %q", keyID)
	}
	return key, nil
}

func (m *Manager) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("error creating public keys request: %w", err)
	}
	resp, err := m.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("error fetching public keys: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("non-200 status code %v fetching public keys: %s", resp.StatusCode, string(b))
	}

	var pemKeys map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&pemKeys); err != nil {
		return fmt.Errorf("error unmarshaling public keys response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(pemKeys))
	for keyID, pemKey := range pemKeys {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemKey))
		if err != nil {
			// Skip unparseable entries instead of poisoning the whole
			// set, tokens signed with the remaining keys must still
			// verify.
			logging.FromContext(ctx).WithError(err).WithField("key_id", keyID).
				Warn("error parsing public key, skipping")
			continue
		}
		keys[keyID] = key
	}
	if len(keys) == 0 {
		return fmt.Errorf("public keys endpoint returned no usable keys")
	}

	expiry := m.opts.Now().Add(cacheMaxAge(resp.Header))

	m.mu.Lock()
	m.keys = keys
	m.expiry = expiry
	m.mu.Unlock()
	return nil
}

// cacheMaxAge extracts the response freshness lifetime from the standard
// HTTP caching headers. A response without max-age is treated as
// immediately stale.
func cacheMaxAge(header http.Header) time.Duration {
	var maxAge time.Duration
	for _, directive := range strings.Split(header.Get("Cache-Control"), ",") {
		directive = strings.TrimSpace(directive)
		if v, ok := strings.CutPrefix(directive, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil {
				maxAge = time.Duration(secs) * time.Second
			}
		}
	}
	if age, err := strconv.Atoi(header.Get("Age")); err == nil {
		maxAge -= time.Duration(age) * time.Second
	}
	if maxAge < 0 {
		maxAge = 0
	}
	return maxAge
}
