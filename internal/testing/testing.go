// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

// Package pkgtesting provides helpers for tests: throwaway RSA keys,
// service account key payloads and fake well-known endpoints.
package pkgtesting

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ProjectID is the project used by service account payloads built with
// ServiceAccountJSON.
const ProjectID = "mock-project-id"

// ClientEmail is the service account email used by payloads built with
// ServiceAccountJSON.
const ClientEmail = "mock-adminsdk@mock-project-id.iam.gserviceaccount.com"

func NewRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("error generating rsa key: %v", err)
	}
	return key
}

// ServiceAccountJSON builds a service account key payload signed by the
// given RSA key. An empty tokenURI keeps the real OAuth endpoint.
func ServiceAccountJSON(t *testing.T, key *rsa.PrivateKey, tokenURI string) []byte {
	t.Helper()
	pemKey := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	payload := map[string]string{
		"type":           "service_account",
		"project_id":     ProjectID,
		"private_key_id": "mock-key-id",
		"private_key":    string(pemKey),
		"client_email":   ClientEmail,
		"client_id":      "1234567890",
	}
	if tokenURI != "" {
		payload["token_uri"] = tokenURI
	}
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("error marshaling service account payload: %v", err)
	}
	return b
}

// PublicKeysServer serves a key-id to PEM map the way the well-known
// certificate endpoint does, with the given Cache-Control max-age.
func PublicKeysServer(t *testing.T, maxAgeSeconds int, keys map[string]*rsa.PublicKey) *httptest.Server {
	t.Helper()
	pemKeys := make(map[string]string, len(keys))
	for keyID, key := range keys {
		der, err := x509.MarshalPKIXPublicKey(key)
		if err != nil {
			t.Fatalf("error marshaling public key: %v", err)
		}
		pemKeys[keyID] = string(pem.EncodeToMemory(&pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: der,
		}))
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, must-revalidate, no-transform", maxAgeSeconds))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(pemKeys)
	}))
	t.Cleanup(server.Close)
	return server
}

// SignIDToken signs a token the way the identity service signs ID tokens:
// RS256 with the key id in the header.
func SignIDToken(t *testing.T, key *rsa.PrivateKey, keyID string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("error signing test id token: %v", err)
	}
	return signed
}

// IDTokenClaims builds a standard valid claim set for the given project and
// uid, valid for one hour around now. Callers override entries to break
// specific checks.
func IDTokenClaims(projectID, uid string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": "https://securetoken.google.com/" + projectID,
		"aud": projectID,
		"sub": uid,
		"iat": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}
