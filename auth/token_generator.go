// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"crypto/rsa"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type tokenGenerator struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
	now         func() time.Time
}

const (
	// customTokenAudience is the fixed audience of custom tokens,
	// required by the signInWithCustomToken exchange.
	customTokenAudience = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"

	customTokenValidity = time.Hour

	maxUIDLength = 128
)

// reservedClaims are the registered JWT claim names that developer claims
// must not collide with.
var reservedClaims = []string{
	"acr", "amr", "at_hash", "aud", "auth_time", "azp", "cnf", "c_hash",
	"exp", "iat", "iss", "jti", "nbf", "nonce", "sub", "firebase",
}

// sign builds and signs a custom token asserting the given uid and optional
// developer claims. Argument problems surface as plain errors, signing
// problems as ErrorTokenCreationFailed.
func (g *tokenGenerator) sign(uid string, developerClaims map[string]any) (string, error) {
	if err := validateUID(uid); err != nil {
		return "", err
	}
	for _, claim := range reservedClaims {
		if _, ok := developerClaims[claim]; ok {
			return "", fmt.Errorf("developer claim %q is reserved and cannot be specified", claim)
		}
	}

	// The sign-in exchange expects a string audience, so the claims are
	// laid out directly instead of through jwt.RegisteredClaims.
	now := g.now()
	claims := jwt.MapClaims{
		"iss": g.clientEmail,
		"sub": g.clientEmail,
		"aud": customTokenAudience,
		"iat": now.Unix(),
		"exp": now.Add(customTokenValidity).Unix(),
		"uid": uid,
	}
	if len(developerClaims) > 0 {
		claims["claims"] = developerClaims
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(g.privateKey)
	if err != nil {
		return "", newError(ErrorTokenCreationFailed, "error signing custom token: %v", err)
	}
	return signed, nil
}

func validateUID(uid string) error {
	if uid == "" {
		return fmt.Errorf("uid must not be empty")
	}
	if len(uid) > maxUIDLength {
		return fmt.Errorf("uid must not be longer than %v characters", maxUIDLength)
	}
	return nil
}
