// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheuscscp/identity-admin/internal/publickeys"

	jwt "github.com/golang-jwt/jwt/v5"
)

type (
	tokenVerifier struct {
		projectID string
		keys      *publickeys.Manager
		now       func() time.Time
	}

	// Token is a verified ID token. It is immutable once parsed and only
	// produced by successful verification.
	Token struct {
		UID      string
		Subject  string
		Issuer   string
		Audience string
		IssuedAt time.Time
		Expires  time.Time
		Claims   map[string]any
	}
)

const issuerPrefix = "https://securetoken.google.com/"

// verify parses the token, checks its RSA signature against the key
// matching its key id header, and validates the standard claims. Each
// failed check surfaces as a distinct error code.
func (v *tokenVerifier) verify(ctx context.Context, idToken string) (*Token, error) {
	if idToken == "" {
		return nil, fmt.Errorf("id token must not be empty")
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(idToken, claims, func(t *jwt.Token) (any, error) {
		keyID, ok := t.Header["kid"].(string)
		if !ok || keyID == "" {
			return nil, newError(ErrorIDTokenParse, "id token has no kid header")
		}
		return v.keys.Key(ctx, keyID)
	})
	if err != nil {
		return nil, translateParseError(err)
	}

	now := v.now()
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, newError(ErrorIDTokenParse, "id token has no exp claim")
	}
	if !now.Before(exp.Time) {
		return nil, newError(ErrorIDTokenExpired, "id token expired at %v", exp.Time)
	}
	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, newError(ErrorIDTokenParse, "id token has no iat claim")
	}
	if iat.Time.After(now) {
		return nil, newError(ErrorIDTokenIssuedInFuture, "id token issued in the future, at %v", iat.Time)
	}
	aud, err := claims.GetAudience()
	if err != nil || len(aud) != 1 || aud[0] != v.projectID {
		return nil, newError(ErrorIDTokenInvalidAudience,
			"id token audience %q does not match the project id %q", aud, v.projectID)
	}
	iss, err := claims.GetIssuer()
	if expectedIssuer := issuerPrefix + v.projectID; err != nil || iss != expectedIssuer {
		return nil, newError(ErrorIDTokenInvalidIssuer,
			"id token issuer %q does not match %q", iss, expectedIssuer)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, newError(ErrorIDTokenInvalidSubject, "id token has an empty subject")
	}
	if len(sub) > maxUIDLength {
		return nil, newError(ErrorIDTokenInvalidSubject,
			"id token subject is longer than %v characters", maxUIDLength)
	}

	return &Token{
		UID:      sub,
		Subject:  sub,
		Issuer:   iss,
		Audience: aud[0],
		IssuedAt: iat.Time,
		Expires:  exp.Time,
		Claims:   map[string]any(claims),
	}, nil
}

func translateParseError(err error) error {
	var sdkErr *Error
	switch {
	case errors.As(err, &sdkErr):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newError(ErrorIDTokenParse, "error parsing id token: %v", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return newError(ErrorIDTokenInvalidSignature, "id token signature does not match any current public key: %v", err)
	default:
		// Key fetching failures and other transport problems end up here.
		return fmt.Errorf("error verifying id token: %w", err)
	}
}
