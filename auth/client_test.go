// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package auth_test

import (
	"context"
	"crypto/rsa"
	"fmt"
	"testing"
	"time"

	"github.com/matheuscscp/identity-admin/auth"
	"github.com/matheuscscp/identity-admin/credentials"
	pkgtesting "github.com/matheuscscp/identity-admin/internal/testing"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredential struct{}

func (fakeCredential) AccessToken(ctx context.Context) (*credentials.AccessToken, error) {
	return &credentials.AccessToken{Value: "mock-access-token"}, nil
}

func newServiceAccountClient(t *testing.T, conf *auth.Config) (*auth.Client, *rsa.PrivateKey) {
	t.Helper()
	key := pkgtesting.NewRSAKey(t)
	sa, err := credentials.NewServiceAccount(pkgtesting.ServiceAccountJSON(t, key, ""))
	require.NoError(t, err)
	if conf == nil {
		conf = &auth.Config{}
	}
	conf.Credential = sa
	client, err := auth.NewClient(conf)
	require.NoError(t, err)
	return client, key
}

func newVerifierClient(t *testing.T, idTokenKey *rsa.PrivateKey, keyID string, now func() time.Time) *auth.Client {
	t.Helper()
	server := pkgtesting.PublicKeysServer(t, 3600, map[string]*rsa.PublicKey{
		keyID: &idTokenKey.PublicKey,
	})
	client, _ := newServiceAccountClient(t, &auth.Config{
		PublicKeysURL: server.URL,
		Now:           now,
	})
	return client
}

func TestCustomTokenRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	client, key := newServiceAccountClient(t, &auth.Config{
		Now: func() time.Time { return now },
	})

	developerClaims := map[string]any{
		"premium":      true,
		"subscription": "silver",
	}
	signed, err := client.CustomTokenWithClaims(context.Background(), "user1", developerClaims)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})).
		ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
			return &key.PublicKey, nil
		})
	require.NoError(t, err)

	assert.Equal(t, pkgtesting.ClientEmail, claims["iss"])
	assert.Equal(t, pkgtesting.ClientEmail, claims["sub"])
	assert.Equal(t, "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit", claims["aud"])
	assert.Equal(t, "user1", claims["uid"])
	assert.Equal(t, float64(now.Unix()), claims["iat"])
	assert.Equal(t, float64(now.Add(time.Hour).Unix()), claims["exp"])
	assert.Equal(t, map[string]any{
		"premium":      true,
		"subscription": "silver",
	}, claims["claims"])
}

func TestCustomTokenWithoutClaimsOmitsClaimsField(t *testing.T) {
	client, key := newServiceAccountClient(t, nil)

	signed, err := client.CustomToken(context.Background(), "user1")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.NewParser().ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	_, ok := claims["claims"]
	assert.False(t, ok)
}

func TestCustomTokenArgumentValidation(t *testing.T) {
	client, _ := newServiceAccountClient(t, nil)
	ctx := context.Background()

	_, err := client.CustomToken(ctx, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uid must not be empty")
	assert.Empty(t, auth.Code(err))

	longUID := make([]byte, 129)
	for i := range longUID {
		longUID[i] = 'a'
	}
	_, err = client.CustomToken(ctx, string(longUID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "128")

	for _, claim := range []string{"iss", "sub", "aud", "exp", "iat", "firebase", "nonce"} {
		_, err = client.CustomTokenWithClaims(ctx, "user1", map[string]any{claim: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), fmt.Sprintf("developer claim %q is reserved", claim))
	}
}

func TestCustomTokenRequiresServiceAccount(t *testing.T) {
	client, err := auth.NewClient(&auth.Config{Credential: fakeCredential{}})
	require.NoError(t, err)

	_, err = client.CustomToken(context.Background(), "user1")
	require.Error(t, err)
	assert.Equal(t, auth.ErrorInvalidCredential, auth.Code(err))
	assert.Contains(t, err.Error(), "CustomToken()")
}

func TestVerifyIDToken(t *testing.T) {
	idTokenKey := pkgtesting.NewRSAKey(t)
	client := newVerifierClient(t, idTokenKey, "kid1", nil)

	claims := pkgtesting.IDTokenClaims(pkgtesting.ProjectID, "user1")
	claims["premium"] = true
	idToken := pkgtesting.SignIDToken(t, idTokenKey, "kid1", claims)

	token, err := client.VerifyIDToken(context.Background(), idToken)
	require.NoError(t, err)
	assert.Equal(t, "user1", token.UID)
	assert.Equal(t, "user1", token.Subject)
	assert.Equal(t, pkgtesting.ProjectID, token.Audience)
	assert.Equal(t, "https://securetoken.google.com/"+pkgtesting.ProjectID, token.Issuer)
	assert.Equal(t, true, token.Claims["premium"])
	assert.False(t, token.Expires.IsZero())
	assert.False(t, token.IssuedAt.IsZero())
}

func TestVerifyIDTokenErrorKinds(t *testing.T) {
	idTokenKey := pkgtesting.NewRSAKey(t)
	otherKey := pkgtesting.NewRSAKey(t)
	client := newVerifierClient(t, idTokenKey, "kid1", nil)
	ctx := context.Background()

	longSub := make([]byte, 129)
	for i := range longSub {
		longSub[i] = 'a'
	}

	for _, tt := range []struct {
		name    string
		idToken func() string
		code    auth.ErrorCode
	}{
		{
			name: "malformed token",
			idToken: func() string {
				return "not.a.token"
			},
			code: auth.ErrorIDTokenParse,
		},
		{
			name: "missing kid header",
			idToken: func() string {
				token := jwt.NewWithClaims(jwt.SigningMethodRS256,
					pkgtesting.IDTokenClaims(pkgtesting.ProjectID, "user1"))
				signed, err := token.SignedString(idTokenKey)
				require.NoError(t, err)
				return signed
			},
			code: auth.ErrorIDTokenParse,
		},
		{
			name: "wrong signing key",
			idToken: func() string {
				return pkgtesting.SignIDToken(t, otherKey, "kid1",
					pkgtesting.IDTokenClaims(pkgtesting.ProjectID, "user1"))
			},
			code: auth.ErrorIDTokenInvalidSignature,
		},
		{
			name: "expired",
			idToken: func() string {
				claims := pkgtesting.IDTokenClaims(pkgtesting.ProjectID, "user1")
				claims["exp"] = time.Now().Add(-time.Minute).Unix()
				return pkgtesting.SignIDToken(t, idTokenKey, "kid1", claims)
			},
			code: auth.ErrorIDTokenExpired,
		},
		{
			name: "issued in the future",
			idToken: func() string {
				claims := pkgtesting.IDTokenClaims(pkgtesting.ProjectID, "user1")
				claims["iat"] = time.Now().Add(time.Hour).Unix()
				return pkgtesting.SignIDToken(t, idTokenKey, "kid1", claims)
			},
			code: auth.ErrorIDTokenIssuedInFuture,
		},
		{
			name: "wrong audience",
			idToken: func() string {
				claims := pkgtesting.IDTokenClaims(pkgtesting.ProjectID, "user1")
				claims["aud"] = "another-project"
				return pkgtesting.SignIDToken(t, idTokenKey, "kid1", claims)
			},
			code: auth.ErrorIDTokenInvalidAudience,
		},
		{
			name: "wrong issuer",
			idToken: func() string {
				claims := pkgtesting.IDTokenClaims(pkgtesting.ProjectID, "user1")
				claims["iss"] = "https://securetoken.google.com/another-project"
				return pkgtesting.SignIDToken(t, idTokenKey, "kid1", claims)
			},
			code: auth.ErrorIDTokenInvalidIssuer,
		},
		{
			name: "empty subject",
			idToken: func() string {
				claims := pkgtesting.IDTokenClaims(pkgtesting.ProjectID, "")
				return pkgtesting.SignIDToken(t, idTokenKey, "kid1", claims)
			},
			code: auth.ErrorIDTokenInvalidSubject,
		},
		{
			name: "overlong subject",
			idToken: func() string {
				claims := pkgtesting.IDTokenClaims(pkgtesting.ProjectID, string(longSub))
				return pkgtesting.SignIDToken(t, idTokenKey, "kid1", claims)
			},
			code: auth.ErrorIDTokenInvalidSubject,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.VerifyIDToken(ctx, tt.idToken())
			require.Error(t, err)
			assert.Equal(t, tt.code, auth.Code(err))
		})
	}
}

func TestVerifyIDTokenEmptyToken(t *testing.T) {
	idTokenKey := pkgtesting.NewRSAKey(t)
	client := newVerifierClient(t, idTokenKey, "kid1", nil)

	_, err := client.VerifyIDToken(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id token must not be empty")
	assert.Empty(t, auth.Code(err))
}

func TestVerifyIDTokenUnknownKeyID(t *testing.T) {
	idTokenKey := pkgtesting.NewRSAKey(t)
	client := newVerifierClient(t, idTokenKey, "kid1", nil)

	idToken := pkgtesting.SignIDToken(t, idTokenKey, "kid2",
		pkgtesting.IDTokenClaims(pkgtesting.ProjectID, "user1"))
	_, err := client.VerifyIDToken(context.Background(), idToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no public key matching the token key id "kid2"`)
}

func TestVerifyIDTokenRequiresServiceAccount(t *testing.T) {
	client, err := auth.NewClient(&auth.Config{Credential: fakeCredential{}})
	require.NoError(t, err)

	_, err = client.VerifyIDToken(context.Background(), "some-token")
	require.Error(t, err)
	assert.Equal(t, auth.ErrorInvalidCredential, auth.Code(err))
	assert.Contains(t, err.Error(), "VerifyIDToken()")
}

func TestVerifyMintedCustomTokenFails(t *testing.T) {
	// A custom token is not an ID token: it carries no key id header, so
	// verification rejects it while parsing.
	saKey := pkgtesting.NewRSAKey(t)
	server := pkgtesting.PublicKeysServer(t, 3600, map[string]*rsa.PublicKey{
		"kid1": &saKey.PublicKey,
	})
	sa, err := credentials.NewServiceAccount(pkgtesting.ServiceAccountJSON(t, saKey, ""))
	require.NoError(t, err)
	client, err := auth.NewClient(&auth.Config{
		Credential:    sa,
		PublicKeysURL: server.URL,
	})
	require.NoError(t, err)

	customToken, err := client.CustomToken(context.Background(), "user1")
	require.NoError(t, err)

	_, err = client.VerifyIDToken(context.Background(), customToken)
	require.Error(t, err)
	assert.Equal(t, auth.ErrorIDTokenParse, auth.Code(err))
}

func TestNewClientRequiresCredential(t *testing.T) {
	_, err := auth.NewClient(nil)
	require.Error(t, err)
	_, err = auth.NewClient(&auth.Config{})
	require.Error(t, err)
}
