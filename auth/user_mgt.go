// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/matheuscscp/identity-admin/credentials"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/googleapi"
)

type (
	userManagementClient struct {
		endpoint   string
		httpClient *http.Client
		credential credentials.Credential
		latency    *prometheus.HistogramVec
	}

	// UserRecord holds the account data of a user as stored by the
	// user-management API.
	UserRecord struct {
		UID           string
		Email         string
		EmailVerified bool
		DisplayName   string
		PhotoURL      string
		Disabled      bool
		Metadata      UserMetadata
	}

	// UserMetadata holds timestamps tracked by the user-management API.
	UserMetadata struct {
		CreationTime   time.Time
		LastSignInTime time.Time
	}

	// CreateRequest describes a user account to be created. All fields
	// are optional, unset fields are chosen by the remote API.
	CreateRequest struct {
		UID           string
		Email         string
		Password      string
		DisplayName   string
		PhotoURL      string
		EmailVerified bool
		Disabled      bool
	}

	// UpdateRequest describes changes to an existing user account. UID is
	// mandatory, nil fields are left untouched.
	UpdateRequest struct {
		UID           string
		Email         *string
		Password      *string
		DisplayName   *string
		PhotoURL      *string
		EmailVerified *bool
		Disabled      *bool
	}

	apiUser struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
		DisplayName   string `json:"displayName"`
		PhotoURL      string `json:"photoUrl"`
		Disabled      bool   `json:"disabled"`
		CreatedAt     string `json:"createdAt"`
		LastLoginAt   string `json:"lastLoginAt"`
	}

	getAccountInfoResponse struct {
		Users []apiUser `json:"users"`
	}
)

// DefaultUserManagementEndpoint is the base URL of the user-management REST
// API.
const DefaultUserManagementEndpoint = "https://www.googleapis.com/identitytoolkit/v3/relyingparty"

func (c *userManagementClient) getUserByID(ctx context.Context, uid string) (*UserRecord, error) {
	return c.getUser(ctx, map[string]any{"localId": []string{uid}}, "uid "+uid)
}

func (c *userManagementClient) getUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return c.getUser(ctx, map[string]any{"email": []string{email}}, "email "+email)
}

func (c *userManagementClient) getUser(ctx context.Context, query map[string]any, description string) (*UserRecord, error) {
	var resp getAccountInfoResponse
	if err := c.post(ctx, "getAccountInfo", query, &resp); err != nil {
		return nil, translateUserError(err, ErrorUserNotFound, "error looking up user by "+description)
	}
	if len(resp.Users) == 0 {
		return nil, newError(ErrorUserNotFound, "no user record found for %s", description)
	}
	return toUserRecord(resp.Users[0]), nil
}

func (c *userManagementClient) createUser(ctx context.Context, req *CreateRequest) (string, error) {
	payload := map[string]any{}
	setIfNotEmpty := func(key, value string) {
		if value != "" {
			payload[key] = value
		}
	}
	setIfNotEmpty("localId", req.UID)
	setIfNotEmpty("email", req.Email)
	setIfNotEmpty("password", req.Password)
	setIfNotEmpty("displayName", req.DisplayName)
	setIfNotEmpty("photoUrl", req.PhotoURL)
	if req.EmailVerified {
		payload["emailVerified"] = true
	}
	if req.Disabled {
		payload["disabled"] = true
	}

	var resp struct {
		LocalID string `json:"localId"`
	}
	if err := c.post(ctx, "signupNewUser", payload, &resp); err != nil {
		return "", translateUserError(err, ErrorUserCreateFailed, "error creating user")
	}
	return resp.LocalID, nil
}

func (c *userManagementClient) updateUser(ctx context.Context, req *UpdateRequest) error {
	payload := map[string]any{"localId": req.UID}
	setIfNotNil := func(key string, value *string) {
		if value != nil {
			payload[key] = *value
		}
	}
	setIfNotNil("email", req.Email)
	setIfNotNil("password", req.Password)
	setIfNotNil("displayName", req.DisplayName)
	setIfNotNil("photoUrl", req.PhotoURL)
	if req.EmailVerified != nil {
		payload["emailVerified"] = *req.EmailVerified
	}
	if req.Disabled != nil {
		payload["disableUser"] = *req.Disabled
	}

	var resp struct {
		LocalID string `json:"localId"`
	}
	if err := c.post(ctx, "setAccountInfo", payload, &resp); err != nil {
		return translateUserError(err, ErrorUserUpdateFailed, "error updating user "+req.UID)
	}
	return nil
}

func (c *userManagementClient) deleteUser(ctx context.Context, uid string) error {
	var resp struct{}
	if err := c.post(ctx, "deleteAccount", map[string]any{"localId": uid}, &resp); err != nil {
		return translateUserError(err, ErrorUserDeleteFailed, "error deleting user "+uid)
	}
	return nil
}

// post issues an authorized JSON call to the given API method. A fresh
// bearer token is fetched from the active credential per call.
func (c *userManagementClient) post(ctx context.Context, method string, payload, response any) error {
	accessToken, err := c.credential.AccessToken(ctx)
	if err != nil {
		return newError(ErrorAccessTokenFetchFailed, "error fetching access token: %v", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken.Value)

	t0 := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.latency != nil {
			c.latency.WithLabelValues(method, "error").
				Observe(float64(time.Since(t0).Milliseconds()))
		}
		return fmt.Errorf("error calling %s: %w", method, err)
	}
	defer resp.Body.Close()
	if c.latency != nil {
		c.latency.WithLabelValues(method, fmt.Sprint(resp.StatusCode)).
			Observe(float64(time.Since(t0).Milliseconds()))
	}

	if err := googleapi.CheckResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("error unmarshaling %s response: %w", method, err)
	}
	return nil
}

// translateUserError maps remote API failures to the per-operation error
// code, keeping the original error reachable for diagnostics. Access token
// failures keep their own code.
func translateUserError(err error, code ErrorCode, msg string) error {
	var sdkErr *Error
	if errors.As(err, &sdkErr) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return newError(code, "%s: %v", msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func toUserRecord(u apiUser) *UserRecord {
	return &UserRecord{
		UID:           u.LocalID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		DisplayName:   u.DisplayName,
		PhotoURL:      u.PhotoURL,
		Disabled:      u.Disabled,
		Metadata: UserMetadata{
			CreationTime:   millisTimestamp(u.CreatedAt),
			LastSignInTime: millisTimestamp(u.LastLoginAt),
		},
	}
}

func millisTimestamp(s string) time.Time {
	millis, err := strconv.ParseInt(s, 10, 64)
	if err != nil || millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
