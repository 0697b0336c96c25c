// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	identityadmin "github.com/matheuscscp/identity-admin"
	"github.com/matheuscscp/identity-admin/auth"
	"github.com/matheuscscp/identity-admin/internal/logging"

	"github.com/spf13/cobra"
)

// runWithAuthClient wraps the common lifecycle of the user commands: app
// initialization, cleanup and fatal error logging.
func runWithAuthClient(fn func(ctx context.Context, client *auth.Client) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		l := logging.FromContext(ctx)
		defer func() {
			if runtimeErr := err; err != nil {
				err = nil
				l.WithError(runtimeErr).Fatal("runtime error")
			}
		}()

		var app *identityadmin.App
		app, err = newApp()
		if err != nil {
			return err
		}
		defer app.Delete()

		client, err := app.Auth()
		if err != nil {
			return err
		}
		return fn(ctx, client)
	}
}

func printUserRecord(user *auth.UserRecord) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(user)
}

func newGetUserCommand() *cobra.Command {
	var uid string
	var email string

	cmd := &cobra.Command{
		Use:   "get-user",
		Short: "Fetch a user record by uid or email",
		RunE: runWithAuthClient(func(ctx context.Context, client *auth.Client) error {
			switch {
			case uid != "" && email != "":
				return fmt.Errorf("--uid and --email are mutually exclusive")
			case uid != "":
				user, err := client.GetUser(ctx, uid)
				if err != nil {
					return err
				}
				return printUserRecord(user)
			case email != "":
				user, err := client.GetUserByEmail(ctx, email)
				if err != nil {
					return err
				}
				return printUserRecord(user)
			default:
				return fmt.Errorf("either --uid or --email must be specified")
			}
		}),
	}

	cmd.Flags().StringVar(&uid, "uid", "", "User ID to look up")
	cmd.Flags().StringVar(&email, "email", "", "Email address to look up")

	return cmd
}

func newCreateUserCommand() *cobra.Command {
	req := &auth.CreateRequest{}

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Provision a new user account",
		RunE: runWithAuthClient(func(ctx context.Context, client *auth.Client) error {
			user, err := client.CreateUser(ctx, req)
			if err != nil {
				return err
			}
			return printUserRecord(user)
		}),
	}

	cmd.Flags().StringVar(&req.UID, "uid", "", "User ID to assign. Generated by the API when empty")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password")
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "Display name")
	cmd.Flags().StringVar(&req.PhotoURL, "photo-url", "", "Photo URL")
	cmd.Flags().BoolVar(&req.EmailVerified, "email-verified", false, "Mark the email address as verified")
	cmd.Flags().BoolVar(&req.Disabled, "disabled", false, "Create the account disabled")

	return cmd
}

func newUpdateUserCommand() *cobra.Command {
	var uid string
	var email, password, displayName, photoURL string
	var emailVerified, disabled bool

	cmd := &cobra.Command{
		Use:   "update-user",
		Short: "Update an existing user account",
		Long:  "Update an existing user account. Only the flags changed on the command line are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &auth.UpdateRequest{UID: uid}
			if cmd.Flags().Changed("email") {
				req.Email = &email
			}
			if cmd.Flags().Changed("password") {
				req.Password = &password
			}
			if cmd.Flags().Changed("display-name") {
				req.DisplayName = &displayName
			}
			if cmd.Flags().Changed("photo-url") {
				req.PhotoURL = &photoURL
			}
			if cmd.Flags().Changed("email-verified") {
				req.EmailVerified = &emailVerified
			}
			if cmd.Flags().Changed("disabled") {
				req.Disabled = &disabled
			}
			return runWithAuthClient(func(ctx context.Context, client *auth.Client) error {
				user, err := client.UpdateUser(ctx, req)
				if err != nil {
					return err
				}
				return printUserRecord(user)
			})(cmd, args)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "User ID to update")
	cmd.Flags().StringVar(&email, "email", "", "New email address")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	cmd.Flags().StringVar(&displayName, "display-name", "", "New display name")
	cmd.Flags().StringVar(&photoURL, "photo-url", "", "New photo URL")
	cmd.Flags().BoolVar(&emailVerified, "email-verified", false, "Mark the email address as verified")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Disable the account")

	return cmd
}

func newDeleteUserCommand() *cobra.Command {
	var uid string

	cmd := &cobra.Command{
		Use:   "delete-user",
		Short: "Delete a user account",
		RunE: runWithAuthClient(func(ctx context.Context, client *auth.Client) error {
			return client.DeleteUser(ctx, uid)
		}),
	}

	cmd.Flags().StringVar(&uid, "uid", "", "User ID to delete")

	return cmd
}
