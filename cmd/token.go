// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matheuscscp/identity-admin/internal/logging"

	"github.com/spf13/cobra"
)

func newCreateCustomTokenCommand() *cobra.Command {
	var uid string
	var claimsJSON string

	cmd := &cobra.Command{
		Use:   "create-custom-token",
		Short: "Mint a signed custom token for a user ID",
		Long: "Mint a signed custom token for a user ID, optionally embedding developer claims. " +
			"The token can be exchanged by a client application through the signInWithCustomToken API",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			l := logging.FromContext(ctx)
			defer func() {
				if runtimeErr := err; err != nil {
					err = nil
					l.WithError(runtimeErr).Fatal("runtime error")
				}
			}()

			var claims map[string]any
			if claimsJSON != "" {
				if err := json.Unmarshal([]byte(claimsJSON), &claims); err != nil {
					return fmt.Errorf("error parsing --claims as a JSON object: %w", err)
				}
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Delete()

			client, err := app.Auth()
			if err != nil {
				return err
			}
			token, err := client.CustomTokenWithClaims(ctx, uid, claims)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "User ID to assert in the token")
	cmd.Flags().StringVar(&claimsJSON, "claims", "", "Developer claims to embed, as a JSON object")

	return cmd
}

func newVerifyIDTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-id-token <token>",
		Short: "Verify an ID token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			l := logging.FromContext(ctx)
			defer func() {
				if runtimeErr := err; err != nil {
					err = nil
					l.WithError(runtimeErr).Fatal("runtime error")
				}
			}()

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Delete()

			client, err := app.Auth()
			if err != nil {
				return err
			}
			token, err := client.VerifyIDToken(ctx, args[0])
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(token)
		},
	}

	return cmd
}
