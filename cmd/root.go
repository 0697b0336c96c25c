// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"
	"os"
	"strings"

	identityadmin "github.com/matheuscscp/identity-admin"
	"github.com/matheuscscp/identity-admin/credentials"
	"github.com/matheuscscp/identity-admin/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var credentialsFile string

func main() {
	var stringLogLevel string
	logLevels := make([]string, len(logrus.AllLevels))
	for i, level := range logrus.AllLevels {
		logLevels[i] = level.String()
	}
	acceptedLogLevels := strings.Join(logLevels, ", ")

	rootCmd := &cobra.Command{
		Use:   os.Args[0],
		Short: os.Args[0] + " is an admin CLI for the identity toolkit APIs",
		Long: os.Args[0] + " mints custom authentication tokens, verifies ID tokens " +
			"and manages user accounts using the server-side SDK",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logLevel, err := logrus.ParseLevel(stringLogLevel)
			if err != nil {
				return fmt.Errorf("not a valid log level. the accepted values are: %s", acceptedLogLevels)
			}
			l := logging.NewLogger(logLevel)
			cmd.SetContext(logging.IntoContext(cmd.Context(), l))
			return nil
		},
	}

	rootCmd.AddCommand(newCreateCustomTokenCommand())
	rootCmd.AddCommand(newVerifyIDTokenCommand())
	rootCmd.AddCommand(newGetUserCommand())
	rootCmd.AddCommand(newCreateUserCommand())
	rootCmd.AddCommand(newUpdateUserCommand())
	rootCmd.AddCommand(newDeleteUserCommand())

	rootCmd.PersistentFlags().StringVar(&credentialsFile, "credentials-file", "",
		"Path to the credential JSON file. Defaults to GOOGLE_APPLICATION_CREDENTIALS, "+
			"then to application-default credentials")
	rootCmd.PersistentFlags().StringVar(&stringLogLevel, "log-level", logrus.InfoLevel.String(),
		"Log level. Accepted values: "+acceptedLogLevels)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp initializes an SDK app from the usual CLI flags: --credentials-file
// or the application-default resolution chain.
func newApp() (*identityadmin.App, error) {
	credential, err := credentials.FromFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("error loading credentials: %w", err)
	}
	app, err := identityadmin.Initialize(identityadmin.Options{Credential: credential})
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %w", err)
	}
	return app, nil
}
