package cmd

import (
	"fmt"
	"os"

	"transcode-worker/infrastructure/googleauth"

	"github.com/spf13/cobra"
)

var (
	authCredentials string
	authToken       string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Google access with an OAuth client",
	Long: `Run the browser-based OAuth flow for an OAuth client secret file and save
the token used by the Pub/Sub queue. Service account keys and application
default credentials do not need this step.

Example:
  transcode-worker auth --credentials client_secret.json --token token.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		creds := authCredentials
		if creds == "" {
			creds = cfg.Queue.PubSub.CredentialsFile
		}
		token := authToken
		if token == "" {
			token = cfg.Queue.PubSub.TokenFile
		}
		if creds == "" || token == "" {
			return fmt.Errorf("--credentials and --token are required (or queue.pubsub.credentials_file and token_file)")
		}

		scopes := []string{googleauth.ScopePubSub, googleauth.ScopeStorage}
		if err := googleauth.Authorize(cmd.Context(), creds, token, scopes, nil); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Authentication successful! Token saved to %s\n", token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.Flags().StringVar(&authCredentials, "credentials", "", "Path to the OAuth client secret JSON")
	authCmd.Flags().StringVar(&authToken, "token", "", "Where to save the token")
}
