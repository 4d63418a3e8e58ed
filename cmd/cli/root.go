// Package cli implements the envseal-cli command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/envseal/envseal/sdk/go/envseal"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "envseal-cli",
	Short: "Issue and verify envelope tokens against an envseal service.",
	Long: `envseal-cli is a command-line client for the envseal token service.
It issues and verifies JWTs whose signing keys are wrapped by the
service's key management backend.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the envseal service")
	rootCmd.AddCommand(newTokenCmd())
}

func apiClient() *envseal.Client {
	return envseal.NewClient(serverURL)
}
