package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/envseal/envseal/sdk/go/envseal"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Token lifecycle operations.",
	}
	cmd.AddCommand(newTokenIssueCmd(), newTokenVerifyCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		appID        string
		subject      string
		audience     []string
		ttlSeconds   int64
		claims       []string
		signingKeyID string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new envelope token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			customClaims, err := parseClaims(claims)
			if err != nil {
				return err
			}

			resp, err := apiClient().IssueToken(cmd.Context(), envseal.IssueRequest{
				AppID:        appID,
				Subject:      subject,
				Audience:     audience,
				TTLSeconds:   ttlSeconds,
				CustomClaims: customClaims,
				SigningKeyID: signingKeyID,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&appID, "app-id", "", "client application identifier (required)")
	cmd.Flags().StringVar(&subject, "subject", "", "token subject")
	cmd.Flags().StringSliceVar(&audience, "audience", nil, "intended audience, repeatable (required)")
	cmd.Flags().Int64Var(&ttlSeconds, "ttl", 0, "token lifetime in seconds (0 uses the server default)")
	cmd.Flags().StringArrayVar(&claims, "claim", nil, "custom claim as key=value, repeatable")
	cmd.Flags().StringVar(&signingKeyID, "signing-key-id", "", "signing key identifier")
	cmd.MarkFlagRequired("app-id")
	cmd.MarkFlagRequired("audience")

	return cmd
}

func newTokenVerifyCmd() *cobra.Command {
	var signingKeyID string

	cmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a serialized envelope token.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := apiClient().VerifyToken(cmd.Context(), args[0], signingKeyID)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&signingKeyID, "signing-key-id", "", "signing key identifier")
	return cmd
}

func parseClaims(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	claims := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid claim %q, expected key=value", pair)
		}
		claims[key] = value
	}
	return claims, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
