package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/config"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/identity"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

// newVerifyCmd resolves a token through the configured identity provider and
// prints the profile that would be mirrored. It never opens the database, so
// DATABASE_URL is not needed.
func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <access_token>",
		Short: "Resolve an access token to the profile it would sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadIdentity()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			v, closeCache, err := identity.FromConfig(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer closeCache() //nolint:errcheck

			id, err := v.Verify(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			profile, err := user.NormalizeProfile(id)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(profileView(profile))
		},
	}
}

type profileOutput struct {
	ID          string  `json:"id"`
	Email       *string `json:"email"`
	DisplayName *string `json:"name"`
	AvatarURL   *string `json:"avatar_url"`
	Provider    *string `json:"provider"`
}

func profileView(p user.Profile) profileOutput {
	return profileOutput(p)
}
