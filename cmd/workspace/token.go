package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/phoneme/workspace/internal/auth"
)

var tokenEmail string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a session token for a user",
	Long: `Mint a session token signed with JWT_SECRET, for calling the API from
scripts or curl during development:

  curl -b "token=$(workspace token --email ann@example.com)" ...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if tokenEmail == "" {
			return fmt.Errorf("--email is required")
		}

		s, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer s.Close()

		u, err := s.GetUserByEmail(cmd.Context(), tokenEmail)
		if err != nil {
			return err
		}
		if u == nil || !u.Active {
			return fmt.Errorf("no active user with email %s", tokenEmail)
		}

		token, exp, err := auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL).Issue(u)
		if err != nil {
			return err
		}
		logger.Info().Str("user_id", u.ID).Time("expires", exp.Truncate(time.Second)).Msg("token issued")
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email of the user to issue the token for")
}
