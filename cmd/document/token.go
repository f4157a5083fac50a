package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogotex/gogotex/backend/docservice/internal/identity"
)

var (
	tokenName  string
	tokenEmail string
	tokenTTL   time.Duration
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [subject]",
		Short: "Mint a development access token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			ttl := tokenTTL
			if ttl <= 0 {
				ttl = cfg.JWT.AccessTokenTTL
			}
			tok, err := identity.MintAccessToken([]byte(cfg.JWT.Secret), identity.Subject{
				Sub:   args[0],
				Name:  tokenName,
				Email: tokenEmail,
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}

func init() {
	cmd := newTokenCmd()
	cmd.Flags().StringVar(&tokenName, "name", "", "name claim")
	cmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default from JWT_ACCESS_TOKEN_TTL)")
	rootCmd.AddCommand(cmd)
}
