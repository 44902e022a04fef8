package main

import (
	"fmt"
	"time"

	"github.com/akolanti/docmind/internal/auth"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var userID string
	var ttl time.Duration

	command := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := auth.NewJWTManager(loadConfig().JWTSecret)
			if err != nil {
				return err
			}
			token, err := m.Mint(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	command.Flags().StringVarP(&userID, "user", "u", "", "user id placed in the token subject")
	command.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = command.MarkFlagRequired("user")
	return command
}
