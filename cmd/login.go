package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-focus-tracker/internal/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the sync server with the OAuth2 device code flow",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	ac := authConfig()
	if ac.StaticToken != "" {
		fmt.Fprintln(cmd.OutOrStdout(), "sync.token is set; no login needed.")
		return nil
	}
	if _, err := auth.Login(cmd.Context(), ac, cmd.OutOrStdout()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in. Token saved to %s\n", ac.TokenFile)
	return nil
}
