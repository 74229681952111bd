package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gravitrone/corelayout/internal/config"
)

// RunInteractiveLogin prompts for a username and an access token and
// persists them.
func RunInteractiveLogin(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprint(out, "username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}

	fmt.Fprint(out, "token: ")
	token, _ := reader.ReadString('\n')
	return saveLogin(out, username, token)
}

func saveLogin(out io.Writer, username, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token is required")
	}

	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	cfg.APIKey = token
	cfg.Username = strings.TrimSpace(username)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	who := cfg.Username
	if who == "" {
		who = "(no username)"
	}
	fmt.Fprintf(out, "logged in as %s\n", who)
	fmt.Fprintf(out, "config saved to %s\n", config.Path())
	return nil
}

// LoginCmd returns the `corelayout login` command.
func LoginCmd() *cobra.Command {
	var username, token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token for the shell",
		Long:  "Store an access token for the shell. Without --token the command prompts for a username and a token.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("token") {
				return saveLogin(cmd.OutOrStdout(), username, token)
			}
			return RunInteractiveLogin(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username to store with the token")
	cmd.Flags().StringVar(&token, "token", "", "access token (skips the prompt)")
	return cmd
}

// LogoutCmd returns the `corelayout logout` command.
func LogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault()
			if err != nil {
				return err
			}
			if cfg.APIKey == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			cfg.APIKey = ""
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}
