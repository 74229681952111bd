package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gravitrone/corelayout/internal/config"
)

// OnboardingCmd returns the `corelayout onboarding` command group.
func OnboardingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboarding",
		Short: "Show or change the onboarding flag",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault()
			if err != nil {
				return err
			}
			if cfg.OnboardingComplete {
				fmt.Fprintln(cmd.OutOrStdout(), "onboarding: complete")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "onboarding: pending")
			}
			return nil
		},
	}
	cmd.AddCommand(onboardingSetCmd("reset", "Show onboarding again on next start", false))
	cmd.AddCommand(onboardingSetCmd("complete", "Skip onboarding on next start", true))
	return cmd
}

func onboardingSetCmd(use, short string, done bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault()
			if err != nil {
				return err
			}
			cfg.OnboardingComplete = done
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			state := "pending"
			if done {
				state = "complete"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "onboarding marked %s\n", state)
			return nil
		},
	}
}
