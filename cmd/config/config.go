package config

import (
	"github.com/spf13/cobra"

	"github.com/nutrilog/nutrilog/internal/conf"
)

// Command creates the config command which prints the effective settings.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after merging config.yaml, the environment and flags. The database password is masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := conf.Dump(settings)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
