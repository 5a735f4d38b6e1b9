package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/proctor-go/internal/conf"
)

// Command prints the effective configuration as YAML
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after merging the config file, environment variables and flags.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				if err := conf.SaveYAMLConfig(output, settings); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", output)
				return nil
			}

			data, err := conf.MarshalYAML(redacted(settings))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the configuration to this file instead of stdout")

	return cmd
}

// redacted returns a copy of settings with credentials masked for display
func redacted(settings *conf.Settings) *conf.Settings {
	masked := *settings
	if masked.MQTT.Password != "" {
		masked.MQTT.Password = "[REDACTED]"
	}
	if masked.Sentry.DSN != "" {
		masked.Sentry.DSN = "[REDACTED]"
	}
	return &masked
}
