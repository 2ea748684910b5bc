package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigViewCommand())

	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		Long:  "Show the merged configuration from flags, environment, and the config file. The token is masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := effectiveConfig()
			if err != nil {
				return err
			}

			view := configView{
				BaseURL:  config.BaseURL,
				Variant:  string(config.Variant),
				RetryMax: config.RetryMax,
				Timeout:  config.RequestTimeout,
				Debug:    config.Debug,
			}
			if config.AuthToken != "" {
				view.Token = Masked
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(view)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)
				return encoder.Encode(view)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Setting", "Value")
				_ = table.Append("Base URL", view.BaseURL)
				_ = table.Append("Variant", view.Variant)
				_ = table.Append("Token", view.Token)
				_ = table.Append("Retry Max", fmt.Sprintf("%d", view.RetryMax))
				_ = table.Append("Timeout", view.Timeout.String())
				_ = table.Append("Debug", fmt.Sprintf("%t", view.Debug))
				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
