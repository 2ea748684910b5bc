package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

// NewOpsCommand creates the ops command
func NewOpsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "Show the operation support matrix",
		Long:  "List every operation and whether Bitbucket Cloud and Data Center support it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			type opSupport struct {
				Operation  string `json:"operation" yaml:"operation"`
				Cloud      bool   `json:"cloud" yaml:"cloud"`
				DataCenter bool   `json:"datacenter" yaml:"datacenter"`
			}

			rows := make([]opSupport, 0, len(bitbucket.Operations()))
			for _, op := range bitbucket.Operations() {
				rows = append(rows, opSupport{
					Operation:  string(op),
					Cloud:      bitbucket.Supports(bitbucket.VariantCloud, op),
					DataCenter: bitbucket.Supports(bitbucket.VariantDataCenter, op),
				})
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(rows)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)
				return encoder.Encode(rows)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Operation", "Cloud", "Data Center")
				for _, row := range rows {
					_ = table.Append(row.Operation, mark(row.Cloud), mark(row.DataCenter))
				}
				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

func mark(supported bool) string {
	if supported {
		return "yes"
	}

	return "no"
}
