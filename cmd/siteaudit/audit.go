package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/whoisalfaz/site-audit/internal/model"
	"github.com/whoisalfaz/site-audit/internal/platform/config"
)

func newAuditCommand(configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "audit <url>",
		Short: "Run a single audit and print the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("unknown output format %q (want json or yaml)", output)
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			results, err := newEngine(cfg).Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), results, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func writeResults(w io.Writer, results *model.AuditResults, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
}
