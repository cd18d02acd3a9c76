package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildDate=...".
var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(out io.Writer) error {
	fmt.Fprintf(out, "siteaudit %s\n", version)
	if commit != "" {
		fmt.Fprintf(out, "Commit: %s\n", commit)
	}
	if buildDate != "" {
		fmt.Fprintf(out, "Built: %s\n", buildDate)
	}
	_, err := fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
	return err
}
