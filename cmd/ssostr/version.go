package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version can be overridden at build time via -ldflags.
var Version = "0.1.0-dev"

var (
	toolColor    = color.New(color.FgCyan, color.Bold)
	versionColor = color.New(color.FgGreen)
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the ssostr version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", toolColor.Sprint("ssostr"), versionColor.Sprint(Version))
			return err
		},
	}
}
