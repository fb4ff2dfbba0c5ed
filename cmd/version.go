package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/babelcloud/mediaprobe/internal/version"
	"github.com/spf13/cobra"
)

func NewVersionCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd.OutOrStdout(), outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (json or text)")
	return cmd
}

func printVersion(w io.Writer, format string) error {
	info := version.Info()
	if format == "json" {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal version info: %v", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintf(w, "Version:    %s\n", info["Version"])
	fmt.Fprintf(w, "Go version: %s\n", info["GoVersion"])
	fmt.Fprintf(w, "Git commit: %s\n", info["GitCommit"])
	fmt.Fprintf(w, "Built:      %s\n", info["FormattedTime"])
	fmt.Fprintf(w, "OS/Arch:    %s/%s\n", info["OS"], info["Arch"])
	return nil
}
