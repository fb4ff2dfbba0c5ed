package cmd

import (
	"fmt"
	"os"

	"github.com/babelcloud/mediaprobe/internal/util"
	"github.com/babelcloud/mediaprobe/internal/version"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	verbose bool

	rootCmd = NewRootCommand()
)

// NewRootCommand builds the mediaprobe command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mediaprobe",
		Short: "Inspect the tracks of media files",
		Long: `mediaprobe opens media resources, identifies their container format and
reports the tracks they contain along with any embedded metadata.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			util.InitLogger(verbose)
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flag("version").Changed {
				info := version.Info()
				fmt.Fprintf(cmd.OutOrStdout(), "mediaprobe version %s, build %s\n", info["Version"], info["GitCommit"])
				return nil
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVar(&verbose, "verbose", util.IsVerbose(), "Enable debug logging")
	cmd.Flags().BoolP("version", "v", false, "Print version information and exit")

	cmd.AddCommand(NewProbeCommand())
	cmd.AddCommand(NewFormatsCommand())
	cmd.AddCommand(NewConfigCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func Execute() error {
	return rootCmd.Execute()
}
