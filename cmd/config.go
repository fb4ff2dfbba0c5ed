package cmd

import (
	"fmt"
	"io"

	"github.com/babelcloud/mediaprobe/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
		Long:  "Print the settings in effect after defaults, config.yaml and MEDIAPROBE_* environment variables are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfig(cmd.OutOrStdout(), config.Settings())
		},
	}
}

func printConfig(w io.Writer, settings map[string]interface{}) error {
	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}
	_, err = w.Write(data)
	return err
}
