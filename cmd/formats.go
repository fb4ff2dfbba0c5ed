package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/babelcloud/mediaprobe/internal/util"
	"github.com/babelcloud/mediaprobe/pkg/extractor"
	"github.com/babelcloud/mediaprobe/pkg/extractor/defaults"
	"github.com/spf13/cobra"
)

func NewFormatsCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List supported container formats",
		Long:  "List the registered extractors in the order they are tried when sniffing a resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printFormats(cmd.OutOrStdout(), defaults.Entries(), outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (json or text)")
	cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "text"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func printFormats(w io.Writer, entries []extractor.Entry, format string) error {
	data := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		data[i] = map[string]interface{}{
			"priority":  i + 1,
			"name":      e.Name,
			"container": e.ContainerMIMEType,
		}
	}

	if format == "json" {
		out, err := json.MarshalIndent(map[string]interface{}{"data": data}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal formats: %v", err)
		}
		fmt.Fprintln(w, string(out))
		return nil
	}

	util.RenderTable(w, []util.TableColumn{
		{Header: "PRIORITY", Key: "priority"},
		{Header: "NAME", Key: "name"},
		{Header: "CONTAINER", Key: "container"},
	}, data)
	return nil
}
