package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/babelcloud/mediaprobe/config"
	"github.com/babelcloud/mediaprobe/internal/util"
	"github.com/babelcloud/mediaprobe/pkg/future"
	"github.com/babelcloud/mediaprobe/pkg/media"
	"github.com/babelcloud/mediaprobe/pkg/resolver"
	"github.com/babelcloud/mediaprobe/pkg/retriever"
	"github.com/fatih/color"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ProbeOptions struct {
	OutputFormat string
	Timeout      time.Duration
	AssetRoot    string
	ProbeBytes   int
}

type probeReport struct {
	Reference string        `json:"reference" toml:"reference"`
	Error     string        `json:"error,omitempty" toml:"error,omitempty"`
	Kind      string        `json:"kind,omitempty" toml:"kind,omitempty"`
	Groups    []groupReport `json:"groups,omitempty" toml:"groups,omitempty"`
}

type groupReport struct {
	ID     string        `json:"id" toml:"id"`
	Type   string        `json:"type" toml:"type"`
	Tracks []trackReport `json:"tracks" toml:"tracks"`
}

type trackReport struct {
	Index          int      `json:"index" toml:"index"`
	ID             string   `json:"id" toml:"id"`
	SampleMIMEType string   `json:"sample_mime_type" toml:"sample_mime_type"`
	Container      string   `json:"container_mime_type,omitempty" toml:"container_mime_type,omitempty"`
	Codecs         string   `json:"codecs,omitempty" toml:"codecs,omitempty"`
	Language       string   `json:"language,omitempty" toml:"language,omitempty"`
	Width          int      `json:"width,omitempty" toml:"width,omitempty"`
	Height         int      `json:"height,omitempty" toml:"height,omitempty"`
	SampleRate     int      `json:"sample_rate,omitempty" toml:"sample_rate,omitempty"`
	Channels       int      `json:"channels,omitempty" toml:"channels,omitempty"`
	Bitrate        int      `json:"bitrate,omitempty" toml:"bitrate,omitempty"`
	Metadata       []string `json:"metadata,omitempty" toml:"metadata,omitempty"`
}

func NewProbeCommand() *cobra.Command {
	opts := &ProbeOptions{}

	cmd := &cobra.Command{
		Use:   "probe <reference>...",
		Short: "Report the tracks of one or more media resources",
		Long: `Retrieve track information for each reference concurrently. A reference is a
file path, a file:// URI or an asset:/// URI resolved below the asset root.`,
		Example: `  mediaprobe probe clip.mp4
  mediaprobe probe --output json song.mp3 asset:///photos/motion.heic
  mediaprobe probe --timeout 5s file:///srv/media/movie.mkv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyProbeFlags(cmd.Flags(), opts)
			return runProbe(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.OutputFormat, "output", "o", "text", "Output format (text, json or toml)")
	flags.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Maximum time to wait for all retrievals")
	flags.StringVar(&opts.AssetRoot, "asset-root", "", "Directory asset:/// references resolve against")
	flags.IntVar(&opts.ProbeBytes, "probe-bytes", 64*1024, "Bytes offered to format sniffing")

	cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "toml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// applyProbeFlags records explicitly set flags in the configuration and
// reads every setting back from it.
func applyProbeFlags(flags *pflag.FlagSet, opts *ProbeOptions) {
	if flags.Changed("timeout") {
		config.Set("retrieve.timeout", opts.Timeout)
	}
	if flags.Changed("asset-root") {
		config.Set("asset.root", opts.AssetRoot)
	}
	if flags.Changed("probe-bytes") {
		config.Set("retrieve.probe_bytes", opts.ProbeBytes)
	}
	opts.Timeout = config.GetTimeout()
	opts.AssetRoot = config.GetAssetRoot()
	opts.ProbeBytes = config.GetProbeBytes()
}

func runProbe(ctx context.Context, w io.Writer, opts *ProbeOptions, refs []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	r := retriever.New(
		retriever.WithResolver(resolver.Default(opts.AssetRoot)),
		retriever.WithProbeBytes(opts.ProbeBytes),
		retriever.WithRetryDelay(config.GetRetryDelay()),
		retriever.WithLogger(util.GetLogger()),
	)

	futures := make([]*future.Future[media.TrackGroupArray], len(refs))
	for i, ref := range refs {
		futures[i] = r.RetrieveURI(ctx, ref)
	}

	reports := make([]probeReport, len(refs))
	failed := 0
	for i, f := range futures {
		groups, err := f.Get(ctx)
		reports[i] = newProbeReport(refs[i], groups, err)
		if err != nil {
			failed++
		}
	}

	if err := printReports(w, reports, opts.OutputFormat); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d retrievals failed", failed, len(refs))
	}
	return nil
}

func newProbeReport(ref string, groups media.TrackGroupArray, err error) probeReport {
	report := probeReport{Reference: ref}
	if err != nil {
		report.Error = err.Error()
		var rerr *retriever.Error
		switch {
		case errors.As(err, &rerr):
			report.Kind = rerr.Kind.String()
		case errors.Is(err, context.DeadlineExceeded):
			report.Kind = "timeout"
		}
		return report
	}

	for _, g := range groups.Groups() {
		gr := groupReport{ID: g.ID(), Type: g.Type().String()}
		for i := 0; i < g.Len(); i++ {
			gr.Tracks = append(gr.Tracks, newTrackReport(g.Get(i)))
		}
		report.Groups = append(report.Groups, gr)
	}
	return report
}

func newTrackReport(t media.Track) trackReport {
	f := t.Format
	tr := trackReport{
		Index:          t.Index,
		ID:             f.ID,
		SampleMIMEType: f.SampleMIMEType,
		Container:      f.ContainerMIMEType,
		Codecs:         f.Codecs,
		Language:       f.Language,
		Width:          known(f.Width),
		Height:         known(f.Height),
		SampleRate:     known(f.SampleRate),
		Channels:       known(f.ChannelCount),
		Bitrate:        known(f.Bitrate),
	}
	for _, e := range f.Metadata.Entries() {
		tr.Metadata = append(tr.Metadata, fmt.Sprint(e))
	}
	return tr
}

func known(v int) int {
	if v == media.NoValue {
		return 0
	}
	return v
}

func printReports(w io.Writer, reports []probeReport, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(map[string]interface{}{"data": reports}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal reports: %v", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	case "toml":
		data, err := toml.Marshal(struct {
			Data []probeReport `toml:"data"`
		}{reports})
		if err != nil {
			return fmt.Errorf("failed to marshal reports: %v", err)
		}
		_, err = w.Write(data)
		return err
	case "text", "":
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}

	for i, report := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, color.New(color.Bold).Sprint(report.Reference))
		if report.Error != "" {
			fmt.Fprintf(w, "%s %s\n", color.RedString("error:"), report.Error)
			continue
		}
		if len(report.Groups) == 0 {
			fmt.Fprintln(w, "No tracks found")
			continue
		}

		var rows []map[string]interface{}
		var metadata []string
		for _, g := range report.Groups {
			for _, t := range g.Tracks {
				rows = append(rows, map[string]interface{}{
					"group":   g.ID,
					"type":    color.CyanString(g.Type),
					"mime":    t.SampleMIMEType,
					"codecs":  t.Codecs,
					"details": trackDetails(t),
				})
				for _, m := range t.Metadata {
					metadata = append(metadata, fmt.Sprintf("%s: %s", g.ID, m))
				}
			}
		}
		util.RenderTable(w, []util.TableColumn{
			{Header: "GROUP", Key: "group"},
			{Header: "TYPE", Key: "type"},
			{Header: "MIME", Key: "mime"},
			{Header: "CODECS", Key: "codecs"},
			{Header: "DETAILS", Key: "details"},
		}, rows)
		for _, m := range metadata {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	return nil
}

func trackDetails(t trackReport) string {
	var s string
	add := func(part string) {
		if s != "" {
			s += ", "
		}
		s += part
	}
	if t.Width > 0 && t.Height > 0 {
		add(fmt.Sprintf("%dx%d", t.Width, t.Height))
	}
	if t.SampleRate > 0 {
		add(strconv.Itoa(t.SampleRate) + " Hz")
	}
	if t.Channels > 0 {
		add(strconv.Itoa(t.Channels) + " ch")
	}
	if t.Bitrate > 0 {
		add(strconv.Itoa(t.Bitrate/1000) + " kb/s")
	}
	if t.Language != "" {
		add(t.Language)
	}
	return s
}
