package mediatest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/babelcloud/mediaprobe/internal/driver"
	"github.com/babelcloud/mediaprobe/internal/sink"
	"github.com/babelcloud/mediaprobe/pkg/extractor"
	"github.com/babelcloud/mediaprobe/pkg/media"
)

const maxSteps = 1000

// Extract sniffs data with ex and drives it until the track layout is
// complete. Retries are stepped through immediately.
func Extract(t testing.TB, ex extractor.Extractor, data []byte) (media.TrackGroupArray, *sink.Sink, error) {
	probe := data[:min(len(data), extractor.DefaultProbeBytes)]
	atEnd := len(probe) == len(data)
	require.True(t, extractor.Sniff(ex, probe, atEnd), "extractor does not recognise input")

	in := extractor.NewInput(bytes.NewReader(data), int64(len(data)))
	return Drive(t, ex, in)
}

// Drive runs ex over in without sniffing.
func Drive(t testing.TB, ex extractor.Extractor, in *extractor.Input) (media.TrackGroupArray, *sink.Sink, error) {
	s := sink.New(nil)
	loop := driver.New(ex, in, s, nil)
	for i := 0; i < maxSteps; i++ {
		status, err := loop.Step()
		if err != nil {
			return media.TrackGroupArray{}, s, err
		}
		if status == driver.StatusDone {
			groups, err := s.TrackGroups()
			require.NoError(t, err)
			return groups, s, nil
		}
	}
	require.FailNow(t, "extractor did not finish", "%d steps", maxSteps)
	return media.TrackGroupArray{}, s, nil
}
