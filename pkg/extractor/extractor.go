// Package extractor defines the boundary between the retrieval core and the
// container-specific parsers, and selects a parser for an input by sniffing.
package extractor

import (
	"errors"
	"time"

	"github.com/babelcloud/mediaprobe/pkg/media"
)

var (
	// ErrMalformed marks input that a recognised format cannot parse.
	ErrMalformed = errors.New("malformed container")
	// ErrNotReady is returned when the input has no data available yet.
	// The same read can be attempted again later.
	ErrNotReady = errors.New("input not ready")
	// ErrUnrecognized is returned by Select when no extractor claims the input.
	ErrUnrecognized = errors.New("no extractor recognised the input")
)

// Result tells the driver whether the extractor can make further progress.
type Result int

const (
	Continue Result = iota
	EndOfInput
)

func (r Result) String() string {
	if r == EndOfInput {
		return "end_of_input"
	}
	return "continue"
}

// SeekMap describes what an extractor learned about seeking and duration.
type SeekMap struct {
	Duration time.Duration
	Seekable bool
}

// Output receives everything an extractor discovers.
type Output interface {
	// DeclareTracks announces the number of tracks once known.
	DeclareTracks(count int)
	// Format registers the format of the track at index.
	Format(index int, format media.Format)
	// EndTracks signals that no further tracks or formats will follow.
	EndTracks()
	SampleData(index int, data []byte)
	SeekMap(m SeekMap)
}

// Extractor parses one container format. An instance is used from a single
// goroutine at a time and only for one input.
type Extractor interface {
	// Sniff reports whether the probe prefix looks like this format.
	Sniff(probe []byte) bool
	// ReadNext performs one bounded unit of parsing. A call that fails with
	// ErrNotReady must not have written anything to out.
	ReadNext(in *Input, out Output) (Result, error)
	Release() error
}

// EndSniffer is implemented by extractors that decide differently when the
// probe holds the whole input rather than a prefix of it.
type EndSniffer interface {
	SniffEnd(probe []byte, atEnd bool) bool
}

// Sniff asks ex about probe, telling an EndSniffer whether probe reaches the
// end of the input.
func Sniff(ex Extractor, probe []byte, atEnd bool) bool {
	if es, ok := ex.(EndSniffer); ok {
		return es.SniffEnd(probe, atEnd)
	}
	return ex.Sniff(probe)
}

// Factory creates a fresh extractor instance.
type Factory func() Extractor
