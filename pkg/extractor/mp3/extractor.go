// Package mp3 extracts the format of MPEG-1/2 audio layer II and III streams,
// including the ID3v2 tag that usually precedes them.
package mp3

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/babelcloud/mediaprobe/internal/util"
	"github.com/babelcloud/mediaprobe/pkg/extractor"
	"github.com/babelcloud/mediaprobe/pkg/media"
)

const (
	Name = "mp3"

	// maxSyncBytes bounds the search for the first frame after the tag.
	maxSyncBytes = 128 * 1024
)

type state int

const (
	stateTag state = iota
	stateSync
	stateDone
)

type Extractor struct {
	logger   *slog.Logger
	state    state
	metadata []media.Entry
}

var (
	_ extractor.Extractor  = (*Extractor)(nil)
	_ extractor.EndSniffer = (*Extractor)(nil)
)

func New() extractor.Extractor {
	return &Extractor{logger: slog.With("component", "mp3_extractor")}
}

// Sniff treats probe as a prefix of a longer input.
func (e *Extractor) Sniff(probe []byte) bool {
	return e.SniffEnd(probe, false)
}

func (e *Extractor) SniffEnd(probe []byte, atEnd bool) bool {
	if n := extractor.ID3v2TagSize(probe); n > 0 {
		if n >= len(probe) {
			return !atEnd
		}
		probe = probe[n:]
	}
	_, _, ok := findFrame(probe, atEnd)
	return ok
}

func (e *Extractor) Release() error {
	e.metadata = nil
	return nil
}

func (e *Extractor) ReadNext(in *extractor.Input, out extractor.Output) (extractor.Result, error) {
	switch e.state {
	case stateTag:
		return extractor.Continue, e.readTag(in)
	case stateSync:
		return e.readFrame(in, out)
	default:
		return extractor.EndOfInput, nil
	}
}

func (e *Extractor) readTag(in *extractor.Input) error {
	head, err := in.Peek(extractor.ID3v2HeaderSize)
	if err != nil {
		return err
	}
	n := extractor.ID3v2TagSize(head)
	if n == 0 {
		e.state = stateSync
		return nil
	}
	if length := in.Length(); length >= 0 && in.Position()+int64(n) > length {
		return errors.Wrapf(extractor.ErrMalformed, "ID3 tag of %d bytes exceeds input", n)
	}
	// The size field is untrusted when the input length is unknown, so the
	// buffer grows with the bytes actually read.
	b, err := io.ReadAll(io.LimitReader(in, int64(n)))
	if err != nil {
		return errors.Wrap(err, "read ID3 tag")
	}
	if len(b) < n {
		return errors.Wrapf(io.ErrUnexpectedEOF, "ID3 tag truncated at %d of %d bytes", len(b), n)
	}
	entries, err := parseID3(b)
	if err != nil {
		// A broken tag does not make the audio unreadable.
		e.logger.Warn("Ignoring unreadable ID3 tag", "size", n, util.ErrAttr(err))
	}
	e.metadata = entries
	e.state = stateSync
	return nil
}

func (e *Extractor) readFrame(in *extractor.Input, out extractor.Output) (extractor.Result, error) {
	buf, err := in.Peek(maxSyncBytes)
	if err != nil {
		return extractor.Continue, err
	}
	atEnd := len(buf) < maxSyncBytes
	if length := in.Length(); length >= 0 && in.Position()+int64(len(buf)) >= length {
		atEnd = true
	}
	off, h, ok := findFrame(buf, atEnd)
	if !ok {
		if len(buf) == 0 {
			return extractor.EndOfInput, nil
		}
		return extractor.Continue, errors.Wrapf(extractor.ErrMalformed, "no MPEG audio frame within %d bytes of %d", len(buf), in.Position())
	}
	start := in.Position() + int64(off)
	size := frameLength(h)
	if off+size > len(buf) {
		return extractor.Continue, errors.Wrapf(extractor.ErrMalformed, "truncated frame at %d", start)
	}
	if err := in.Skip(int64(off + size)); err != nil {
		return extractor.Continue, errors.Wrap(err, "skip first frame")
	}

	f := media.NewFormat("0", sampleMIME(h))
	f.ContainerMIMEType = media.AudioMPEG
	f.SampleRate = h.SampleRate
	f.ChannelCount = channelCount(h)
	f.Bitrate = h.Bitrate
	f.Metadata = media.NewMetadata(e.metadata...)

	out.DeclareTracks(1)
	out.Format(0, f)
	out.EndTracks()
	out.SampleData(0, buf[off:off+size])
	out.SeekMap(e.seekMap(in.Length(), start, h.Bitrate))

	e.logger.Debug("Found first frame", "position", start, "layer", h.Layer, "bitrate", h.Bitrate)
	e.state = stateDone
	return extractor.Continue, nil
}

// seekMap assumes a constant bitrate from the first frame.
func (e *Extractor) seekMap(length, dataStart int64, bitrate int) extractor.SeekMap {
	if length < 0 || bitrate <= 0 {
		return extractor.SeekMap{}
	}
	bits := (length - dataStart) * 8
	return extractor.SeekMap{
		Duration: time.Duration(float64(bits) / float64(bitrate) * float64(time.Second)),
		Seekable: true,
	}
}
