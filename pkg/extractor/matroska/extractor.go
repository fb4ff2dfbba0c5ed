// Package matroska extracts track formats from Matroska and WebM files.
package matroska

import (
	"bytes"
	"io"
	"log/slog"
	"time"

	"github.com/at-wat/ebml-go"
	"github.com/pkg/errors"

	"github.com/babelcloud/mediaprobe/pkg/extractor"
	"github.com/babelcloud/mediaprobe/pkg/media"
)

const Name = "matroska"

var magic = []byte{0x1A, 0x45, 0xDF, 0xA3}

// docTypeWindow is how far into the file Sniff looks for the DocType value.
const docTypeWindow = 64

type Extractor struct {
	logger *slog.Logger
	done   bool
}

var _ extractor.Extractor = (*Extractor)(nil)

func New() extractor.Extractor {
	return &Extractor{logger: slog.With("component", "matroska_extractor")}
}

func (e *Extractor) Sniff(probe []byte) bool {
	if !bytes.HasPrefix(probe, magic) {
		return false
	}
	head := probe[:min(len(probe), docTypeWindow)]
	return bytes.Contains(head, []byte("webm")) || bytes.Contains(head, []byte("matroska"))
}

func (e *Extractor) Release() error { return nil }

// errorReader remembers the last read error so a not-ready condition
// survives whatever wrapping the decoder applies.
type errorReader struct {
	r   io.Reader
	err error
}

func (r *errorReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil {
		r.err = err
	}
	return n, err
}

// ReadNext decodes the EBML header and the segment up to the end of the
// Tracks element in a single call.
func (e *Extractor) ReadNext(in *extractor.Input, out extractor.Output) (extractor.Result, error) {
	if e.done {
		return extractor.EndOfInput, nil
	}

	var doc document
	r := &errorReader{r: in}
	err := ebml.Unmarshal(r, &doc)
	switch {
	case errors.Is(err, ebml.ErrReadStopped):
	case r.err != nil && errors.Is(r.err, extractor.ErrNotReady):
		return extractor.Continue, r.err
	case err != nil && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)):
		return extractor.Continue, errors.Wrap(io.ErrUnexpectedEOF, "truncated EBML element")
	case err != nil:
		return extractor.Continue, errors.Wrapf(extractor.ErrMalformed, "decode EBML: %v", err)
	default:
		return extractor.Continue, errors.Wrap(extractor.ErrMalformed, "segment has no Tracks element")
	}

	containerMIME, err := e.containerMIME(doc)
	if err != nil {
		return extractor.Continue, err
	}

	var formats []media.Format
	for _, t := range doc.Segment.Tracks.TrackEntry {
		switch t.TrackType {
		case trackTypeVideo, trackTypeAudio, trackTypeSubtitle:
		default:
			continue
		}
		f, ok := trackFormat(t, containerMIME)
		if !ok {
			e.logger.Debug("Skipping track with unsupported codec", "track", t.TrackNumber, "codec", t.CodecID)
			continue
		}
		formats = append(formats, f)
	}

	out.DeclareTracks(len(formats))
	for i, f := range formats {
		out.Format(i, f)
	}
	out.EndTracks()
	out.SeekMap(extractor.SeekMap{Duration: duration(doc.Segment.Info)})
	e.done = true
	return extractor.Continue, nil
}

func (e *Extractor) containerMIME(doc document) (string, error) {
	video := false
	for _, t := range doc.Segment.Tracks.TrackEntry {
		if t.TrackType == trackTypeVideo {
			video = true
		}
	}
	switch doc.Header.DocType {
	case "webm":
		if video {
			return media.VideoWebM, nil
		}
		return media.AudioWebM, nil
	case "matroska":
		if video {
			return media.VideoMatroska, nil
		}
		return media.AudioMatroska, nil
	default:
		return "", errors.Wrapf(extractor.ErrMalformed, "unsupported DocType %q", doc.Header.DocType)
	}
}

func duration(i info) time.Duration {
	if i.Duration <= 0 {
		return 0
	}
	scale := i.TimecodeScale
	if scale == 0 {
		scale = defaultTimecodeScale
	}
	return time.Duration(i.Duration * float64(scale))
}
