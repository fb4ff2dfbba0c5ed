// Package sink buffers what an extractor reports until the track layout is
// complete. It is owned by a single worker goroutine and is not locked.
package sink

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/babelcloud/mediaprobe/pkg/extractor"
	"github.com/babelcloud/mediaprobe/pkg/media"
)

// Sink implements extractor.Output. Sample payloads are counted and dropped.
type Sink struct {
	logger *slog.Logger

	declared    int
	formats     map[int]media.Format
	tracksEnded bool
	seekMap     *extractor.SeekMap
	sampleBytes int64
	rejected    int
}

var _ extractor.Output = (*Sink)(nil)

func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		logger:   logger.With("component", "track_sink"),
		declared: -1,
		formats:  make(map[int]media.Format),
	}
}

func (s *Sink) DeclareTracks(count int) {
	if s.tracksEnded {
		s.reject("declare tracks after end of tracks", "count", count)
		return
	}
	if count < 0 {
		s.reject("negative track count", "count", count)
		return
	}
	s.declared = count
}

func (s *Sink) Format(index int, format media.Format) {
	switch {
	case s.tracksEnded:
		s.reject("format registered after end of tracks", "index", index, "mime", format.SampleMIMEType)
	case index < 0 || (s.declared >= 0 && index >= s.declared):
		s.reject("format index out of range", "index", index, "declared", s.declared)
	default:
		if _, dup := s.formats[index]; dup {
			s.reject("duplicate format registration", "index", index, "mime", format.SampleMIMEType)
			return
		}
		s.formats[index] = format
		s.logger.Debug("Track format registered", "index", index, "mime", format.SampleMIMEType)
	}
}

func (s *Sink) EndTracks() {
	if s.tracksEnded {
		s.logger.Debug("End of tracks signalled twice")
		return
	}
	s.tracksEnded = true
	if s.declared >= 0 && len(s.formats) != s.declared {
		s.logger.Warn("Track count differs from declaration", "declared", s.declared, "registered", len(s.formats))
	}
}

func (s *Sink) SampleData(index int, data []byte) {
	s.sampleBytes += int64(len(data))
}

func (s *Sink) SeekMap(m extractor.SeekMap) {
	s.seekMap = &m
}

// TracksEnded reports whether the extractor signalled end of tracks.
func (s *Sink) TracksEnded() bool { return s.tracksEnded }

// Rejected returns how many events were ignored as defects.
func (s *Sink) Rejected() int { return s.rejected }

// DiscardedSampleBytes returns the total sample payload size seen.
func (s *Sink) DiscardedSampleBytes() int64 { return s.sampleBytes }

// LastSeekMap returns the most recent seek map, if any was reported.
func (s *Sink) LastSeekMap() (extractor.SeekMap, bool) {
	if s.seekMap == nil {
		return extractor.SeekMap{}, false
	}
	return *s.seekMap, true
}

// TrackGroups builds one group per registered track, ordered by track index.
func (s *Sink) TrackGroups() (media.TrackGroupArray, error) {
	if !s.tracksEnded {
		return media.TrackGroupArray{}, fmt.Errorf("track information is not complete")
	}
	indices := make([]int, 0, len(s.formats))
	for i := range s.formats {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	groups := make([]media.TrackGroup, 0, len(indices))
	for _, i := range indices {
		f := s.formats[i]
		groups = append(groups, media.NewTrackGroup(fmt.Sprintf("%d:%s", i, f.ID), media.Track{Index: i, Format: f}))
	}
	return media.NewTrackGroupArray(groups...), nil
}

func (s *Sink) reject(msg string, args ...any) {
	s.rejected++
	s.logger.Warn("Ignoring extractor event: "+msg, args...)
}
