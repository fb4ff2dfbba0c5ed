package mediatest

import (
	"bytes"
	"testing"
	"time"

	"github.com/at-wat/ebml-go"
	"github.com/at-wat/ebml-go/mkvcore"
	"github.com/at-wat/ebml-go/webm"
	"github.com/stretchr/testify/require"
)

// WebM dimensions and audio parameters written by WebM.
const (
	WebMWidth      = 1280
	WebMHeight     = 720
	WebMSampleRate = 48000
	WebMChannels   = 2
)

// closeBuffer collects the muxer output. The muxer closes it from its own
// goroutine once every track writer is closed.
type closeBuffer struct {
	bytes.Buffer
	closed chan struct{}
}

func (b *closeBuffer) Close() error {
	close(b.closed)
	return nil
}

// WebM returns a WebM file with a VP8 video track and an Opus audio track,
// each holding one block.
func WebM(t testing.TB) []byte {
	buf := &closeBuffer{closed: make(chan struct{})}
	writers, err := webm.NewSimpleBlockWriter(buf, []webm.TrackEntry{
		{
			Name:            "Video",
			TrackNumber:     1,
			TrackUID:        1,
			CodecID:         "V_VP8",
			TrackType:       1,
			DefaultDuration: 33333333,
			Video: &webm.Video{
				PixelWidth:  WebMWidth,
				PixelHeight: WebMHeight,
			},
		},
		{
			Name:            "Audio",
			TrackNumber:     2,
			TrackUID:        2,
			CodecID:         "A_OPUS",
			TrackType:       2,
			DefaultDuration: 20000000,
			Audio: &webm.Audio{
				SamplingFrequency: WebMSampleRate,
				Channels:          WebMChannels,
			},
		},
	}, mkvcore.WithOnFatalHandler(func(err error) {
		t.Errorf("webm writer: %v", err)
	}))
	require.NoError(t, err)
	require.Len(t, writers, 2)

	_, err = writers[0].Write(true, 0, []byte{0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a})
	require.NoError(t, err)
	_, err = writers[1].Write(true, 0, []byte{0xfc, 0xff, 0xfe})
	require.NoError(t, err)
	for _, w := range writers {
		require.NoError(t, w.Close())
	}
	select {
	case <-buf.closed:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "webm writer did not finish")
	}
	return buf.Bytes()
}

type mkvInfo struct {
	TimecodeScale uint64  `ebml:"TimecodeScale"`
	Duration      float64 `ebml:"Duration"`
	MuxingApp     string  `ebml:"MuxingApp"`
	WritingApp    string  `ebml:"WritingApp"`
}

type mkvAudio struct {
	SamplingFrequency float64 `ebml:"SamplingFrequency"`
	Channels          uint64  `ebml:"Channels"`
}

type mkvTrackEntry struct {
	TrackNumber  uint64    `ebml:"TrackNumber"`
	TrackUID     uint64    `ebml:"TrackUID"`
	TrackType    uint64    `ebml:"TrackType"`
	CodecID      string    `ebml:"CodecID"`
	CodecPrivate []byte    `ebml:"CodecPrivate"`
	Language     string    `ebml:"Language"`
	Audio        *mkvAudio `ebml:"Audio"`
}

type mkvTracks struct {
	TrackEntry []mkvTrackEntry `ebml:"TrackEntry"`
}

type mkvSegment struct {
	Info   mkvInfo   `ebml:"Info"`
	Tracks mkvTracks `ebml:"Tracks"`
}

type mkvDocument struct {
	Header  webm.EBMLHeader `ebml:"EBML"`
	Segment mkvSegment      `ebml:"Segment"`
}

// MatroskaDuration is the duration written by Matroska.
const MatroskaDuration = 2500 * time.Millisecond

// Matroska returns an audio-only Matroska file with one AAC track tagged
// with the given language.
func Matroska(t testing.TB, language string) []byte {
	asc, err := AACConfig.Marshal()
	require.NoError(t, err)

	doc := mkvDocument{
		Header: webm.EBMLHeader{
			EBMLVersion:        1,
			EBMLReadVersion:    1,
			EBMLMaxIDLength:    4,
			EBMLMaxSizeLength:  8,
			DocType:            "matroska",
			DocTypeVersion:     4,
			DocTypeReadVersion: 2,
		},
		Segment: mkvSegment{
			Info: mkvInfo{
				TimecodeScale: 1000000,
				Duration:      float64(MatroskaDuration / time.Millisecond),
				MuxingApp:     "mediatest",
				WritingApp:    "mediatest",
			},
			Tracks: mkvTracks{TrackEntry: []mkvTrackEntry{{
				TrackNumber:  1,
				TrackUID:     1,
				TrackType:    2,
				CodecID:      "A_AAC",
				CodecPrivate: asc,
				Language:     language,
				Audio:        &mkvAudio{SamplingFrequency: 48000, Channels: 2},
			}}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, ebml.Marshal(&doc, &buf))
	return buf.Bytes()
}
