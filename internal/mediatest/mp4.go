// Package mediatest builds small media files for tests.
package mediatest

import (
	"testing"

	gomp4 "github.com/abema/go-mp4"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"
	"github.com/stretchr/testify/require"

	"github.com/babelcloud/mediaprobe/pkg/media"
)

// H.264 baseline 1920x1080 parameter sets and one IDR slice.
var (
	SPS = []byte{
		0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
		0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
		0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9,
		0x20,
	}
	PPS = []byte{0x68, 0xce, 0x38, 0x80}
	IDR = []byte{0x65, 0x88, 0x84, 0x00, 0x10}

	AACFrame = []byte{
		0x12, 0x10, 0x56, 0xe5, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	AACConfig = mpeg4audio.AudioSpecificConfig{
		Type:         mpeg4audio.ObjectTypeAACLC,
		SampleRate:   48000,
		ChannelCount: 2,
	}
)

const (
	videoTrackID = 1
	audioTrackID = 2
	videoClock   = 90000
	audioClock   = 48000
)

// MP4 returns a fragmented MP4 with one H.264 and one AAC track followed by
// a media fragment.
func MP4(t testing.TB) []byte {
	init := &fmp4.Init{
		Tracks: []*fmp4.InitTrack{
			{
				ID:        videoTrackID,
				TimeScale: videoClock,
				Codec:     &fmp4.CodecH264{SPS: SPS, PPS: PPS},
			},
			{
				ID:        audioTrackID,
				TimeScale: audioClock,
				Codec:     &fmp4.CodecMPEG4Audio{Config: AACConfig},
			},
		},
	}
	var buf seekablebuffer.Buffer
	require.NoError(t, init.Marshal(&buf))

	avcc := append(lengthPrefixed(SPS), lengthPrefixed(PPS)...)
	avcc = append(avcc, lengthPrefixed(IDR)...)
	part := &fmp4.Part{
		SequenceNumber: 1,
		Tracks: []*fmp4.PartTrack{
			{
				ID:      videoTrackID,
				Samples: []*fmp4.PartSample{{Duration: videoClock / 30, Payload: avcc}},
			},
			{
				ID:      audioTrackID,
				Samples: []*fmp4.PartSample{{Duration: 1024, Payload: AACFrame}},
			},
		},
	}
	var partBuf seekablebuffer.Buffer
	require.NoError(t, part.Marshal(&partBuf))

	return append(buf.Bytes(), partBuf.Bytes()...)
}

func lengthPrefixed(nalu []byte) []byte {
	n := len(nalu)
	return append([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}, nalu...)
}

var (
	boxMpvd = gomp4.StrToBoxType("mpvd")
	boxMdat = gomp4.BoxTypeMdat()
)

// HEIC returns a still HEIF image file: ftyp, meta and the coded image.
func HEIC(t testing.TB) []byte {
	var buf seekablebuffer.Buffer
	writeHEIC(t, gomp4.NewWriter(&buf))
	return buf.Bytes()
}

// MotionPhotoHEIC returns a HEIC still followed by an mpvd box holding an
// MP4 video, and the motion photo record describing it.
func MotionPhotoHEIC(t testing.TB) ([]byte, media.MotionPhoto) {
	var buf seekablebuffer.Buffer
	w := gomp4.NewWriter(&buf)
	writeHEIC(t, w)

	video := MP4(t)
	bi, err := w.StartBox(&gomp4.BoxInfo{Type: boxMpvd, HeaderSize: gomp4.LargeHeaderSize})
	require.NoError(t, err)
	_, err = w.Write(video)
	require.NoError(t, err)
	_, err = w.EndBox()
	require.NoError(t, err)

	return buf.Bytes(), media.MotionPhoto{
		PhotoStartPosition: 0,
		PhotoSize:          int64(bi.Offset),
		VideoStartPosition: int64(bi.Offset) + gomp4.LargeHeaderSize,
		VideoSize:          int64(len(video)),
	}
}

func writeHEIC(t testing.TB, w *gomp4.Writer) {
	writeBox(t, w, &gomp4.Ftyp{
		MajorBrand: [4]byte{'h', 'e', 'i', 'c'},
		CompatibleBrands: []gomp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'m', 'i', 'f', '1'}},
			{CompatibleBrand: [4]byte{'h', 'e', 'i', 'c'}},
		},
	})

	_, err := w.StartBox(&gomp4.BoxInfo{Type: gomp4.BoxTypeMeta()})
	require.NoError(t, err)
	_, err = gomp4.Marshal(w, &gomp4.Meta{}, gomp4.Context{})
	require.NoError(t, err)
	writeBox(t, w, &gomp4.Hdlr{HandlerType: [4]byte{'p', 'i', 'c', 't'}})
	_, err = w.EndBox()
	require.NoError(t, err)

	_, err = w.StartBox(&gomp4.BoxInfo{Type: boxMdat})
	require.NoError(t, err)
	_, err = w.Write(make([]byte, 512))
	require.NoError(t, err)
	_, err = w.EndBox()
	require.NoError(t, err)
}

func writeBox(t testing.TB, w *gomp4.Writer, box gomp4.IBox) {
	_, err := w.StartBox(&gomp4.BoxInfo{Type: box.GetType()})
	require.NoError(t, err)
	_, err = gomp4.Marshal(w, box, gomp4.Context{})
	require.NoError(t, err)
	_, err = w.EndBox()
	require.NoError(t, err)
}
