package mp4_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babelcloud/mediaprobe/internal/mediatest"
	"github.com/babelcloud/mediaprobe/pkg/extractor"
	"github.com/babelcloud/mediaprobe/pkg/extractor/mp4"
	"github.com/babelcloud/mediaprobe/pkg/media"
)

func TestExtractVideoAndAudio(t *testing.T) {
	groups, s, err := mediatest.Extract(t, mp4.New(), mediatest.MP4(t))
	require.NoError(t, err)
	require.Equal(t, 2, groups.Len())

	video := groups.Get(0).Format(0)
	assert.Equal(t, "1", video.ID)
	assert.Equal(t, media.VideoH264, video.SampleMIMEType)
	assert.Equal(t, media.VideoMP4, video.ContainerMIMEType)
	assert.Equal(t, "avc1.42C028", video.Codecs)
	assert.Equal(t, 1920, video.Width)
	assert.Equal(t, 1080, video.Height)
	assert.Equal(t, "", video.Language)
	assert.Nil(t, video.Metadata)

	audio := groups.Get(1).Format(0)
	assert.Equal(t, "2", audio.ID)
	assert.Equal(t, media.AudioAAC, audio.SampleMIMEType)
	assert.Equal(t, "mp4a.40.2", audio.Codecs)
	assert.Equal(t, 48000, audio.SampleRate)
	assert.Equal(t, 2, audio.ChannelCount)

	assert.Equal(t, 0, s.Rejected())
	sm, ok := s.LastSeekMap()
	require.True(t, ok)
	assert.True(t, sm.Seekable)
}

func TestExtractStillHEIC(t *testing.T) {
	groups, _, err := mediatest.Extract(t, mp4.New(), mediatest.HEIC(t))
	require.NoError(t, err)
	require.Equal(t, 1, groups.Len())

	f := groups.Get(0).Format(0)
	assert.Equal(t, media.ImageHEIC, f.SampleMIMEType)
	assert.Equal(t, media.ImageHEIC, f.ContainerMIMEType)
	assert.Nil(t, f.Metadata)
}

func TestExtractMotionPhoto(t *testing.T) {
	data, expected := mediatest.MotionPhotoHEIC(t)
	groups, _, err := mediatest.Extract(t, mp4.New(), data)
	require.NoError(t, err)
	require.Equal(t, 1, groups.Len())

	f := groups.Get(0).Format(0)
	require.Equal(t, 1, f.Metadata.Len())
	assert.Equal(t, expected, f.Metadata.Get(0))
	assert.Equal(t, int64(len(data)), expected.VideoStartPosition+expected.VideoSize)
	assert.Equal(t, expected.PhotoSize+16, expected.VideoStartPosition)
}

func TestExtractRetriesStalledInput(t *testing.T) {
	data := mediatest.MP4(t)
	stream := mediatest.NewStream(data).Stall(3)
	in := extractor.NewInput(stream, stream.Size())

	groups, _, err := mediatest.Drive(t, mp4.New(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, groups.Len())
	assert.Equal(t, 0, stream.Stalled())
}

func TestExtractTruncated(t *testing.T) {
	data := mediatest.MP4(t)
	// Keep the ftyp box and a part of the moov box.
	_, _, err := mediatest.Extract(t, mp4.New(), data[:64])
	assert.Error(t, err)
}

func TestExtractNoMovieBox(t *testing.T) {
	ftyp := []byte{
		0, 0, 0, 0x10, 'f', 't', 'y', 'p',
		'i', 's', 'o', 'm', 0, 0, 0, 0,
	}
	_, _, err := mediatest.Extract(t, mp4.New(), ftyp)
	assert.Error(t, err, "an mp4 file without moov ends prematurely")
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name     string
		probe    []byte
		expected bool
	}{
		{name: "isom", probe: []byte{0, 0, 0, 0x10, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 0, 0}, expected: true},
		{name: "3gp", probe: []byte{0, 0, 0, 0x10, 'f', 't', 'y', 'p', '3', 'g', 'p', '5', 0, 0, 0, 0}, expected: true},
		{name: "unknown brand", probe: []byte{0, 0, 0, 0x10, 'f', 't', 'y', 'p', 'q', 'q', 'q', 'q', 0, 0, 0, 0}, expected: false},
		{name: "compatible brand", probe: []byte{
			0, 0, 0, 0x14, 'f', 't', 'y', 'p', 'q', 'q', 'q', 'q', 0, 0, 0, 0, 'm', 'p', '4', '2',
		}, expected: true},
		{name: "moov first", probe: []byte{0, 0, 0, 0x08, 'm', 'o', 'o', 'v'}, expected: true},
		{name: "free then moov", probe: []byte{
			0, 0, 0, 0x08, 'f', 'r', 'e', 'e', 0, 0, 0, 0x08, 'm', 'o', 'o', 'v',
		}, expected: true},
		{name: "text", probe: []byte("hello world, not a movie"), expected: false},
		{name: "empty", probe: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mp4.New().Sniff(tt.probe))
		})
	}
}
