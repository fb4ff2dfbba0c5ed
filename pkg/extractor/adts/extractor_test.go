package adts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babelcloud/mediaprobe/internal/mediatest"
	"github.com/babelcloud/mediaprobe/pkg/extractor/adts"
	"github.com/babelcloud/mediaprobe/pkg/media"
)

func TestExtract(t *testing.T) {
	groups, s, err := mediatest.Extract(t, adts.New(), mediatest.ADTS(t, 44100, 2, 3))
	require.NoError(t, err)
	require.Equal(t, 1, groups.Len())

	f := groups.Get(0).Format(0)
	assert.Equal(t, media.AudioAAC, f.SampleMIMEType)
	assert.Equal(t, media.AudioADTS, f.ContainerMIMEType)
	assert.Equal(t, "mp4a.40.2", f.Codecs)
	assert.Equal(t, 44100, f.SampleRate)
	assert.Equal(t, 2, f.ChannelCount)
	assert.Equal(t, int64(len(mediatest.AACFrame)), s.DiscardedSampleBytes())
}

func TestExtractAfterID3(t *testing.T) {
	data := append(mediatest.ID3(mediatest.TextFrame("TIT2", "Title")), mediatest.ADTS(t, 48000, 1, 2)...)
	groups, _, err := mediatest.Extract(t, adts.New(), data)
	require.NoError(t, err)
	require.Equal(t, 1, groups.Len())

	f := groups.Get(0).Format(0)
	assert.Equal(t, 48000, f.SampleRate)
	assert.Equal(t, 1, f.ChannelCount)
}

func TestExtractWithCRC(t *testing.T) {
	frame := mediatest.ADTS(t, 44100, 2, 1)
	// Insert a CRC: clear protection_absent and grow the frame length by two.
	crc := append([]byte(nil), frame[:7]...)
	crc = append(crc, 0xAB, 0xCD)
	crc = append(crc, frame[7:]...)
	crc[1] &^= 0x01
	n := len(crc)
	crc[3] = crc[3]&^0x03 | byte(n>>11)&0x03
	crc[4] = byte(n >> 3)
	crc[5] = crc[5]&0x1F | byte(n&0x07)<<5

	groups, s, err := mediatest.Extract(t, adts.New(), crc)
	require.NoError(t, err)
	require.Equal(t, 1, groups.Len())
	assert.Equal(t, 44100, groups.Get(0).Format(0).SampleRate)
	assert.Equal(t, int64(len(mediatest.AACFrame)), s.DiscardedSampleBytes())
}

func TestSniff(t *testing.T) {
	two := mediatest.ADTS(t, 44100, 2, 2)
	corrupt := append([]byte(nil), two...)
	second := len(two) / 2
	corrupt[second] = 0x00

	tests := []struct {
		name     string
		probe    []byte
		expected bool
	}{
		{name: "two frames", probe: two, expected: true},
		{name: "single complete frame", probe: mediatest.ADTS(t, 44100, 2, 1), expected: true},
		{name: "broken second frame", probe: corrupt, expected: false},
		{name: "mp3 frame", probe: mediatest.MP3(nil, 2), expected: false},
		{name: "id3 only", probe: mediatest.ID3(mediatest.TextFrame("TIT2", "x")), expected: false},
		{name: "empty", probe: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adts.New().Sniff(tt.probe))
		})
	}
}
