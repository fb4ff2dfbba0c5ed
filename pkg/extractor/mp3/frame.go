package mp3

import (
	"bytes"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg1audio"

	"github.com/babelcloud/mediaprobe/pkg/media"
)

const (
	frameHeaderSize = 4

	// syncFrames consecutive matching headers confirm a sync position.
	syncFrames = 4
)

var id3v1Magic = []byte("TAG")

// parseFrameHeader decodes the frame header at the start of b.
func parseFrameHeader(b []byte) (mpeg1audio.FrameHeader, bool) {
	var h mpeg1audio.FrameHeader
	if len(b) < frameHeaderSize+1 {
		return h, false
	}
	if err := h.Unmarshal(b); err != nil {
		return h, false
	}
	return h, true
}

// frameLength returns the size in bytes of the frame described by h,
// header included.
func frameLength(h mpeg1audio.FrameHeader) int {
	coeff := 144
	if h.MPEG2 && h.Layer == 3 {
		coeff = 72
	}
	n := coeff * h.Bitrate / h.SampleRate
	if h.Padding {
		n++
	}
	return n
}

func sameStream(a, b mpeg1audio.FrameHeader) bool {
	return a.MPEG2 == b.MPEG2 && a.Layer == b.Layer && a.SampleRate == b.SampleRate
}

// findFrame returns the offset of the first frame header in b that starts a
// run of syncFrames matching headers. When atEnd is set, b holds the rest of
// the input and a shorter run is accepted if it ends exactly at the end of b
// or at an ID3v1 tag.
func findFrame(b []byte, atEnd bool) (int, mpeg1audio.FrameHeader, bool) {
	for i := 0; i+frameHeaderSize < len(b); i++ {
		if b[i] != 0xFF || b[i+1]&0xE0 != 0xE0 {
			continue
		}
		if h, ok := frameRun(b, i, atEnd); ok {
			return i, h, true
		}
	}
	return 0, mpeg1audio.FrameHeader{}, false
}

func frameRun(b []byte, off int, atEnd bool) (mpeg1audio.FrameHeader, bool) {
	first, ok := parseFrameHeader(b[off:])
	if !ok {
		return first, false
	}
	h, pos := first, off
	for n := 1; n < syncFrames; n++ {
		pos += frameLength(h)
		if pos > len(b) {
			return first, false
		}
		if atEnd && (pos == len(b) || bytes.HasPrefix(b[pos:], id3v1Magic)) {
			return first, true
		}
		next, ok := parseFrameHeader(b[pos:])
		if !ok || !sameStream(first, next) {
			return first, false
		}
		h = next
	}
	return first, true
}

func channelCount(h mpeg1audio.FrameHeader) int {
	if h.ChannelMode == mpeg1audio.ChannelModeMono {
		return 1
	}
	return 2
}

func sampleMIME(h mpeg1audio.FrameHeader) string {
	if h.Layer == 2 {
		return media.AudioMPEGL2
	}
	return media.AudioMPEG
}
