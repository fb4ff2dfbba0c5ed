package mediatest

import (
	"bytes"
	"testing"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/stretchr/testify/require"
)

// MPEG-1 layer III, 128 kbit/s, 44.1 kHz, no padding.
const (
	MP3SampleRate = 44100
	MP3Bitrate    = 128000
	MP3FrameSize  = 144 * MP3Bitrate / MP3SampleRate
)

// ID3Frame is one ID3v2.4 frame. Body is the frame payload as stored.
type ID3Frame struct {
	ID   string
	Body []byte
}

// TextFrame builds a UTF-8 text information frame.
func TextFrame(id, value string) ID3Frame {
	return ID3Frame{ID: id, Body: append([]byte{3}, value...)}
}

// UserTextFrame builds a TXXX frame.
func UserTextFrame(description, value string) ID3Frame {
	body := append([]byte{3}, description...)
	body = append(body, 0)
	return ID3Frame{ID: "TXXX", Body: append(body, value...)}
}

// CommentFrame builds a COMM frame.
func CommentFrame(lang, description, text string) ID3Frame {
	body := append([]byte{3}, lang...)
	body = append(body, description...)
	body = append(body, 0)
	return ID3Frame{ID: "COMM", Body: append(body, text...)}
}

// URLFrame builds a Wxxx frame.
func URLFrame(id, url string) ID3Frame {
	return ID3Frame{ID: id, Body: []byte(url)}
}

// id3Padding keeps frame parsers from reading past the last frame.
const id3Padding = 16

// ID3 encodes an ID3v2.4 tag holding frames.
func ID3(frames ...ID3Frame) []byte {
	var body bytes.Buffer
	for _, f := range frames {
		body.WriteString(f.ID)
		body.Write(syncsafe(len(f.Body)))
		body.Write([]byte{0, 0})
		body.Write(f.Body)
	}
	body.Write(make([]byte, id3Padding))

	tag := []byte{'I', 'D', '3', 4, 0, 0}
	tag = append(tag, syncsafe(body.Len())...)
	return append(tag, body.Bytes()...)
}

func syncsafe(n int) []byte {
	return []byte{byte(n>>21) & 0x7F, byte(n>>14) & 0x7F, byte(n>>7) & 0x7F, byte(n) & 0x7F}
}

// MP3 returns count stereo MPEG audio frames, preceded by tag when it is
// not nil.
func MP3(tag []byte, count int) []byte {
	out := append([]byte(nil), tag...)
	for i := 0; i < count; i++ {
		frame := make([]byte, MP3FrameSize)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0x00})
		out = append(out, frame...)
	}
	return out
}

// ADTS returns count AAC-LC frames in ADTS framing.
func ADTS(t testing.TB, sampleRate, channels, count int) []byte {
	pkts := make(mpeg4audio.ADTSPackets, count)
	for i := range pkts {
		pkts[i] = &mpeg4audio.ADTSPacket{
			Type:         mpeg4audio.ObjectTypeAACLC,
			SampleRate:   sampleRate,
			ChannelCount: channels,
			AU:           AACFrame,
		}
	}
	b, err := pkts.Marshal()
	require.NoError(t, err)
	return b
}
