// Package adts extracts the format of raw AAC streams in ADTS framing.
package adts

import (
	"log/slog"
	"strconv"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/pkg/errors"

	"github.com/babelcloud/mediaprobe/pkg/extractor"
	"github.com/babelcloud/mediaprobe/pkg/media"
)

const (
	Name = "adts"

	headerSize    = 7
	crcHeaderSize = 9
	// sniffFrames is how many consecutive frames Sniff wants to see when the
	// probe is long enough.
	sniffFrames = 2
)

type Extractor struct {
	logger  *slog.Logger
	skipped bool
	done    bool
}

var _ extractor.Extractor = (*Extractor)(nil)

func New() extractor.Extractor {
	return &Extractor{logger: slog.With("component", "adts_extractor")}
}

// header is the part of an ADTS header needed to walk frames.
type header struct {
	protectionAbsent bool
	frameLength      int
}

func parseHeader(b []byte) (header, bool) {
	if len(b) < headerSize || b[0] != 0xFF || b[1]&0xF6 != 0xF0 {
		return header{}, false
	}
	h := header{
		protectionAbsent: b[1]&0x01 != 0,
		frameLength:      int(b[3]&0x03)<<11 | int(b[4])<<3 | int(b[5])>>5,
	}
	minLen := headerSize
	if !h.protectionAbsent {
		minLen = crcHeaderSize
	}
	if h.frameLength <= minLen {
		return header{}, false
	}
	if (b[2]>>2)&0x0F > 12 {
		return header{}, false
	}
	return h, true
}

func (e *Extractor) Sniff(probe []byte) bool {
	pos := extractor.ID3v2TagSize(probe)
	frames := 0
	for frames < sniffFrames {
		h, ok := parseHeader(probe[min(pos, len(probe)):])
		if !ok {
			break
		}
		frames++
		pos += h.frameLength
		if pos >= len(probe) {
			break
		}
	}
	return frames >= sniffFrames || (frames == 1 && pos >= len(probe))
}

func (e *Extractor) Release() error { return nil }

func (e *Extractor) ReadNext(in *extractor.Input, out extractor.Output) (extractor.Result, error) {
	if e.done {
		return extractor.EndOfInput, nil
	}
	if !e.skipped {
		head, err := in.Peek(extractor.ID3v2HeaderSize)
		if err != nil {
			return extractor.Continue, err
		}
		if n := extractor.ID3v2TagSize(head); n > 0 {
			if err := in.Skip(int64(n)); err != nil {
				return extractor.Continue, errors.Wrap(err, "skip ID3 tag")
			}
			e.logger.Debug("Skipped ID3 tag", "size", n)
		}
		e.skipped = true
		return extractor.Continue, nil
	}

	hb := make([]byte, headerSize)
	if err := in.ReadFull(hb); err != nil {
		return extractor.Continue, errors.Wrap(err, "read ADTS header")
	}
	h, ok := parseHeader(hb)
	if !ok {
		return extractor.Continue, errors.Wrapf(extractor.ErrMalformed, "invalid ADTS header at %d", in.Position()-headerSize)
	}
	frame := make([]byte, h.frameLength)
	copy(frame, hb)
	if err := in.ReadFull(frame[headerSize:]); err != nil {
		return extractor.Continue, errors.Wrap(err, "read ADTS frame")
	}
	frame = stripCRC(frame, h)

	var pkts mpeg4audio.ADTSPackets
	if err := pkts.Unmarshal(frame); err != nil {
		return extractor.Continue, errors.Wrapf(extractor.ErrMalformed, "decode ADTS frame: %v", err)
	}
	pkt := pkts[0]

	f := media.NewFormat("0", media.AudioAAC)
	f.ContainerMIMEType = media.AudioADTS
	f.Codecs = "mp4a.40." + strconv.Itoa(int(pkt.Type))
	f.SampleRate = pkt.SampleRate
	f.ChannelCount = pkt.ChannelCount

	out.DeclareTracks(1)
	out.Format(0, f)
	out.EndTracks()
	out.SampleData(0, pkt.AU)
	out.SeekMap(extractor.SeekMap{})
	e.done = true
	return extractor.Continue, nil
}

// stripCRC rewrites a frame carrying a CRC into the CRC-less layout the
// decoder accepts.
func stripCRC(frame []byte, h header) []byte {
	if h.protectionAbsent {
		return frame
	}
	out := make([]byte, 0, len(frame)-2)
	out = append(out, frame[:headerSize]...)
	out = append(out, frame[crcHeaderSize:]...)
	out[1] |= 0x01
	n := len(out)
	out[3] = out[3]&^0x03 | byte(n>>11)&0x03
	out[4] = byte(n >> 3)
	out[5] = out[5]&0x1F | byte(n&0x07)<<5
	return out
}
