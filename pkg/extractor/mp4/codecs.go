package mp4

import (
	"fmt"

	gomp4 "github.com/abema/go-mp4"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"

	"github.com/babelcloud/mediaprobe/pkg/media"
)

// Object type indications of the MPEG-4 decoder config descriptor.
const (
	otiMPEG4Video = 0x20
	otiH264       = 0x21
	otiH265       = 0x23
	otiAAC        = 0x40
	otiAACMain    = 0x66
	otiAACLC      = 0x67
	otiAACSSR     = 0x68
	otiMP3MPEG2   = 0x69
	otiMP3        = 0x6B
	otiAC3        = 0xA5
	otiOpus       = 0xAD
	otiVorbis     = 0xDD
)

func mimeForObjectType(oti byte) string {
	switch oti {
	case otiMPEG4Video:
		return media.VideoMP4V
	case otiH264:
		return media.VideoH264
	case otiH265:
		return media.VideoH265
	case otiAAC, otiAACMain, otiAACLC, otiAACSSR:
		return media.AudioAAC
	case otiMP3MPEG2, otiMP3:
		return media.AudioMPEG
	case otiAC3:
		return media.AudioAC3
	case otiOpus:
		return media.AudioOpus
	case otiVorbis:
		return media.AudioVorbis
	default:
		return ""
	}
}

// esdsInfo is what the track parser needs from an esds box.
type esdsInfo struct {
	objectType    byte
	avgBitrate    uint32
	decoderConfig []byte
}

func parseEsds(esds *gomp4.Esds) esdsInfo {
	var info esdsInfo
	for _, d := range esds.Descriptors {
		switch d.Tag {
		case gomp4.DecoderConfigDescrTag:
			if d.DecoderConfigDescriptor != nil {
				info.objectType = d.DecoderConfigDescriptor.ObjectTypeIndication
				info.avgBitrate = d.DecoderConfigDescriptor.AvgBitrate
			}
		case gomp4.DecSpecificInfoTag:
			info.decoderConfig = d.Data
		}
	}
	return info
}

func avcCodecs(c *gomp4.AVCDecoderConfiguration) string {
	return fmt.Sprintf("avc1.%02X%02X%02X", c.Profile, c.ProfileCompatibility, c.Level)
}

func hevcCodecs(prefix string, c *gomp4.HvcC) string {
	var compat uint32
	for i, set := range c.GeneralProfileCompatibility {
		if set {
			compat |= 1 << i
		}
	}
	space := ""
	if c.GeneralProfileSpace > 0 {
		space = string(rune('A' + c.GeneralProfileSpace - 1))
	}
	tier := "L"
	if c.GeneralTierFlag {
		tier = "H"
	}
	return fmt.Sprintf("%s.%s%d.%X.%s%d", prefix, space, c.GeneralProfileIdc, compat, tier, c.GeneralLevelIdc)
}

func av1Codecs(c *gomp4.Av1C) string {
	tier := "M"
	if c.SeqTier0 != 0 {
		tier = "H"
	}
	depth := 8
	switch {
	case c.HighBitdepth != 0 && c.TwelveBit != 0:
		depth = 12
	case c.HighBitdepth != 0:
		depth = 10
	}
	return fmt.Sprintf("av01.%d.%02d%s.%02d", c.SeqProfile, c.SeqLevelIdx0, tier, depth)
}

func vp9Codecs(c *gomp4.VpcC) string {
	return fmt.Sprintf("vp09.%02d.%02d.%02d", c.Profile, c.Level, c.BitDepth)
}

func aacCodecs(objectType mpeg4audio.ObjectType) string {
	return fmt.Sprintf("mp4a.40.%d", int(objectType))
}

// ac3Channels maps acmod (ETSI TS 102 366 table 4.3) to a channel count.
var ac3Channels = [8]int{2, 1, 2, 3, 3, 4, 4, 5}

var ac3SampleRates = [3]int{48000, 44100, 32000}
