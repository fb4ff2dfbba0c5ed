package matroska

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"

	"github.com/babelcloud/mediaprobe/pkg/media"
)

var codecMIMETypes = map[string]string{
	"V_VP8":              media.VideoVP8,
	"V_VP9":              media.VideoVP9,
	"V_AV1":              media.VideoAV1,
	"V_MPEG4/ISO/AVC":    media.VideoH264,
	"V_MPEGH/ISO/HEVC":   media.VideoH265,
	"V_MPEG4/ISO/SP":     media.VideoMP4V,
	"V_MPEG4/ISO/ASP":    media.VideoMP4V,
	"V_MPEG4/ISO/AP":     media.VideoMP4V,
	"A_OPUS":             media.AudioOpus,
	"A_VORBIS":           media.AudioVorbis,
	"A_AAC":              media.AudioAAC,
	"A_MPEG/L3":          media.AudioMPEG,
	"A_MPEG/L2":          media.AudioMPEGL2,
	"A_AC3":              media.AudioAC3,
	"A_FLAC":             media.AudioFLAC,
	"S_TEXT/UTF8":        media.TextSubRip,
	"S_TEXT/ASCII":       media.TextSubRip,
	"A_AAC/MPEG4/LC":     media.AudioAAC,
	"A_AAC/MPEG2/LC":     media.AudioAAC,
	"A_AAC/MPEG4/MAIN":   media.AudioAAC,
	"A_AAC/MPEG4/LC/SBR": media.AudioAAC,
}

// trackFormat converts a track entry. ok is false for codecs that have no
// MIME type mapping.
func trackFormat(t trackEntry, containerMIME string) (media.Format, bool) {
	mime, ok := codecMIMETypes[t.CodecID]
	if !ok {
		return media.Format{}, false
	}
	f := media.NewFormat(fmt.Sprint(t.TrackNumber), mime)
	f.ContainerMIMEType = containerMIME
	if t.Language != "" && t.Language != "und" {
		f.Language = t.Language
	}

	if v := t.Video; v != nil {
		if v.PixelWidth > 0 {
			f.Width = int(v.PixelWidth)
		}
		if v.PixelHeight > 0 {
			f.Height = int(v.PixelHeight)
		}
	}
	if a := t.Audio; a != nil {
		if a.SamplingFrequency > 0 {
			f.SampleRate = int(a.SamplingFrequency)
		}
		if a.Channels > 0 {
			f.ChannelCount = int(a.Channels)
		}
	}

	switch mime {
	case media.VideoH264:
		// AVCDecoderConfigurationRecord: version, profile, compatibility, level.
		if p := t.CodecPrivate; len(p) >= 4 {
			f.Codecs = fmt.Sprintf("avc1.%02X%02X%02X", p[1], p[2], p[3])
		}
	case media.VideoVP8:
		f.Codecs = "vp8"
	case media.VideoVP9:
		f.Codecs = "vp9"
	case media.AudioOpus:
		f.Codecs = "opus"
	case media.AudioVorbis:
		f.Codecs = "vorbis"
	case media.AudioAAC:
		var conf mpeg4audio.AudioSpecificConfig
		if err := conf.Unmarshal(t.CodecPrivate); err == nil {
			f.Codecs = fmt.Sprintf("mp4a.40.%d", int(conf.Type))
			f.SampleRate = conf.SampleRate
			f.ChannelCount = conf.ChannelCount
		}
	}
	return f, true
}
