package media

import "strings"

// Container and sample MIME types. Values follow the Android media framework
// naming so results are comparable with other players.
const (
	VideoMP4      = "video/mp4"
	VideoWebM     = "video/webm"
	VideoMatroska = "video/x-matroska"
	VideoH264     = "video/avc"
	VideoH265     = "video/hevc"
	VideoVP8      = "video/x-vnd.on2.vp8"
	VideoVP9      = "video/x-vnd.on2.vp9"
	VideoAV1      = "video/av01"
	VideoMP4V     = "video/mp4v-es"

	AudioMP4      = "audio/mp4"
	AudioWebM     = "audio/webm"
	AudioMatroska = "audio/x-matroska"
	AudioAAC      = "audio/mp4a-latm"
	AudioMPEG     = "audio/mpeg"
	AudioMPEGL2   = "audio/mpeg-L2"
	AudioOpus     = "audio/opus"
	AudioVorbis   = "audio/vorbis"
	AudioAC3      = "audio/ac3"
	AudioFLAC     = "audio/flac"
	AudioADTS     = "audio/aac"

	ImageHEIC = "image/heic"

	TextSubRip = "application/x-subrip"
)

// TrackType classifies a track by the top-level type of its sample MIME type.
type TrackType int

const (
	TrackTypeUnknown TrackType = iota
	TrackTypeVideo
	TrackTypeAudio
	TrackTypeText
	TrackTypeImage
)

func (t TrackType) String() string {
	switch t {
	case TrackTypeVideo:
		return "video"
	case TrackTypeAudio:
		return "audio"
	case TrackTypeText:
		return "text"
	case TrackTypeImage:
		return "image"
	default:
		return "unknown"
	}
}

// TrackTypeOf returns the track type implied by a MIME type.
func TrackTypeOf(mimeType string) TrackType {
	top, _, _ := strings.Cut(mimeType, "/")
	switch top {
	case "video":
		return TrackTypeVideo
	case "audio":
		return TrackTypeAudio
	case "text", "application":
		if mimeType == TextSubRip || strings.HasPrefix(mimeType, "text/") {
			return TrackTypeText
		}
		return TrackTypeUnknown
	case "image":
		return TrackTypeImage
	default:
		return TrackTypeUnknown
	}
}
