package mp4

import (
	"io"
	"strconv"

	gomp4 "github.com/abema/go-mp4"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/pkg/errors"

	"github.com/babelcloud/mediaprobe/pkg/media"
)

const hevcSPSNaluType = 33

var (
	typeStsd = gomp4.BoxTypeStsd()

	videoEntries = []gomp4.BoxType{
		gomp4.BoxTypeAvc1(), gomp4.BoxTypeHvc1(), gomp4.BoxTypeHev1(),
		gomp4.BoxTypeAv01(), gomp4.BoxTypeVp08(), gomp4.BoxTypeVp09(), gomp4.BoxTypeMp4v(),
	}
	audioEntries = []gomp4.BoxType{
		gomp4.BoxTypeMp4a(), gomp4.BoxTypeOpus(), gomp4.BoxTypeAC3(),
	}
	// Decoder configuration boxes, keyed by the sample entry that holds them.
	entryConfigs = map[gomp4.BoxType][]gomp4.BoxType{
		gomp4.BoxTypeAvc1(): {gomp4.BoxTypeAvcC()},
		gomp4.BoxTypeHvc1(): {gomp4.BoxTypeHvcC()},
		gomp4.BoxTypeHev1(): {gomp4.BoxTypeHvcC()},
		gomp4.BoxTypeAv01(): {gomp4.BoxTypeAv1C()},
		gomp4.BoxTypeVp09(): {gomp4.BoxTypeVpcC()},
		gomp4.BoxTypeMp4v(): {gomp4.BoxTypeEsds()},
		gomp4.BoxTypeMp4a(): {gomp4.BoxTypeEsds()},
		gomp4.BoxTypeOpus(): {gomp4.BoxTypeDOps()},
		gomp4.BoxTypeAC3():  {gomp4.BoxTypeDAC3()},
	}
)

// trakPaths lists the boxes below a trak needed to describe the track.
func trakPaths() []gomp4.BoxPath {
	stsd := gomp4.BoxPath{gomp4.BoxTypeMdia(), gomp4.BoxTypeMinf(), gomp4.BoxTypeStbl(), typeStsd}
	paths := []gomp4.BoxPath{
		{gomp4.BoxTypeTkhd()},
		{gomp4.BoxTypeMdia(), gomp4.BoxTypeMdhd()},
		{gomp4.BoxTypeMdia(), gomp4.BoxTypeHdlr()},
	}
	for _, entries := range [][]gomp4.BoxType{videoEntries, audioEntries} {
		for _, entry := range entries {
			paths = append(paths, appendPath(stsd, entry))
			for _, cfg := range entryConfigs[entry] {
				paths = append(paths, appendPath(stsd, entry, cfg))
			}
		}
	}
	return paths
}

func appendPath(base gomp4.BoxPath, types ...gomp4.BoxType) gomp4.BoxPath {
	p := make(gomp4.BoxPath, 0, len(base)+len(types))
	p = append(p, base...)
	return append(p, types...)
}

// trakBoxes collects the decoded boxes of one trak.
type trakBoxes struct {
	tkhd      *gomp4.Tkhd
	mdhd      *gomp4.Mdhd
	hdlr      *gomp4.Hdlr
	entryType gomp4.BoxType
	visual    *gomp4.VisualSampleEntry
	audio     *gomp4.AudioSampleEntry
	avcC      *gomp4.AVCDecoderConfiguration
	hvcC      *gomp4.HvcC
	av1C      *gomp4.Av1C
	vpcC      *gomp4.VpcC
	esds      *gomp4.Esds
	dOps      *gomp4.DOps
	dac3      *gomp4.Dac3
}

func readTrak(r io.ReadSeeker, trak *gomp4.BoxInfo) (trakBoxes, error) {
	var tb trakBoxes
	boxes, err := gomp4.ExtractBoxesWithPayload(r, trak, trakPaths())
	if err != nil {
		return tb, errors.Wrapf(err, "read trak at %d", trak.Offset)
	}
	for _, b := range boxes {
		switch p := b.Payload.(type) {
		case *gomp4.Tkhd:
			tb.tkhd = p
		case *gomp4.Mdhd:
			tb.mdhd = p
		case *gomp4.Hdlr:
			tb.hdlr = p
		case *gomp4.VisualSampleEntry:
			if tb.visual == nil && tb.audio == nil {
				tb.visual = p
				tb.entryType = b.Info.Type
			}
		case *gomp4.AudioSampleEntry:
			if tb.visual == nil && tb.audio == nil {
				tb.audio = p
				tb.entryType = b.Info.Type
			}
		case *gomp4.AVCDecoderConfiguration:
			tb.avcC = p
		case *gomp4.HvcC:
			tb.hvcC = p
		case *gomp4.Av1C:
			tb.av1C = p
		case *gomp4.VpcC:
			tb.vpcC = p
		case *gomp4.Esds:
			tb.esds = p
		case *gomp4.DOps:
			tb.dOps = p
		case *gomp4.Dac3:
			tb.dac3 = p
		}
	}
	return tb, nil
}

func (tb trakBoxes) handlerType() string {
	if tb.hdlr == nil {
		return ""
	}
	return string(tb.hdlr.HandlerType[:])
}

func (tb trakBoxes) trackID() string {
	if tb.tkhd == nil {
		return ""
	}
	return strconv.FormatUint(uint64(tb.tkhd.TrackID), 10)
}

// language decodes the packed ISO-639-2/T code of mdhd.
func (tb trakBoxes) language() string {
	if tb.mdhd == nil {
		return ""
	}
	var b [3]byte
	for i, c := range tb.mdhd.Language {
		b[i] = c + 0x60
		if b[i] < 'a' || b[i] > 'z' {
			return ""
		}
	}
	if s := string(b[:]); s != "und" {
		return s
	}
	return ""
}

// format converts the trak into a Format. ok is false for tracks that carry
// no supported video or audio sample entry.
func (tb trakBoxes) format(containerMIME string) (media.Format, bool) {
	switch {
	case tb.handlerType() == "vide" && tb.visual != nil:
		return tb.videoFormat(containerMIME)
	case tb.handlerType() == "soun" && tb.audio != nil:
		return tb.audioFormat(containerMIME)
	default:
		return media.Format{}, false
	}
}

func (tb trakBoxes) videoFormat(containerMIME string) (media.Format, bool) {
	f := media.NewFormat(tb.trackID(), "")
	f.ContainerMIMEType = containerMIME
	f.Language = tb.language()
	f.Width = int(tb.visual.Width)
	f.Height = int(tb.visual.Height)

	switch tb.entryType {
	case gomp4.BoxTypeAvc1():
		f.SampleMIMEType = media.VideoH264
		if tb.avcC != nil {
			f.Codecs = avcCodecs(tb.avcC)
			if len(tb.avcC.SequenceParameterSets) > 0 {
				var sps h264.SPS
				if err := sps.Unmarshal(tb.avcC.SequenceParameterSets[0].NALUnit); err == nil {
					f.Width, f.Height = sps.Width(), sps.Height()
				}
			}
		}
	case gomp4.BoxTypeHvc1(), gomp4.BoxTypeHev1():
		f.SampleMIMEType = media.VideoH265
		if tb.hvcC != nil {
			f.Codecs = hevcCodecs(tb.entryType.String(), tb.hvcC)
			if sps := hevcSPS(tb.hvcC); sps != nil {
				f.Width, f.Height = sps.Width(), sps.Height()
			}
		}
	case gomp4.BoxTypeAv01():
		f.SampleMIMEType = media.VideoAV1
		if tb.av1C != nil {
			f.Codecs = av1Codecs(tb.av1C)
		}
	case gomp4.BoxTypeVp08():
		f.SampleMIMEType = media.VideoVP8
		f.Codecs = "vp8"
	case gomp4.BoxTypeVp09():
		f.SampleMIMEType = media.VideoVP9
		if tb.vpcC != nil {
			f.Codecs = vp9Codecs(tb.vpcC)
		}
	case gomp4.BoxTypeMp4v():
		f.SampleMIMEType = media.VideoMP4V
		if tb.esds != nil {
			info := parseEsds(tb.esds)
			if mime := mimeForObjectType(info.objectType); mime != "" {
				f.SampleMIMEType = mime
			}
			if info.avgBitrate > 0 {
				f.Bitrate = int(info.avgBitrate)
			}
		}
	default:
		return media.Format{}, false
	}
	return f, true
}

func hevcSPS(c *gomp4.HvcC) *h265.SPS {
	for _, arr := range c.NaluArrays {
		if arr.NaluType != hevcSPSNaluType || len(arr.Nalus) == 0 {
			continue
		}
		var sps h265.SPS
		if err := sps.Unmarshal(arr.Nalus[0].NALUnit); err == nil {
			return &sps
		}
	}
	return nil
}

func (tb trakBoxes) audioFormat(containerMIME string) (media.Format, bool) {
	f := media.NewFormat(tb.trackID(), "")
	f.ContainerMIMEType = containerMIME
	f.Language = tb.language()
	f.ChannelCount = int(tb.audio.ChannelCount)
	f.SampleRate = int(tb.audio.GetSampleRateInt())

	switch tb.entryType {
	case gomp4.BoxTypeMp4a():
		f.SampleMIMEType = media.AudioAAC
		if tb.esds == nil {
			break
		}
		info := parseEsds(tb.esds)
		if mime := mimeForObjectType(info.objectType); mime != "" {
			f.SampleMIMEType = mime
		}
		if info.avgBitrate > 0 {
			f.Bitrate = int(info.avgBitrate)
		}
		if f.SampleMIMEType == media.AudioAAC && len(info.decoderConfig) > 0 {
			var asc mpeg4audio.AudioSpecificConfig
			if err := asc.Unmarshal(info.decoderConfig); err == nil {
				f.Codecs = aacCodecs(asc.Type)
				f.SampleRate = asc.SampleRate
				if asc.ChannelCount > 0 {
					f.ChannelCount = asc.ChannelCount
				}
			}
		}
	case gomp4.BoxTypeOpus():
		f.SampleMIMEType = media.AudioOpus
		f.Codecs = "opus"
		f.SampleRate = 48000
		if tb.dOps != nil {
			f.ChannelCount = int(tb.dOps.OutputChannelCount)
		}
	case gomp4.BoxTypeAC3():
		f.SampleMIMEType = media.AudioAC3
		f.Codecs = "ac-3"
		if tb.dac3 != nil {
			f.ChannelCount = ac3Channels[tb.dac3.Acmod&0x07]
			if tb.dac3.LfeOn != 0 {
				f.ChannelCount++
			}
			if int(tb.dac3.Fscod) < len(ac3SampleRates) {
				f.SampleRate = ac3SampleRates[tb.dac3.Fscod]
			}
		}
	default:
		return media.Format{}, false
	}
	return f, true
}
