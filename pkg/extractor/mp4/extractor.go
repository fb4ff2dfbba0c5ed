// Package mp4 extracts track formats from ISO base media files (MP4, MOV,
// HEIF/HEIC), including the motion photo video box of HEIC files.
package mp4

import (
	"io"
	"log/slog"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/pkg/errors"

	"github.com/babelcloud/mediaprobe/pkg/extractor"
	"github.com/babelcloud/mediaprobe/pkg/media"
)

// Name is the registry name of this extractor.
const Name = "mp4"

var typeMpvd = gomp4.StrToBoxType("mpvd")

// Extractor reads one top-level box per ReadNext call.
type Extractor struct {
	logger *slog.Logger

	heic        bool
	motionPhoto *media.MotionPhoto
	tracksDone  bool
}

var _ extractor.Extractor = (*Extractor)(nil)

func New() extractor.Extractor {
	return &Extractor{logger: slog.With("component", "mp4_extractor")}
}

func (e *Extractor) Sniff(probe []byte) bool {
	return sniff(probe)
}

func (e *Extractor) Release() error {
	e.motionPhoto = nil
	return nil
}

func (e *Extractor) containerMIME() string {
	if e.heic {
		return media.ImageHEIC
	}
	return media.VideoMP4
}

func (e *Extractor) ReadNext(in *extractor.Input, out extractor.Output) (extractor.Result, error) {
	end, err := in.AtEnd()
	if err != nil {
		return extractor.Continue, err
	}
	if end {
		e.endOfInput(out)
		return extractor.EndOfInput, nil
	}

	bi, err := gomp4.ReadBoxInfo(in)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return extractor.Continue, errors.Wrap(io.ErrUnexpectedEOF, "truncated box header")
		}
		return extractor.Continue, errors.Wrap(err, "read box header")
	}
	if bi.Size < bi.HeaderSize {
		return extractor.Continue, errors.Wrapf(extractor.ErrMalformed, "box %s at %d has size %d", bi.Type, bi.Offset, bi.Size)
	}

	switch bi.Type {
	case gomp4.BoxTypeFtyp():
		if err := e.readFtyp(in, bi); err != nil {
			return extractor.Continue, err
		}
	case gomp4.BoxTypeMoov():
		if err := e.readMoov(in, bi, out); err != nil {
			return extractor.Continue, err
		}
	case typeMpvd:
		if e.heic && e.motionPhoto == nil {
			e.motionPhoto = &media.MotionPhoto{
				PhotoStartPosition: 0,
				PhotoSize:          int64(bi.Offset),
				VideoStartPosition: int64(bi.Offset + bi.HeaderSize),
				VideoSize:          int64(bi.Size - bi.HeaderSize),
			}
			e.logger.Debug("Motion photo video found", "offset", bi.Offset, "size", bi.Size)
		}
	default:
		e.logger.Debug("Skipping box", "type", bi.Type.String(), "offset", bi.Offset, "size", bi.Size)
	}

	if _, err := bi.SeekToEnd(in); err != nil {
		return extractor.Continue, errors.Wrapf(err, "skip box %s", bi.Type)
	}
	return extractor.Continue, nil
}

func (e *Extractor) readFtyp(in *extractor.Input, bi *gomp4.BoxInfo) error {
	var ftyp gomp4.Ftyp
	if _, err := gomp4.Unmarshal(in, bi.Size-bi.HeaderSize, &ftyp, gomp4.Context{}); err != nil {
		return errors.Wrap(err, "read ftyp")
	}
	heic := heicBrands[string(ftyp.MajorBrand[:])]
	for _, b := range ftyp.CompatibleBrands {
		if string(b.CompatibleBrand[:]) == "heic" {
			heic = true
		}
	}
	e.heic = heic
	e.logger.Debug("File type read", "major_brand", string(ftyp.MajorBrand[:]), "heic", heic)
	return nil
}

func (e *Extractor) readMoov(in *extractor.Input, moov *gomp4.BoxInfo, out extractor.Output) error {
	if e.tracksDone {
		return nil
	}
	traks, err := gomp4.ExtractBoxes(in, moov, []gomp4.BoxPath{{gomp4.BoxTypeTrak()}})
	if err != nil {
		return errors.Wrap(err, "list tracks")
	}

	var formats []media.Format
	for _, trak := range traks {
		tb, err := readTrak(in, trak)
		if err != nil {
			return err
		}
		f, ok := tb.format(e.containerMIME())
		if !ok {
			e.logger.Debug("Skipping unsupported track", "handler", tb.handlerType(), "entry", tb.entryType.String())
			continue
		}
		formats = append(formats, f)
	}

	seekMap, err := readDuration(in, moov)
	if err != nil {
		return err
	}

	out.DeclareTracks(len(formats))
	for i, f := range formats {
		out.Format(i, f)
	}
	out.EndTracks()
	out.SeekMap(seekMap)
	e.tracksDone = true
	return nil
}

func readDuration(in io.ReadSeeker, moov *gomp4.BoxInfo) (extractor.SeekMap, error) {
	boxes, err := gomp4.ExtractBoxWithPayload(in, moov, gomp4.BoxPath{gomp4.BoxTypeMvhd()})
	if err != nil {
		return extractor.SeekMap{}, errors.Wrap(err, "read mvhd")
	}
	sm := extractor.SeekMap{Seekable: true}
	for _, b := range boxes {
		mvhd, ok := b.Payload.(*gomp4.Mvhd)
		if !ok || mvhd.Timescale == 0 {
			continue
		}
		sm.Duration = time.Duration(float64(mvhd.GetDuration()) / float64(mvhd.Timescale) * float64(time.Second))
	}
	return sm, nil
}

// endOfInput emits the still image track of a HEIC file that had no movie
// box. Only a HEIC file gets one; other files end without tracks.
func (e *Extractor) endOfInput(out extractor.Output) {
	if e.tracksDone || !e.heic {
		return
	}
	f := media.NewFormat("1", media.ImageHEIC)
	f.ContainerMIMEType = media.ImageHEIC
	if e.motionPhoto != nil {
		f.Metadata = media.NewMetadata(*e.motionPhoto)
	}
	out.DeclareTracks(1)
	out.Format(0, f)
	out.EndTracks()
	out.SeekMap(extractor.SeekMap{})
	e.tracksDone = true
}
