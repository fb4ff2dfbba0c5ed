package media

import "fmt"

// NoValue marks an unset numeric Format field.
const NoValue = -1

// Format describes one elementary stream independently of its container.
type Format struct {
	ID                string
	SampleMIMEType    string
	ContainerMIMEType string
	Codecs            string
	Language          string

	Width        int
	Height       int
	SampleRate   int
	ChannelCount int
	Bitrate      int

	// Metadata is nil when the stream carries no side metadata.
	Metadata *Metadata
}

// NewFormat returns a Format with all numeric fields unset.
func NewFormat(id, sampleMIMEType string) Format {
	return Format{
		ID:             id,
		SampleMIMEType: sampleMIMEType,
		Width:          NoValue,
		Height:         NoValue,
		SampleRate:     NoValue,
		ChannelCount:   NoValue,
		Bitrate:        NoValue,
	}
}

// TrackType returns the type implied by the sample MIME type.
func (f Format) TrackType() TrackType {
	return TrackTypeOf(f.SampleMIMEType)
}

// Equal reports structural equality, including metadata entries.
func (f Format) Equal(other Format) bool {
	a, b := f, other
	a.Metadata, b.Metadata = nil, nil
	return a == b && f.Metadata.Equal(other.Metadata)
}

func (f Format) String() string {
	s := fmt.Sprintf("Format(%s, %s, %s, %s", f.ID, f.ContainerMIMEType, f.SampleMIMEType, f.Codecs)
	switch f.TrackType() {
	case TrackTypeVideo, TrackTypeImage:
		s += fmt.Sprintf(", [%d, %d]", f.Width, f.Height)
	case TrackTypeAudio:
		s += fmt.Sprintf(", [%d, %d]", f.ChannelCount, f.SampleRate)
	}
	return s + ")"
}
