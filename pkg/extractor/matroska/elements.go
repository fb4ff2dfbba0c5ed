package matroska

// Element layouts decoded by ebml. Only the elements needed to describe
// tracks are listed; everything else in the segment is skipped.

type document struct {
	Header  header  `ebml:"EBML"`
	Segment segment `ebml:"Segment"`
}

type header struct {
	DocType string `ebml:"EBMLDocType"`
}

type segment struct {
	Info   info   `ebml:"Info"`
	Tracks tracks `ebml:"Tracks,stop"`
}

type info struct {
	TimecodeScale uint64  `ebml:"TimecodeScale"`
	Duration      float64 `ebml:"Duration"`
}

type tracks struct {
	TrackEntry []trackEntry `ebml:"TrackEntry"`
}

type trackEntry struct {
	TrackNumber  uint64         `ebml:"TrackNumber"`
	TrackType    uint64         `ebml:"TrackType"`
	CodecID      string         `ebml:"CodecID"`
	CodecPrivate []byte         `ebml:"CodecPrivate"`
	Language     string         `ebml:"Language"`
	Name         string         `ebml:"Name"`
	Video        *videoSettings `ebml:"Video"`
	Audio        *audioSettings `ebml:"Audio"`
}

type videoSettings struct {
	PixelWidth  uint64 `ebml:"PixelWidth"`
	PixelHeight uint64 `ebml:"PixelHeight"`
}

type audioSettings struct {
	SamplingFrequency float64 `ebml:"SamplingFrequency"`
	Channels          uint64  `ebml:"Channels"`
}

const (
	trackTypeVideo    = 1
	trackTypeAudio    = 2
	trackTypeSubtitle = 17

	defaultTimecodeScale = 1000000
)
