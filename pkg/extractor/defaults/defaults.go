// Package defaults wires the built-in extractors into a registry.
package defaults

import (
	"github.com/babelcloud/mediaprobe/pkg/extractor"
	"github.com/babelcloud/mediaprobe/pkg/extractor/adts"
	"github.com/babelcloud/mediaprobe/pkg/extractor/matroska"
	"github.com/babelcloud/mediaprobe/pkg/extractor/mp3"
	"github.com/babelcloud/mediaprobe/pkg/extractor/mp4"
	"github.com/babelcloud/mediaprobe/pkg/media"
)

// Entries lists the built-in extractors in priority order. Formats with a
// strong signature come first; mp3 syncs on a weak pattern and goes last.
func Entries() []extractor.Entry {
	return []extractor.Entry{
		{Name: mp4.Name, ContainerMIMEType: media.VideoMP4, New: mp4.New},
		{Name: matroska.Name, ContainerMIMEType: media.VideoMatroska, New: matroska.New},
		{Name: adts.Name, ContainerMIMEType: media.AudioADTS, New: adts.New},
		{Name: mp3.Name, ContainerMIMEType: media.AudioMPEG, New: mp3.New},
	}
}

// Registry returns a new registry holding Entries. Callers may register
// further extractors on it.
func Registry() *extractor.Registry {
	r := extractor.NewRegistry()
	for _, e := range Entries() {
		r.MustRegister(e)
	}
	return r
}
