package mp3

import (
	"bytes"
	"sort"
	"strings"

	"github.com/dhowden/tag"
	"github.com/pkg/errors"

	"github.com/babelcloud/mediaprobe/pkg/media"
)

// parseID3 decodes a complete ID3v2 tag into metadata entries. Frames that
// have no metadata representation (pictures, private data) are dropped.
func parseID3(b []byte) ([]media.Entry, error) {
	m, err := tag.ReadID3v2Tags(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "decode ID3 tag")
	}
	raw := m.Raw()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var entries []media.Entry
	for _, key := range keys {
		if e := frameEntry(frameID(key), raw[key]); e != nil {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// frameID strips the "_N" suffix the tag library adds to repeated frames.
func frameID(key string) string {
	if i := strings.IndexByte(key, '_'); i > 0 {
		return key[:i]
	}
	return key
}

func frameEntry(id string, v interface{}) media.Entry {
	switch val := v.(type) {
	case *tag.Comm:
		switch id {
		case "TXXX", "TXX":
			return media.TextInformation{ID: id, Description: val.Description, Value: val.Text}
		case "WXXX", "WXX":
			return media.URLLink{ID: id, Description: val.Description, URL: val.Text}
		case "COMM", "COM":
			return media.Comment{Language: val.Language, Description: val.Description, Text: val.Text}
		}
	case string:
		switch {
		case id[0] == 'T':
			return media.TextInformation{ID: id, Value: val}
		case id[0] == 'W':
			return media.URLLink{ID: id, URL: val}
		}
	}
	return nil
}
