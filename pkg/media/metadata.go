package media

import (
	"fmt"
	"strings"
)

// Entry is one piece of side metadata attached to a Format. Implementations
// are small comparable value types.
type Entry interface {
	fmt.Stringer
	entry()
}

// MotionPhoto locates the still image and the embedded video of a motion
// photo file. All values are byte offsets or lengths in the file.
type MotionPhoto struct {
	PhotoStartPosition int64
	PhotoSize          int64
	VideoStartPosition int64
	VideoSize          int64
}

func (MotionPhoto) entry() {}

func (m MotionPhoto) String() string {
	return fmt.Sprintf("Motion photo: photoStartPosition=%d, photoSize=%d, videoStartPosition=%d, videoSize=%d",
		m.PhotoStartPosition, m.PhotoSize, m.VideoStartPosition, m.VideoSize)
}

// TextInformation is an ID3 text frame (Txxx, or TXXX with a description).
type TextInformation struct {
	ID          string
	Description string
	Value       string
}

func (TextInformation) entry() {}

func (t TextInformation) String() string {
	if t.Description != "" {
		return fmt.Sprintf("%s: description=%s: value=%s", t.ID, t.Description, t.Value)
	}
	return fmt.Sprintf("%s: value=%s", t.ID, t.Value)
}

// Comment is an ID3 COMM frame.
type Comment struct {
	Language    string
	Description string
	Text        string
}

func (Comment) entry() {}

func (c Comment) String() string {
	return fmt.Sprintf("COMM: language=%s, description=%s, text=%s", c.Language, c.Description, c.Text)
}

// URLLink is an ID3 Wxxx or WXXX frame.
type URLLink struct {
	ID          string
	Description string
	URL         string
}

func (URLLink) entry() {}

func (u URLLink) String() string {
	return fmt.Sprintf("%s: url=%s", u.ID, u.URL)
}

// Metadata is an immutable ordered list of entries.
type Metadata struct {
	entries []Entry
}

// NewMetadata returns nil when no entries are given, so a format without side
// metadata never carries an empty list.
func NewMetadata(entries ...Entry) *Metadata {
	if len(entries) == 0 {
		return nil
	}
	return &Metadata{entries: append([]Entry(nil), entries...)}
}

// Len returns the number of entries. A nil Metadata has length zero.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Get returns the entry at index i.
func (m *Metadata) Get(i int) Entry {
	return m.entries[i]
}

// Entries returns a copy of the entries.
func (m *Metadata) Entries() []Entry {
	if m == nil {
		return nil
	}
	return append([]Entry(nil), m.entries...)
}

// Equal reports whether both lists hold equal entries in the same order.
func (m *Metadata) Equal(other *Metadata) bool {
	if m.Len() != other.Len() {
		return false
	}
	for i := 0; i < m.Len(); i++ {
		if m.entries[i] != other.entries[i] {
			return false
		}
	}
	return true
}

func (m *Metadata) String() string {
	if m.Len() == 0 {
		return "entries=[]"
	}
	parts := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		parts = append(parts, e.String())
	}
	return "entries=[" + strings.Join(parts, ", ") + "]"
}
