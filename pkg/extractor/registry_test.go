package extractor_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babelcloud/mediaprobe/pkg/extractor"
)

type prefixExtractor struct {
	prefix   []byte
	released *int
}

func (p *prefixExtractor) Sniff(probe []byte) bool { return bytes.HasPrefix(probe, p.prefix) }

func (p *prefixExtractor) ReadNext(*extractor.Input, extractor.Output) (extractor.Result, error) {
	return extractor.EndOfInput, nil
}

func (p *prefixExtractor) Release() error {
	*p.released++
	return nil
}

func prefixEntry(name, mime, prefix string, released *int) extractor.Entry {
	return extractor.Entry{
		Name:              name,
		ContainerMIMEType: mime,
		New: func() extractor.Extractor {
			return &prefixExtractor{prefix: []byte(prefix), released: released}
		},
	}
}

func TestRegistrySelectsFirstMatch(t *testing.T) {
	var released int
	r := extractor.NewRegistry()
	r.MustRegister(prefixEntry("aa", "test/aa", "AA", &released))
	r.MustRegister(prefixEntry("a", "test/a", "A", &released))
	r.MustRegister(prefixEntry("b", "test/b", "B", &released))

	in := extractor.NewInput(bytes.NewReader([]byte("AAxx")), 4)
	ex, entry, err := r.Select(in, 0)
	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Equal(t, "aa", entry.Name)
	assert.Equal(t, 0, released)
	assert.Equal(t, int64(0), in.Position())

	in = extractor.NewInput(bytes.NewReader([]byte("Bxx")), 3)
	_, entry, err = r.Select(in, 0)
	require.NoError(t, err)
	assert.Equal(t, "b", entry.Name)
	assert.Equal(t, 2, released, "rejected candidates are released")
}

func TestRegistrySelectUnrecognized(t *testing.T) {
	var released int
	r := extractor.NewRegistry()
	r.MustRegister(prefixEntry("a", "test/a", "A", &released))

	in := extractor.NewInput(bytes.NewReader([]byte("%PDF-1.4\n")), 9)
	ex, _, err := r.Select(in, 0)
	assert.Nil(t, ex)
	assert.ErrorIs(t, err, extractor.ErrUnrecognized)
	assert.Contains(t, err.Error(), "application/pdf")
	assert.Equal(t, 1, released)
}

func TestRegistrySelectRespectsProbeSize(t *testing.T) {
	var released int
	r := extractor.NewRegistry()
	r.MustRegister(prefixEntry("long", "test/long", "ABCDEF", &released))

	in := extractor.NewInput(bytes.NewReader([]byte("ABCDEF")), 6)
	_, _, err := r.Select(in, 3)
	assert.ErrorIs(t, err, extractor.ErrUnrecognized)
}

func TestRegistryRegister(t *testing.T) {
	var released int
	r := extractor.NewRegistry()
	require.NoError(t, r.Register(prefixEntry("a", "test/a", "A", &released)))
	assert.Error(t, r.Register(prefixEntry("a", "test/other", "A", &released)))
	assert.Error(t, r.Register(extractor.Entry{Name: "nofactory"}))

	e, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "test/a", e.ContainerMIMEType)
	_, ok = r.Lookup("missing")
	assert.False(t, ok)

	name, ok := r.NameForMIME("test/a")
	require.True(t, ok)
	assert.Equal(t, "a", name)

	assert.Len(t, r.Entries(), 1)
	assert.Panics(t, func() { r.MustRegister(prefixEntry("a", "test/a", "A", &released)) })
}

type endExtractor struct {
	prefixExtractor
	atEnd *bool
}

func (e *endExtractor) SniffEnd(probe []byte, atEnd bool) bool {
	*e.atEnd = atEnd
	return true
}

func TestRegistrySelectReportsEndOfInput(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		length     int64
		probeBytes int
		want       bool
	}{
		{name: "probe shorter than limit", data: []byte("short"), length: 5, probeBytes: 16, want: true},
		{name: "probe cut at limit", data: bytes.Repeat([]byte{1}, 32), length: 32, probeBytes: 16, want: false},
		{name: "probe exactly covers input", data: bytes.Repeat([]byte{1}, 16), length: 16, probeBytes: 16, want: true},
		{name: "unknown length at limit", data: bytes.Repeat([]byte{1}, 16), length: -1, probeBytes: 16, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var atEnd bool
			var released int
			r := extractor.NewRegistry()
			r.MustRegister(extractor.Entry{
				Name:              "end",
				ContainerMIMEType: "test/end",
				New: func() extractor.Extractor {
					return &endExtractor{prefixExtractor: prefixExtractor{released: &released}, atEnd: &atEnd}
				},
			})

			in := extractor.NewInput(bytes.NewReader(tt.data), tt.length)
			_, _, err := r.Select(in, tt.probeBytes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, atEnd)
		})
	}
}
