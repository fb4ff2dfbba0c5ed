package resolver

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babelcloud/mediaprobe/pkg/media"
)

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMuxOpen(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.bin", "hello")
	writeFile(t, dir, "media/b.bin", "asset")
	mux := Default(dir)

	tests := []struct {
		name     string
		ref      string
		expected string
	}{
		{name: "plain path", ref: path, expected: "hello"},
		{name: "file url", ref: "file://" + path, expected: "hello"},
		{name: "localhost file url", ref: "file://localhost" + path, expected: "hello"},
		{name: "asset url", ref: "asset:///media/b.bin", expected: "asset"},
		{name: "asset url with host", ref: "asset://media/b.bin", expected: "asset"},
		{name: "android_asset host", ref: "asset://android_asset/media/b.bin", expected: "asset"},
		{name: "android_asset path segment", ref: "asset:///android_asset/media/b.bin", expected: "asset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := mux.Open(context.Background(), media.MustParseReference(tt.ref))
			require.NoError(t, err)
			defer s.Close()

			b, err := io.ReadAll(s)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(b))

			sized, ok := s.(Sized)
			require.True(t, ok)
			assert.Equal(t, int64(len(tt.expected)), sized.Size())
		})
	}
}

func TestMuxOpenErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "secret.bin", "x")
	mux := Default(filepath.Join(dir, "assets"))

	tests := []struct {
		name     string
		ref      media.Reference
		expected error
	}{
		{name: "missing file", ref: media.MustParseReference(filepath.Join(dir, "missing.mp4")), expected: ErrNotFound},
		{name: "directory", ref: media.MustParseReference(dir), expected: ErrNotFound},
		{name: "unknown scheme", ref: media.MustParseReference("rtsp://host/stream"), expected: ErrUnsupportedScheme},
		{name: "remote file host", ref: media.MustParseReference("file://example.com/a.mp4"), expected: ErrUnsupportedScheme},
		{name: "asset escape", ref: media.MustParseReference("asset:///../secret.bin"), expected: ErrNotFound},
		{name: "asset root", ref: media.MustParseReference("asset:///"), expected: ErrNotFound},
		{name: "zero reference", ref: media.Reference{}, expected: ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := mux.Open(context.Background(), tt.ref)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestAssetWithoutRoot(t *testing.T) {
	_, err := Asset{}.Open(context.Background(), media.MustParseReference("asset:///a.mp4"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := File{}.Open(ctx, media.MustParseReference("/tmp/a.mp4"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFuncAndHandle(t *testing.T) {
	mux := NewMux()
	called := false
	mux.Handle("MEM", Func(func(ctx context.Context, ref media.Reference) (Stream, error) {
		called = true
		return nil, ErrUnavailable
	}))

	_, err := mux.Open(context.Background(), media.MustParseReference("mem://x"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, called)
}
