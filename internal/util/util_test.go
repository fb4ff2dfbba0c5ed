package util

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	tests := []struct {
		name string
		data []map[string]interface{}
		want []string
	}{
		{
			name: "empty",
			want: []string{"No data to display"},
		},
		{
			name: "widths follow widest cell",
			data: []map[string]interface{}{
				{"index": 0, "mime": "video/avc"},
				{"index": 1, "mime": "audio/mp4a-latm", "extra": "ignored"},
			},
			want: []string{
				"INDEX  MIME",
				"-----  ---------------",
				"0      video/avc",
				"1      audio/mp4a-latm",
			},
		},
		{
			name: "ansi codes are not counted",
			data: []map[string]interface{}{
				{"index": "\033[32m0\033[0m", "mime": "image/heic"},
			},
			want: []string{
				"INDEX  MIME",
				"-----  ----------",
				"\033[32m0\033[0m      image/heic",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			columns := []TableColumn{
				{Header: "INDEX", Key: "index"},
				{Header: "MIME", Key: "mime"},
			}
			RenderTable(&buf, columns, tt.data)
			got := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitLoggerTo(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitLoggerTo(&buf, false)
	GetLogger().Debug("hidden")
	GetLogger().Info("shown", "component", "test")
	assert.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "component=test")

	buf.Reset()
	InitLoggerTo(&buf, true)
	slog.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestErrAttr(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	err := errors.Wrap(errors.New("stream closed"), "read header")
	l.Warn("failed", ErrAttr(err))
	l.Warn("nothing", ErrAttr(nil))

	out := buf.String()
	assert.Contains(t, out, `error="read header: stream closed"`)
	assert.Contains(t, out, `error=<nil>`)
	assert.NotContains(t, out, ".go:", "stack trace leaked into log line")
}
