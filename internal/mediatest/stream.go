package mediatest

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile stores data under a fresh temporary directory and returns the
// file path.
func WriteFile(t testing.TB, name string, data []byte) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// ErrTemporary reports itself as temporary, like a stalled network read.
type ErrTemporary struct{}

func (ErrTemporary) Error() string   { return "data not available yet" }
func (ErrTemporary) Temporary() bool { return true }

// Stream serves data from memory. It can stall a number of reads with
// ErrTemporary, and records whether it was closed.
type Stream struct {
	mu     sync.Mutex
	r      *bytes.Reader
	size   int64
	stalls int

	closed atomic.Bool
}

func NewStream(data []byte) *Stream {
	return &Stream{r: bytes.NewReader(data), size: int64(len(data))}
}

// Stall makes the next n reads fail with ErrTemporary.
func (s *Stream) Stall(n int) *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stalls = n
	return s
}

func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stalls > 0 {
		s.stalls--
		return 0, ErrTemporary{}
	}
	return s.r.Read(p)
}

func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Seek(offset, whence)
}

func (s *Stream) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Stream) Size() int64 { return s.size }

// Closed reports whether Close was called.
func (s *Stream) Closed() bool { return s.closed.Load() }

// Stalled reports how many stalls are still pending.
func (s *Stream) Stalled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stalls
}
