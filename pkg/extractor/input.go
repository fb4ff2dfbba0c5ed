package extractor

import (
	"io"

	"github.com/pkg/errors"
)

type temporary interface {
	Temporary() bool
}

// Input is the seekable byte stream an extractor reads from. Temporary read
// failures of the underlying stream are reported as ErrNotReady.
type Input struct {
	r      io.ReadSeeker
	pos    int64
	length int64
}

// NewInput wraps r. length is the total size in bytes, or -1 when unknown.
func NewInput(r io.ReadSeeker, length int64) *Input {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		pos = 0
	}
	return &Input{r: r, pos: pos, length: length}
}

func (in *Input) Read(p []byte) (int, error) {
	n, err := in.r.Read(p)
	in.pos += int64(n)
	return n, translate(err)
}

func (in *Input) Seek(offset int64, whence int) (int64, error) {
	pos, err := in.r.Seek(offset, whence)
	if err != nil {
		return in.pos, translate(err)
	}
	in.pos = pos
	return pos, nil
}

// Position returns the current read offset.
func (in *Input) Position() int64 { return in.pos }

// Length returns the input size, or -1 when unknown.
func (in *Input) Length() int64 { return in.length }

// SeekTo moves to an absolute offset.
func (in *Input) SeekTo(pos int64) error {
	_, err := in.Seek(pos, io.SeekStart)
	return err
}

// Skip advances n bytes without reading them.
func (in *Input) Skip(n int64) error {
	_, err := in.Seek(n, io.SeekCurrent)
	return err
}

// ReadFull reads exactly len(p) bytes.
func (in *Input) ReadFull(p []byte) error {
	_, err := io.ReadFull(in, p)
	return err
}

// Peek returns up to n bytes from the current position without consuming
// them. A short result is not an error when the input ends early.
func (in *Input) Peek(n int) ([]byte, error) {
	start := in.pos
	buf := make([]byte, n)
	read, err := io.ReadFull(in, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		_ = in.SeekTo(start)
		return nil, err
	}
	if err := in.SeekTo(start); err != nil {
		return nil, errors.Wrap(err, "rewind after peek")
	}
	return buf[:read], nil
}

// AtEnd reports whether no more bytes can be read.
func (in *Input) AtEnd() (bool, error) {
	if in.length >= 0 {
		return in.pos >= in.length, nil
	}
	b, err := in.Peek(1)
	if err != nil {
		return false, err
	}
	return len(b) == 0, nil
}

func translate(err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	if errors.Is(err, ErrNotReady) {
		return err
	}
	var t temporary
	if errors.As(err, &t) && t.Temporary() {
		return errors.Wrap(ErrNotReady, err.Error())
	}
	return err
}
