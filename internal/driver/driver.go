// Package driver pumps an extractor into a sink one bounded step at a time.
package driver

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/babelcloud/mediaprobe/internal/sink"
	"github.com/babelcloud/mediaprobe/pkg/extractor"
)

// ErrPrematureEnd is returned when the input ends before the extractor
// completed the track layout.
var ErrPrematureEnd = errors.New("end of input before track information was complete")

// Status is the continuation signal of a step.
type Status int

const (
	// StatusContinue means more work remains and can run immediately.
	StatusContinue Status = iota
	// StatusDone means the track layout is complete.
	StatusDone
	// StatusRetry means the input had no data; run again after a delay.
	StatusRetry
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusRetry:
		return "retry"
	default:
		return "continue"
	}
}

// Loop drives one extractor over one input. It is not safe for concurrent use.
type Loop struct {
	extractor extractor.Extractor
	input     *extractor.Input
	sink      *sink.Sink
	logger    *slog.Logger

	steps   int
	retries int
	done    bool
}

func New(ex extractor.Extractor, in *extractor.Input, s *sink.Sink, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		extractor: ex,
		input:     in,
		sink:      s,
		logger:    logger.With("component", "extraction_driver"),
	}
}

// Step invokes the extractor once. Errors are terminal: the loop must not be
// stepped again after one is returned.
func (l *Loop) Step() (Status, error) {
	if l.done || l.sink.TracksEnded() {
		l.done = true
		return StatusDone, nil
	}

	start := l.input.Position()
	l.steps++
	result, err := l.extractor.ReadNext(l.input, l.sink)
	if err != nil {
		if errors.Is(err, extractor.ErrNotReady) {
			l.retries++
			if serr := l.input.SeekTo(start); serr != nil {
				return StatusContinue, errors.Wrap(serr, "rewind input after short read")
			}
			l.logger.Debug("Input not ready, retry scheduled", "position", start, "retries", l.retries)
			return StatusRetry, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return StatusContinue, errors.Wrapf(ErrPrematureEnd, "at offset %d: %v", l.input.Position(), err)
		}
		return StatusContinue, errors.Wrapf(err, "extract at offset %d", start)
	}

	if l.sink.TracksEnded() {
		l.done = true
		l.logger.Debug("Track information complete", "steps", l.steps, "position", l.input.Position())
		return StatusDone, nil
	}
	if result == extractor.EndOfInput {
		return StatusContinue, errors.Wrapf(ErrPrematureEnd, "after %d steps", l.steps)
	}
	return StatusContinue, nil
}

// Steps returns the number of extractor invocations so far.
func (l *Loop) Steps() int { return l.steps }

// Retries returns how many steps ended with a not-ready input.
func (l *Loop) Retries() int { return l.retries }
