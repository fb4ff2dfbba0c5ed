// Package retriever reads the track layout of media resources without
// playing them. Each retrieval runs on its own worker goroutine and reports
// through a future.
package retriever

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/babelcloud/mediaprobe/pkg/extractor"
	"github.com/babelcloud/mediaprobe/pkg/extractor/defaults"
	"github.com/babelcloud/mediaprobe/pkg/future"
	"github.com/babelcloud/mediaprobe/pkg/media"
	"github.com/babelcloud/mediaprobe/pkg/resolver"
)

// DefaultRetryDelay is how long a task waits before reading again from an
// input that reported it had no data.
const DefaultRetryDelay = 10 * time.Millisecond

// StateHook observes task state transitions. It runs on the task's worker
// goroutine and must not block.
type StateHook func(taskID string, ref media.Reference, from, to State)

// Retriever starts retrieval tasks. It holds configuration only and is safe
// for concurrent use.
type Retriever struct {
	registry   *extractor.Registry
	resolver   resolver.Resolver
	clock      clock.WithDelayedExecution
	logger     *slog.Logger
	probeBytes int
	retryDelay time.Duration
	stateHook  StateHook
}

type Option func(*Retriever)

func WithRegistry(reg *extractor.Registry) Option {
	return func(r *Retriever) { r.registry = reg }
}

func WithResolver(res resolver.Resolver) Option {
	return func(r *Retriever) { r.resolver = res }
}

// WithClock sets the clock used for delayed rescheduling.
func WithClock(clk clock.WithDelayedExecution) Option {
	return func(r *Retriever) { r.clock = clk }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) { r.logger = logger }
}

func WithProbeBytes(n int) Option {
	return func(r *Retriever) { r.probeBytes = n }
}

func WithRetryDelay(d time.Duration) Option {
	return func(r *Retriever) { r.retryDelay = d }
}

func WithStateHook(h StateHook) Option {
	return func(r *Retriever) { r.stateHook = h }
}

func New(opts ...Option) *Retriever {
	r := &Retriever{
		registry:   defaults.Registry(),
		resolver:   resolver.Default(""),
		clock:      clock.RealClock{},
		logger:     slog.Default(),
		probeBytes: extractor.DefaultProbeBytes,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "retriever")
	return r
}

// Retrieve starts a retrieval for ref and returns its future. Cancelling ctx
// ends the task early with ErrCancelled; resources are released either way.
func (r *Retriever) Retrieve(ctx context.Context, ref media.Reference) *future.Future[media.TrackGroupArray] {
	t := newTask(ctx, r, ref)
	t.start()
	return t.result
}

// RetrieveURI parses s and retrieves it. A reference that does not parse
// fails the future with ErrResourceOpen.
func (r *Retriever) RetrieveURI(ctx context.Context, s string) *future.Future[media.TrackGroupArray] {
	ref, err := media.ParseReference(s)
	if err != nil {
		f := future.New[media.TrackGroupArray]()
		f.Fail(newError(KindResourceOpen, s, err))
		return f
	}
	return r.Retrieve(ctx, ref)
}

var defaultRetriever = sync.OnceValue(func() *Retriever { return New() })

// Retrieve uses a Retriever with default settings.
func Retrieve(ctx context.Context, ref media.Reference) *future.Future[media.TrackGroupArray] {
	return defaultRetriever().Retrieve(ctx, ref)
}
