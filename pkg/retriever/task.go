package retriever

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/babelcloud/mediaprobe/internal/driver"
	"github.com/babelcloud/mediaprobe/internal/looper"
	"github.com/babelcloud/mediaprobe/internal/sink"
	"github.com/babelcloud/mediaprobe/internal/util"
	"github.com/babelcloud/mediaprobe/pkg/extractor"
	"github.com/babelcloud/mediaprobe/pkg/future"
	"github.com/babelcloud/mediaprobe/pkg/media"
	"github.com/babelcloud/mediaprobe/pkg/resolver"
)

// State is the lifecycle position of a retrieval task.
type State int32

const (
	StateCreated State = iota
	StateOpening
	StateProbing
	StateExtracting
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpening:
		return "opening"
	case StateProbing:
		return "probing"
	case StateExtracting:
		return "extracting"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// task is one retrieval. Apart from state and result, its fields are only
// touched from its looper goroutine.
type task struct {
	id     string
	ref    media.Reference
	ctx    context.Context
	cfg    *Retriever
	logger *slog.Logger

	state  atomic.Int32
	result *future.Future[media.TrackGroupArray]
	looper *looper.Looper

	stream    resolver.Stream
	input     *extractor.Input
	extractor extractor.Extractor
	entry     extractor.Entry
	sink      *sink.Sink
	loop      *driver.Loop
	stopWatch func() bool
}

func newTask(ctx context.Context, cfg *Retriever, ref media.Reference) *task {
	id := uuid.New().String()
	return &task{
		id:     id,
		ref:    ref,
		ctx:    ctx,
		cfg:    cfg,
		logger: cfg.logger.With("task_id", id, "ref", ref.String()),
		result: future.New[media.TrackGroupArray](),
	}
}

func (t *task) start() {
	t.looper = looper.New("retrieval", t.cfg.clock, t.logger)
	t.looper.Post(t.open)
}

func (t *task) current() State { return State(t.state.Load()) }

func (t *task) transition(to State) {
	from := t.current()
	if from == to {
		return
	}
	t.state.Store(int32(to))
	t.logger.Debug("Retrieval state changed", "from", from.String(), "to", to.String())
	if t.cfg.stateHook != nil {
		t.cfg.stateHook(t.id, t.ref, from, to)
	}
}

// stopped reports whether the task should do no further work, failing it
// with ErrCancelled when the caller's context has ended.
func (t *task) stopped() bool {
	if t.current().Terminal() {
		return true
	}
	if err := t.ctx.Err(); err != nil {
		t.fail(KindCancelled, err)
		return true
	}
	return false
}

func (t *task) open() {
	t.stopWatch = context.AfterFunc(t.ctx, func() {
		t.looper.Post(t.cancel)
	})
	if t.stopped() {
		return
	}
	t.transition(StateOpening)
	stream, err := t.cfg.resolver.Open(t.ctx, t.ref)
	if err != nil {
		if t.ctx.Err() != nil {
			t.fail(KindCancelled, err)
			return
		}
		t.fail(KindResourceOpen, errors.Wrap(err, "open"))
		return
	}
	t.stream = stream
	t.looper.Post(t.probe)
}

func (t *task) probe() {
	if t.stopped() {
		return
	}
	t.transition(StateProbing)
	if t.input == nil {
		length := int64(-1)
		if s, ok := t.stream.(resolver.Sized); ok {
			length = s.Size()
		}
		t.input = extractor.NewInput(t.stream, length)
	}

	ex, entry, err := t.cfg.registry.Select(t.input, t.cfg.probeBytes)
	switch {
	case err == nil:
	case errors.Is(err, extractor.ErrNotReady):
		t.looper.PostDelayed(t.probe, t.cfg.retryDelay)
		return
	case errors.Is(err, extractor.ErrUnrecognized):
		t.fail(KindFormatUnrecognized, err)
		return
	default:
		t.fail(KindResourceOpen, err)
		return
	}

	t.extractor = ex
	t.entry = entry
	t.sink = sink.New(t.logger)
	t.loop = driver.New(ex, t.input, t.sink, t.logger)
	t.logger.Debug("Extractor selected", "extractor", entry.Name)
	t.transition(StateExtracting)
	t.looper.Post(t.extract)
}

func (t *task) extract() {
	if t.stopped() {
		return
	}
	status, err := t.loop.Step()
	if err != nil {
		t.fail(KindMalformedContainer, errors.Wrap(err, t.entry.Name))
		return
	}
	switch status {
	case driver.StatusDone:
		groups, err := t.sink.TrackGroups()
		if err != nil {
			t.fail(KindMalformedContainer, err)
			return
		}
		t.logger.Debug("Track groups built", "groups", groups.Len(), "steps", t.loop.Steps(),
			"discarded_sample_bytes", t.sink.DiscardedSampleBytes())
		t.finish(StateCompleted, groups, nil)
	case driver.StatusRetry:
		t.looper.PostDelayed(t.extract, t.cfg.retryDelay)
	default:
		t.looper.Post(t.extract)
	}
}

func (t *task) cancel() {
	if t.current().Terminal() {
		return
	}
	t.fail(KindCancelled, t.ctx.Err())
}

func (t *task) fail(kind Kind, cause error) {
	err := newError(kind, t.ref.String(), cause)
	t.logger.Warn("Retrieval failed", "kind", kind.String(), "state", t.current().String(), util.ErrAttr(cause))
	t.finish(StateFailed, media.TrackGroupArray{}, err)
}

// finish releases everything the task holds, stops the looper and publishes
// the result once the looper goroutine has exited.
func (t *task) finish(state State, groups media.TrackGroupArray, err error) {
	if t.current().Terminal() {
		return
	}
	t.transition(state)
	if rerr := t.release(); rerr != nil {
		t.logger.Warn("Failed to release retrieval resources", util.ErrAttr(rerr))
	}
	if t.stopWatch != nil {
		t.stopWatch()
	}
	t.looper.Quit()

	go func() {
		<-t.looper.Done()
		if err != nil {
			t.result.Fail(err)
			return
		}
		t.result.Complete(groups)
	}()
}

func (t *task) release() error {
	var result *multierror.Error
	if t.extractor != nil {
		if err := t.extractor.Release(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "release extractor"))
		}
		t.extractor = nil
	}
	if t.stream != nil {
		if err := t.stream.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "close stream"))
		}
		t.stream = nil
	}
	t.loop = nil
	return result.ErrorOrNil()
}
