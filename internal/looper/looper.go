// Package looper runs posted work items one at a time on a dedicated
// goroutine, in submission order.
package looper

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dchest/uniuri"
	"k8s.io/utils/clock"
)

// Looper is a single-goroutine work queue with delayed posting.
type Looper struct {
	name   string
	clock  clock.WithDelayedExecution
	logger *slog.Logger

	mu       sync.Mutex
	queue    []func()
	timers   map[int]clock.Timer
	nextID   int
	quitting bool

	wake chan struct{}
	done chan struct{}
}

// New starts a looper. A nil clock means wall-clock time.
func New(prefix string, clk clock.WithDelayedExecution, logger *slog.Logger) *Looper {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	name := prefix + "-" + uniuri.NewLen(8)
	l := &Looper{
		name:   name,
		clock:  clk,
		logger: logger.With("component", "looper", "looper", name),
		timers: make(map[int]clock.Timer),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Name identifies the looper in logs.
func (l *Looper) Name() string { return l.name }

// Post enqueues fn. It returns false when the looper is quitting.
func (l *Looper) Post(fn func()) bool {
	l.mu.Lock()
	if l.quitting {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
	return true
}

// PostDelayed enqueues fn once the clock has advanced by d.
func (l *Looper) PostDelayed(fn func(), d time.Duration) bool {
	if d <= 0 {
		return l.Post(fn)
	}
	l.mu.Lock()
	if l.quitting {
		l.mu.Unlock()
		return false
	}
	id := l.nextID
	l.nextID++
	l.timers[id] = nil
	l.mu.Unlock()

	// A fake clock runs the callback under its own lock, so the clock is
	// never called while l.mu is held.
	t := l.clock.AfterFunc(d, func() {
		l.mu.Lock()
		delete(l.timers, id)
		l.mu.Unlock()
		l.Post(fn)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.quitting {
		t.Stop()
		return false
	}
	if _, pending := l.timers[id]; pending {
		l.timers[id] = t
	}
	return true
}

// Quit stops the looper after the item currently running. Queued and delayed
// items are dropped. Quit may be called from a work item.
func (l *Looper) Quit() {
	l.mu.Lock()
	if l.quitting {
		l.mu.Unlock()
		return
	}
	l.quitting = true
	dropped := len(l.queue)
	l.queue = nil
	timers := l.timers
	l.timers = make(map[int]clock.Timer)
	l.mu.Unlock()

	for _, t := range timers {
		if t != nil {
			t.Stop()
		}
	}
	if dropped > 0 || len(timers) > 0 {
		l.logger.Debug("Looper quit with pending work", "queued", dropped, "delayed", len(timers))
	}
	l.signal()
}

// Done is closed once the looper goroutine has exited.
func (l *Looper) Done() <-chan struct{} { return l.done }

// Pending returns the number of queued and delayed items.
func (l *Looper) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) + len(l.timers)
}

func (l *Looper) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Looper) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		if l.quitting {
			l.mu.Unlock()
			return
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			<-l.wake
			continue
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.invoke(fn)
	}
}

func (l *Looper) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Work item panicked", "panic", r)
		}
	}()
	fn()
}
