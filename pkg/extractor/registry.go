package extractor

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/vishalkuo/bimap"

	"github.com/babelcloud/mediaprobe/internal/util"
)

// DefaultProbeBytes is the prefix size handed to Sniff when the caller does
// not choose one.
const DefaultProbeBytes = 64 * 1024

// Entry registers one container format.
type Entry struct {
	Name              string
	ContainerMIMEType string
	New               Factory
}

// Registry holds extractor entries in priority order.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	mimes   *bimap.BiMap[string, string]
	logger  *slog.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		mimes:  bimap.NewBiMap[string, string](),
		logger: slog.With("component", "extractor_registry"),
	}
}

// Register appends an entry with the lowest priority so far.
func (r *Registry) Register(e Entry) error {
	if e.Name == "" || e.New == nil {
		return fmt.Errorf("extractor entry needs a name and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mimes.Exists(e.Name) {
		return fmt.Errorf("extractor %q already registered", e.Name)
	}
	r.entries = append(r.entries, e)
	r.mimes.Insert(e.Name, e.ContainerMIMEType)
	return nil
}

// MustRegister panics if Register fails.
func (r *Registry) MustRegister(e Entry) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

// Entries returns the entries in priority order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entry(nil), r.entries...)
}

// Lookup finds an entry by name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// NameForMIME returns the extractor registered for a container MIME type.
func (r *Registry) NameForMIME(mimeType string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mimes.GetInverse(mimeType)
}

// Select sniffs up to probeBytes from the current position of in and returns
// a new instance of the first matching extractor. The input is left at the
// position it had on entry.
func (r *Registry) Select(in *Input, probeBytes int) (Extractor, Entry, error) {
	if probeBytes <= 0 {
		probeBytes = DefaultProbeBytes
	}
	probe, err := in.Peek(probeBytes)
	if err != nil {
		return nil, Entry{}, errors.Wrap(err, "read probe prefix")
	}

	atEnd := len(probe) < probeBytes
	if n := in.Length(); n >= 0 && in.Position()+int64(len(probe)) >= n {
		atEnd = true
	}

	for _, e := range r.Entries() {
		ex := e.New()
		if Sniff(ex, probe, atEnd) {
			r.logger.Debug("Extractor selected", "name", e.Name, "probe_bytes", len(probe))
			return ex, e, nil
		}
		if err := ex.Release(); err != nil {
			r.logger.Warn("Failed to release rejected extractor", "name", e.Name, util.ErrAttr(err))
		}
	}

	detected := mimetype.Detect(probe)
	return nil, Entry{}, errors.Wrapf(ErrUnrecognized, "%d probe bytes, detected %s", len(probe), detected.String())
}
