// Package resolver turns media references into seekable byte streams.
package resolver

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/babelcloud/mediaprobe/pkg/media"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrUnavailable       = errors.New("resource unavailable")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrInvalidReference  = errors.New("invalid media reference")
)

// Stream is an opened resource.
type Stream interface {
	io.ReadSeeker
	io.Closer
}

// Sized is implemented by streams that know their total length.
type Sized interface {
	Size() int64
}

// Resolver opens the resource a reference points to.
type Resolver interface {
	Open(ctx context.Context, ref media.Reference) (Stream, error)
}

// Func adapts a function to Resolver.
type Func func(ctx context.Context, ref media.Reference) (Stream, error)

func (f Func) Open(ctx context.Context, ref media.Reference) (Stream, error) {
	return f(ctx, ref)
}

// Mux dispatches on the reference scheme. Plain paths use the "" scheme.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Resolver
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[string]Resolver)}
}

// Default handles plain paths, file:// and asset:// below assetRoot.
func Default(assetRoot string) *Mux {
	m := NewMux()
	m.Handle("", File{})
	m.Handle("file", File{})
	m.Handle("asset", Asset{Root: assetRoot})
	return m
}

// Handle registers r for scheme, replacing any previous resolver.
func (m *Mux) Handle(scheme string, r Resolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[strings.ToLower(scheme)] = r
}

func (m *Mux) Open(ctx context.Context, ref media.Reference) (Stream, error) {
	if ref.IsZero() {
		return nil, ErrInvalidReference
	}
	m.mu.RLock()
	r, ok := m.handlers[ref.Scheme()]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedScheme, "%q", ref.Scheme())
	}
	return r.Open(ctx, ref)
}

// File opens local files.
type File struct{}

func (File) Open(ctx context.Context, ref media.Reference) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := ref.Path()
	if ref.Scheme() == "file" && ref.Host() != "" && ref.Host() != "localhost" {
		return nil, errors.Wrapf(ErrUnsupportedScheme, "remote file host %q", ref.Host())
	}
	return openFile(path)
}

// assetNamespace is the conventional authority of asset URIs. It names the
// asset tree itself, not a directory below Root.
const assetNamespace = "android_asset"

// Asset opens files below Root. References may not escape Root.
//
// The path of asset:///dir/x is dir/x. Any other host is taken as the first
// path segment, so asset://dir/x opens the same file, except for the
// android_asset namespace, which is dropped both as host and as leading path
// segment: asset://android_asset/x and asset:///android_asset/x open x.
type Asset struct {
	Root string
}

func (a Asset) Open(ctx context.Context, ref media.Reference) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.Root == "" {
		return nil, errors.Wrap(ErrUnavailable, "no asset root configured")
	}
	host := ref.Host()
	if host == assetNamespace {
		host = ""
	}
	p := strings.TrimPrefix(ref.Path(), "/")
	if host == "" {
		if rest, ok := strings.CutPrefix(p, assetNamespace+"/"); ok {
			p = rest
		}
	}
	rel := filepath.Join(host, filepath.FromSlash(p))
	rel = strings.TrimPrefix(filepath.Clean(string(filepath.Separator)+rel), string(filepath.Separator))
	if rel == "" || rel == "." {
		return nil, errors.Wrapf(ErrNotFound, "asset %s", ref)
	}
	return openFile(filepath.Join(a.Root, rel))
}

type file struct {
	*os.File
	size int64
}

func (f *file) Size() int64 { return f.size }

func openFile(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classify(err, path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, classify(err, path)
	}
	if info.IsDir() {
		f.Close()
		return nil, errors.Wrapf(ErrNotFound, "%s is a directory", path)
	}
	return &file{File: f, size: info.Size()}, nil
}

func classify(err error, path string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.Wrapf(ErrNotFound, "%s: %v", path, err)
	case errors.Is(err, fs.ErrPermission):
		return errors.Wrapf(ErrPermissionDenied, "%s: %v", path, err)
	default:
		return errors.Wrapf(ErrUnavailable, "%s: %v", path, err)
	}
}
