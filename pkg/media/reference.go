package media

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Reference locates a byte-addressable media resource. The zero value is not
// a valid reference.
type Reference struct {
	raw    string
	scheme string
	host   string
	path   string
}

// ParseReference parses a URI such as file:///tmp/a.mp4 or asset:///x.heic,
// or a plain filesystem path.
func ParseReference(s string) (Reference, error) {
	if s == "" {
		return Reference{}, fmt.Errorf("empty media reference")
	}
	if !strings.Contains(s, "://") {
		return Reference{raw: s, path: filepath.Clean(s)}, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return Reference{}, fmt.Errorf("invalid media reference %q: %w", s, err)
	}
	return Reference{
		raw:    s,
		scheme: strings.ToLower(u.Scheme),
		host:   u.Host,
		path:   u.Path,
	}, nil
}

// MustParseReference is like ParseReference but panics on error.
func MustParseReference(s string) Reference {
	ref, err := ParseReference(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// Scheme is empty for plain paths.
func (r Reference) Scheme() string { return r.scheme }

func (r Reference) Host() string { return r.host }

func (r Reference) Path() string { return r.path }

func (r Reference) IsZero() bool { return r.raw == "" }

func (r Reference) String() string { return r.raw }
