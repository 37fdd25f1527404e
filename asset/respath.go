package asset

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Path segment wildcards.
const (
	// AnyDepth matches zero or more directories.
	AnyDepth = "?"

	// OneDir matches exactly one directory.
	OneDir = "*"
)

// NamespaceAsset is the first segment of paths served from the read-only
// asset root. Models under it must be signed.
const NamespaceAsset = "_asset"

// ErrInvalidPath is returned by ParsePath for malformed paths.
var ErrInvalidPath = errors.New("asset: invalid path")

// ResPath is a parsed logical resource path such as
// "_asset/image/brick.png" or "?/brick.png".
//
// Both '/' and '\' separate segments. Segments are NFC normalized so that
// canonical strings compare equal regardless of how the name was typed.
// The zero value is an empty, invalid path.
type ResPath struct {
	segs []string
}

// ParsePath parses and validates a logical path.
//
// Consecutive wildcards are collapsed: "?/?" and "?/*" become "?", and
// "*/?" becomes "?". The last segment must be a file name, not a wildcard.
func ParsePath(s string) (ResPath, error) {
	raw := strings.FieldsFunc(norm.NFC.String(s), func(r rune) bool {
		return r == '/' || r == '\\'
	})
	if len(raw) == 0 {
		return ResPath{}, fmt.Errorf("%w: %q is empty", ErrInvalidPath, s)
	}

	segs := make([]string, 0, len(raw))
	for _, seg := range raw {
		if !isWildcard(seg) {
			if err := checkSegment(seg); err != nil {
				return ResPath{}, fmt.Errorf("%w: %q: %w", ErrInvalidPath, s, err)
			}
			segs = append(segs, seg)
			continue
		}

		n := len(segs)
		switch {
		case n > 0 && segs[n-1] == AnyDepth:
			// "?" absorbs any following wildcard.
		case n > 0 && segs[n-1] == OneDir && seg == AnyDepth:
			segs[n-1] = AnyDepth
		default:
			segs = append(segs, seg)
		}
	}

	if isWildcard(segs[len(segs)-1]) {
		return ResPath{}, fmt.Errorf("%w: %q ends with a wildcard", ErrInvalidPath, s)
	}
	return ResPath{segs: segs}, nil
}

// MustParsePath is like ParsePath but panics on error.
func MustParsePath(s string) ResPath {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the canonical form, segments joined with '/'.
func (p ResPath) String() string {
	return strings.Join(p.segs, "/")
}

// Segments returns a copy of the path segments.
func (p ResPath) Segments() []string {
	return append([]string(nil), p.segs...)
}

// IsValid reports whether p came from a successful parse.
func (p ResPath) IsValid() bool {
	return len(p.segs) > 0
}

// Namespace returns the first segment.
func (p ResPath) Namespace() string {
	if len(p.segs) == 0 {
		return ""
	}
	return p.segs[0]
}

// IsProtected reports whether p lives in the signed asset namespace.
func (p ResPath) IsProtected() bool {
	return p.Namespace() == NamespaceAsset
}

// HasWildcard reports whether any segment is a wildcard.
func (p ResPath) HasWildcard() bool {
	for _, s := range p.segs {
		if isWildcard(s) {
			return true
		}
	}
	return false
}

// Dir returns the path without its file name, or "" for single-segment paths.
func (p ResPath) Dir() string {
	if len(p.segs) < 2 {
		return ""
	}
	return strings.Join(p.segs[:len(p.segs)-1], "/")
}

// Base returns the file name.
func (p ResPath) Base() string {
	if len(p.segs) == 0 {
		return ""
	}
	return p.segs[len(p.segs)-1]
}

func isWildcard(seg string) bool {
	return seg == AnyDepth || seg == OneDir
}

func checkSegment(seg string) error {
	if seg == "." || seg == ".." {
		return fmt.Errorf("relative segment %q", seg)
	}
	if i := strings.IndexAny(seg, `:<>"|?*`+"\x00"); i >= 0 {
		return fmt.Errorf("segment %q contains %q", seg, seg[i])
	}
	return nil
}
