// Package path parses and manipulates escaped JSON-pointer OIDs: an ordered
// sequence of segments, each either a string component or an unsigned array
// index, with a sentinel End denoting "one past the end" (array append).
package path

import (
	"strconv"
	"strings"

	"github.com/stepherg/catenago/internal/status"
)

// End signals the one-past-the-end array index, used for append targets.
const End = ^uint64(0)

// Segment is either a string OID component or an array index. Exactly one
// of the two is meaningful; IsIndex reports which.
type Segment struct {
	str     string
	idx     uint64
	isIndex bool
}

func StringSegment(s string) Segment { return Segment{str: s} }
func IndexSegment(i uint64) Segment  { return Segment{idx: i, isIndex: true} }

func (s Segment) IsIndex() bool { return s.isIndex }
func (s Segment) String() string {
	if s.isIndex {
		if s.idx == End {
			return "-"
		}
		return strconv.FormatUint(s.idx, 10)
	}
	return s.str
}
func (s Segment) Index() uint64 { return s.idx }

// Path is an ordered sequence of segments parsed from an escaped JSON
// pointer of the form /seg(/seg)*.
type Path struct {
	segments []Segment
}

// Parse constructs a Path from an escaped JSON pointer string. Parsing
// fails with INVALID_ARGUMENT on empty input, a missing leading slash, an
// empty segment, a segment starting with a digit that isn't a pure number,
// or illegal characters.
func Parse(s string) (*Path, error) {
	if s == "" {
		return nil, status.New("path must not be empty", status.INVALID_ARGUMENT)
	}
	if s[0] != '/' {
		return nil, status.New("path must start with '/'", status.INVALID_ARGUMENT)
	}
	raw := strings.Split(s[1:], "/")
	segs := make([]Segment, 0, len(raw))
	for _, r := range raw {
		if r == "" {
			return nil, status.New("path must not contain empty segments", status.INVALID_ARGUMENT)
		}
		seg, err := parseSegment(r)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return &Path{segments: segs}, nil
}

// MustParse is a convenience wrapper that panics on a malformed path,
// mirroring the original C++ SDK's `_path` user-defined literal: a concise
// way to write known-good literal paths in code and tests.
func MustParse(s string) *Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(raw string) (Segment, error) {
	unescaped := unescape(raw)
	if unescaped == "-" {
		return IndexSegment(End), nil
	}
	if isDigit(unescaped[0]) {
		n, err := strconv.ParseUint(unescaped, 10, 64)
		if err != nil {
			return Segment{}, status.New("segment looks numeric but isn't a valid index: "+unescaped, status.INVALID_ARGUMENT)
		}
		return IndexSegment(n), nil
	}
	if !validOidStart(unescaped[0]) {
		return Segment{}, status.New("illegal character starting segment: "+unescaped, status.INVALID_ARGUMENT)
	}
	// '/' and '~' can only appear here as the unescaped form of ~1 and ~0.
	for i := 1; i < len(unescaped); i++ {
		if c := unescaped[i]; !validOidChar(c) && c != '/' && c != '~' {
			return Segment{}, status.New("illegal character in segment: "+unescaped, status.INVALID_ARGUMENT)
		}
	}
	return StringSegment(unescaped), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func validOidStart(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '_'
}
func validOidChar(b byte) bool {
	return validOidStart(b) || isDigit(b)
}

// escape replaces '~' with "~0" and '/' with "~1", per RFC 6901.
func escape(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}

// unescape is escape's inverse: "~1" -> '/' , then "~0" -> '~'.
func unescape(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	s = strings.ReplaceAll(s, "~0", "~")
	return s
}

// FQOID returns the canonical escaped-JSON-pointer string for the path.
func (p *Path) FQOID() string {
	var b strings.Builder
	for _, s := range p.segments {
		b.WriteByte('/')
		if s.isIndex {
			b.WriteString(s.String())
		} else {
			b.WriteString(escape(s.str))
		}
	}
	return b.String()
}

// Size returns the number of remaining segments.
func (p *Path) Size() int { return len(p.segments) }

// FrontIsString reports whether the path is non-empty and its first segment
// is a string OID component.
func (p *Path) FrontIsString() bool {
	return len(p.segments) > 0 && !p.segments[0].isIndex
}

// FrontIsIndex reports whether the path is non-empty and its first segment
// is an array index (including End).
func (p *Path) FrontIsIndex() bool {
	return len(p.segments) > 0 && p.segments[0].isIndex
}

// Pop removes and returns the first segment. The zero Segment is returned
// if the path is empty.
func (p *Path) Pop() Segment {
	if len(p.segments) == 0 {
		return Segment{}
	}
	s := p.segments[0]
	p.segments = p.segments[1:]
	return s
}

// Segments returns a copy of the remaining segment slice.
func (p *Path) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Clone returns an independent copy of the path, safe to Pop without
// affecting the original.
func (p *Path) Clone() *Path {
	return &Path{segments: p.Segments()}
}

// Equal reports whether two paths have identical segments in the same
// order.
func (p *Path) Equal(o *Path) bool {
	if o == nil || len(p.segments) != len(o.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != o.segments[i] {
			return false
		}
	}
	return true
}
