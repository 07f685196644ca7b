package hdkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidPathSyntax reports text that does not match m(/i'?)*.
	ErrInvalidPathSyntax = errors.New("invalid derivation path syntax")

	// ErrIndexOutOfRange reports a path index that does not fit in 31
	// bits before the hardened flag is applied.
	ErrIndexOutOfRange = errors.New("path index does not fit in 31 bits")
)

// Segment is one step in a derivation path.
type Segment struct {
	Child    uint32 // index without the hardened bit
	Hardened bool
}

// Index returns the wire index with the hardened bit applied.
func (s Segment) Index() uint32 {
	if s.Hardened {
		return s.Child + HardenedOffset
	}
	return s.Child
}

// String renders the segment in path notation, e.g. 44'.
func (s Segment) String() string {
	if s.Hardened {
		return fmt.Sprintf("%d'", s.Child)
	}
	return strconv.FormatUint(uint64(s.Child), 10)
}

// Path is an ordered sequence of derivation segments.
type Path []Segment

// String renders the full path, e.g. m/44'/60'/0'/0/0.
func (p Path) String() string {
	var sb strings.Builder
	sb.WriteByte('m')
	for _, seg := range p {
		sb.WriteByte('/')
		sb.WriteString(seg.String())
	}
	return sb.String()
}

// ParsePath parses text of the form m/44'/60'/0'/0/0. Both ' and h
// mark a hardened segment, and an uppercase M prefix is accepted as an
// alias of m. A bare "m" yields the empty path (the master key).
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPathSyntax)
	}
	if s[0] != 'm' && s[0] != 'M' {
		return nil, fmt.Errorf("%w: path must start with 'm'", ErrInvalidPathSyntax)
	}

	rest := s[1:]
	if rest == "" {
		return Path{}, nil
	}
	if rest[0] != '/' {
		return nil, fmt.Errorf("%w: expected '/' after 'm'", ErrInvalidPathSyntax)
	}
	rest = rest[1:]
	if rest == "" {
		return nil, fmt.Errorf("%w: trailing '/'", ErrInvalidPathSyntax)
	}

	parts := strings.Split(rest, "/")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: empty segment", ErrInvalidPathSyntax)
		}

		seg := Segment{}
		digits := part
		if last := part[len(part)-1]; last == '\'' || last == 'h' {
			seg.Hardened = true
			digits = part[:len(part)-1]
		}
		if digits == "" {
			return nil, fmt.Errorf("%w: segment %q", ErrInvalidPathSyntax, part)
		}
		for _, c := range digits {
			if c < '0' || c > '9' {
				return nil, fmt.Errorf("%w: segment %q", ErrInvalidPathSyntax, part)
			}
		}

		idx, err := strconv.ParseUint(digits, 10, 32)
		if err != nil || idx >= uint64(HardenedOffset) {
			return nil, fmt.Errorf("%w: %q", ErrIndexOutOfRange, part)
		}
		seg.Child = uint32(idx)
		path = append(path, seg)
	}
	return path, nil
}
