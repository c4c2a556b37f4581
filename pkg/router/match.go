package router

import (
	"strings"

	"github.com/vango-dev/transit/pkg/routepath"
)

// Routable is anything that carries a route pattern.
type Routable interface {
	RouteSegments() []Segment
}

// MatchResult is a matched route with its decoded parameters.
type MatchResult[T Routable] struct {
	Route  T
	Params map[string]string
}

// Match returns the first candidate, in the given order, whose pattern
// matches pathname, or nil. Candidates are expected to be rank-sorted; there
// is no backtracking across routes. Each raw segment is percent-decoded once
// before comparison; a path with an undecodable segment matches nothing.
//
// The server and the client runtime both call this function, so any change
// here changes routing on both sides.
func Match[T Routable](candidates []T, pathname string) *MatchResult[T] {
	if i := strings.IndexAny(pathname, "?#"); i >= 0 {
		pathname = pathname[:i]
	}
	raw := routepath.SplitSegments(pathname)
	parts := make([]string, len(raw))
	for i, r := range raw {
		d, err := routepath.DecodeSegment(r)
		if err != nil {
			return nil
		}
		parts[i] = d
	}

	for _, c := range candidates {
		if params, ok := matchSegments(c.RouteSegments(), parts); ok {
			return &MatchResult[T]{Route: c, Params: params}
		}
	}
	return nil
}

// matchSegments matches decoded path parts against one pattern.
func matchSegments(pattern []Segment, parts []string) (map[string]string, bool) {
	params := make(map[string]string)
	for i, seg := range pattern {
		switch seg.Kind {
		case SegmentCatchAll:
			if i >= len(parts) {
				return nil, false
			}
			params[seg.Value] = strings.Join(parts[i:], "/")
			return params, true
		case SegmentDynamic:
			if i >= len(parts) {
				return nil, false
			}
			params[seg.Value] = parts[i]
		default:
			if i >= len(parts) || parts[i] != seg.Value {
				return nil, false
			}
		}
	}
	if len(pattern) != len(parts) {
		return nil, false
	}
	return params, true
}
