package router

import (
	"sort"

	terrors "github.com/vango-dev/transit/internal/errors"
)

// Positional weights used by Score. Each segment position is one base-4
// digit, leftmost most significant, so ranking compares segment kinds from
// the left exactly like a static-first radix walk does.
const (
	weightStatic   = 3
	weightDynamic  = 2
	weightCatchAll = 1

	scoredSegments = 24
)

// Score returns the specificity score of a pattern. Static > dynamic >
// catch-all, decided at the first position where two patterns differ.
// Only the first 24 segments are scored; deeper ties fall back to segment
// count and path.
func Score(segs []Segment) int64 {
	var score int64
	for i := 0; i < scoredSegments; i++ {
		score *= 4
		if i >= len(segs) {
			continue
		}
		switch segs[i].Kind {
		case SegmentStatic:
			score += weightStatic
		case SegmentDynamic:
			score += weightDynamic
		case SegmentCatchAll:
			score += weightCatchAll
		}
	}
	return score
}

// SortBySpecificity orders routes by descending score, then by descending
// segment count, then by route path. The order is total so independent
// processes agree without communicating.
func SortBySpecificity(routes []RouteDefinition) {
	sort.SliceStable(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Segments) != len(b.Segments) {
			return len(a.Segments) > len(b.Segments)
		}
		if a.RoutePath != b.RoutePath {
			return a.RoutePath < b.RoutePath
		}
		return a.FilePath < b.FilePath
	})
}

// validateDuplicates fails when two files resolve to the same URL pattern.
func validateDuplicates(routes []RouteDefinition) error {
	byPath := make(map[string]string, len(routes))
	for _, r := range routes {
		if other, ok := byPath[r.RoutePath]; ok {
			first, second := other, r.FilePath
			if second < first {
				first, second = second, first
			}
			return terrors.New("E202").
				WithDetail("both files resolve to " + r.RoutePath).
				WithFiles(first, second)
		}
		byPath[r.RoutePath] = r.FilePath
	}
	return nil
}
