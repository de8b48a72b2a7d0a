package interval

import "sort"

// Merge sorts ranges and coalesces overlapping or touching ones. Empty
// ranges are dropped. The input slice is not modified.
func Merge(ranges []Range) []Range {
	rs := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Hi > r.Lo {
			rs = append(rs, r)
		}
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Lo != rs[j].Lo {
			return rs[i].Lo < rs[j].Lo
		}
		return rs[i].Hi < rs[j].Hi
	})
	out := rs[:0]
	for _, r := range rs {
		if n := len(out); n > 0 && r.Lo <= out[n-1].Hi {
			out[n-1].Hi = max(out[n-1].Hi, r.Hi)
			continue
		}
		out = append(out, r)
	}
	return out
}

// Holes returns the parts of [lo,hi) not covered by ranges.
func Holes(lo, hi int, ranges []Range) []Range {
	var holes []Range
	pos := lo
	for _, r := range Merge(ranges) {
		if r.Hi <= pos {
			continue
		}
		if r.Lo >= hi {
			break
		}
		if r.Lo > pos {
			holes = append(holes, Range{pos, r.Lo})
		}
		pos = r.Hi
	}
	if pos < hi {
		holes = append(holes, Range{pos, hi})
	}
	return holes
}
