package occurrence

import "slices"

// Dedupe returns the distinct row indices in ascending order. The input is not modified.
func Dedupe(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	return slices.Compact(out)
}

// Retain returns the occurrences whose index is not in invalid, in their
// original order. Duplicate and out-of-range indices are ignored.
func Retain(occs []Occurrence, invalid []int) []Occurrence {
	drop := make(map[int]struct{}, len(invalid))
	for _, i := range invalid {
		if i >= 0 && i < len(occs) {
			drop[i] = struct{}{}
		}
	}

	out := make([]Occurrence, 0, len(occs)-len(drop))
	for i, o := range occs {
		if _, skip := drop[i]; skip {
			continue
		}
		out = append(out, o)
	}
	return out
}

// RemoveRows deletes the invalid indices from a copy of occs, highest index
// first so earlier positions never shift. It yields the same result as Retain.
func RemoveRows(occs []Occurrence, invalid []int) []Occurrence {
	out := slices.Clone(occs)
	idx := Dedupe(invalid)
	for k := len(idx) - 1; k >= 0; k-- {
		i := idx[k]
		if i < 0 || i >= len(out) {
			continue
		}
		out = slices.Delete(out, i, i+1)
	}
	return out
}
