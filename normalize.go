package solvent

import "sort"

// A normalizer rewrites constraints relative to the base - the ordered list
// of versions that actually exist for one package - so that equivalent
// constraints share one canonical, maximal form. Maximal means: no
// constraint covering the same subset of the base has fewer ranges.
//
// The trick is to pin every bounded range's upper edge to the smallest base
// version strictly above it. Ranges separated only by a gap containing no
// real version then meet exactly, and the union constructor coalesces them.
type normalizer struct {
	base []Version

	// lowerBoundIndex results, keyed by version string.
	lb map[string]int
	// ranges already in maximal form, keyed by canonical rendering.
	done map[string]bool
}

func newNormalizer(base []Version) *normalizer {
	return &normalizer{
		base: base,
		lb:   make(map[string]int),
		done: make(map[string]bool),
	}
}

// lowerBoundIndex returns the least index whose base version is >= v, or
// len(base) if every base version is below v.
func (n *normalizer) lowerBoundIndex(v Version) int {
	if i, ok := n.lb[v.String()]; ok {
		return i
	}
	i := sort.Search(len(n.base), func(k int) bool {
		return !n.base[k].LessThan(v)
	})
	n.lb[v.String()] = i
	return i
}

// strictLeastUpperBound returns the smallest base version strictly greater
// than every version admitted by r, or the zero Version if no base version
// is above r.
func (n *normalizer) strictLeastUpperBound(r VersionRange) Version {
	i := n.lowerBoundIndex(r.Max)
	if i == len(n.base) {
		return Version{}
	}
	b := n.base[i]
	if !r.IncludeMax || !b.Equal(r.Max) {
		return b
	}
	if i+1 == len(n.base) {
		return Version{}
	}
	return n.base[i+1]
}

// normalizeRange rewrites a bounded range into half-open form with its upper
// edge on the base. Unbounded ranges pass through untouched.
func (n *normalizer) normalizeRange(r VersionRange) VersionRange {
	if r.Max.IsZero() || n.done[r.String()] {
		return r
	}

	out := VersionRange{Min: r.Min, IncludeMin: r.IncludeMin}
	if lub := n.strictLeastUpperBound(r); !lub.IsZero() {
		out.Max = lub
	}
	n.done[out.String()] = true
	return out
}

// maximize flattens the given constraints through normalizeRange and
// rebuilds the result as a canonical union.
func (n *normalizer) maximize(cs ...VersionConstraint) VersionConstraint {
	var rs []VersionRange
	for _, c := range cs {
		if c == nil || c.IsEmpty() {
			continue
		}
		for _, r := range c.asRanges() {
			rs = append(rs, n.normalizeRange(r))
		}
	}
	return unionOf(rs)
}
