package solvent

import (
	"fmt"
	"strings"
)

var (
	none = noneConstraint{}
	// anyVersion admits every version.
	anyVersion = VersionRange{}
)

// A VersionConstraint describes a set of admissible versions. The three
// implementations are the empty set, a contiguous range, and an ordered
// union of disjoint ranges.
//
// The set operations all return constraints in canonical form: a union never
// holds fewer than two ranges, overlapping or adjoining ranges are merged,
// and a single-version range prints as the bare version.
type VersionConstraint interface {
	fmt.Stringer
	// IsEmpty reports whether no version is admissible.
	IsEmpty() bool
	// IsAny reports whether every version is admissible.
	IsAny() bool
	// Allows indicates if the provided Version is admitted.
	Allows(Version) bool
	// AllowsAll indicates if every version admitted by the provided
	// constraint is also admitted by this one.
	AllowsAll(VersionConstraint) bool
	// AllowsAny indicates if the intersection with the provided constraint
	// is non-empty.
	AllowsAny(VersionConstraint) bool
	// Intersect computes the set intersection with the provided constraint.
	Intersect(VersionConstraint) VersionConstraint
	// Union computes the set union with the provided constraint.
	Union(VersionConstraint) VersionConstraint
	// Difference computes the set of versions admitted by this constraint
	// but not by the provided one.
	Difference(VersionConstraint) VersionConstraint

	asRanges() []VersionRange
}

// Exact returns the constraint admitting only v.
func Exact(v Version) VersionRange {
	return VersionRange{Min: v, Max: v, IncludeMin: true, IncludeMax: true}
}

// CompatibleWith returns the caret constraint for v: every version from v up
// to, but excluding, the next breaking version.
func CompatibleWith(v Version) VersionRange {
	return VersionRange{Min: v, IncludeMin: true, Max: v.nextBreaking()}
}

// A VersionRange is a contiguous set of versions, optionally bounded on
// either end. A zero bound means unbounded on that side.
type VersionRange struct {
	Min, Max               Version
	IncludeMin, IncludeMax bool
}

func (r VersionRange) IsEmpty() bool {
	return false
}

func (r VersionRange) IsAny() bool {
	return r.Min.IsZero() && r.Max.IsZero()
}

// isExact reports whether the range admits exactly one version.
func (r VersionRange) isExact() bool {
	return !r.Min.IsZero() && !r.Max.IsZero() && r.Min.Equal(r.Max)
}

func (r VersionRange) Allows(v Version) bool {
	if !r.Min.IsZero() {
		if v.LessThan(r.Min) {
			return false
		}
		if !r.IncludeMin && v.Equal(r.Min) {
			return false
		}
	}
	if !r.Max.IsZero() {
		if v.GreaterThan(r.Max) {
			return false
		}
		if !r.IncludeMax && v.Equal(r.Max) {
			return false
		}
	}
	return true
}

func (r VersionRange) AllowsAll(c VersionConstraint) bool {
	return allowsAll(r, c)
}

func (r VersionRange) AllowsAny(c VersionConstraint) bool {
	return !r.Intersect(c).IsEmpty()
}

func (r VersionRange) Intersect(c VersionConstraint) VersionConstraint {
	return intersectConstraints(r, c)
}

func (r VersionRange) Union(c VersionConstraint) VersionConstraint {
	return unionOf(append(r.asRanges(), c.asRanges()...))
}

func (r VersionRange) Difference(c VersionConstraint) VersionConstraint {
	return differenceOf(r, c)
}

func (r VersionRange) asRanges() []VersionRange {
	return []VersionRange{r}
}

func (r VersionRange) String() string {
	if r.IsAny() {
		return "any"
	}
	if r.isExact() {
		return r.Min.String()
	}
	if r.IncludeMin && !r.IncludeMax && !r.Min.IsZero() && !r.Max.IsZero() &&
		r.Max.Equal(r.Min.nextBreaking()) {
		return "^" + r.Min.String()
	}

	var parts []string
	if !r.Min.IsZero() {
		if r.IncludeMin {
			parts = append(parts, ">="+r.Min.String())
		} else {
			parts = append(parts, ">"+r.Min.String())
		}
	}
	if !r.Max.IsZero() {
		if r.IncludeMax {
			parts = append(parts, "<="+r.Max.String())
		} else {
			parts = append(parts, "<"+r.Max.String())
		}
	}
	return strings.Join(parts, " ")
}

// versionUnion is an ordered list of two or more disjoint, non-adjoining
// ranges. Always built through unionOf, never directly.
type versionUnion struct {
	rs []VersionRange
}

func (u versionUnion) IsEmpty() bool { return false }
func (u versionUnion) IsAny() bool   { return false }

func (u versionUnion) Allows(v Version) bool {
	for _, r := range u.rs {
		if r.Allows(v) {
			return true
		}
	}
	return false
}

func (u versionUnion) AllowsAll(c VersionConstraint) bool {
	return allowsAll(u, c)
}

func (u versionUnion) AllowsAny(c VersionConstraint) bool {
	return !u.Intersect(c).IsEmpty()
}

func (u versionUnion) Intersect(c VersionConstraint) VersionConstraint {
	return intersectConstraints(u, c)
}

func (u versionUnion) Union(c VersionConstraint) VersionConstraint {
	return unionOf(append(u.asRanges(), c.asRanges()...))
}

func (u versionUnion) Difference(c VersionConstraint) VersionConstraint {
	return differenceOf(u, c)
}

func (u versionUnion) asRanges() []VersionRange {
	return u.rs
}

func (u versionUnion) String() string {
	var parts []string
	for _, r := range u.rs {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, " or ")
}

// noneConstraint is the empty set - it admits no versions.
type noneConstraint struct{}

func (noneConstraint) IsEmpty() bool                                  { return true }
func (noneConstraint) IsAny() bool                                    { return false }
func (noneConstraint) Allows(Version) bool                            { return false }
func (noneConstraint) AllowsAll(c VersionConstraint) bool             { return c.IsEmpty() }
func (noneConstraint) AllowsAny(VersionConstraint) bool               { return false }
func (noneConstraint) Intersect(VersionConstraint) VersionConstraint  { return none }
func (noneConstraint) Union(c VersionConstraint) VersionConstraint    { return c }
func (noneConstraint) Difference(VersionConstraint) VersionConstraint { return none }
func (noneConstraint) asRanges() []VersionRange                       { return nil }
func (noneConstraint) String() string                                 { return "none" }

// allowsLower reports whether a admits versions below what b admits.
func allowsLower(a, b VersionRange) bool {
	if a.Min.IsZero() {
		return !b.Min.IsZero()
	}
	if b.Min.IsZero() {
		return false
	}
	switch cmp := a.Min.Compare(b.Min); {
	case cmp < 0:
		return true
	case cmp > 0:
		return false
	default:
		return a.IncludeMin && !b.IncludeMin
	}
}

// allowsHigher reports whether a admits versions above what b admits.
func allowsHigher(a, b VersionRange) bool {
	if a.Max.IsZero() {
		return !b.Max.IsZero()
	}
	if b.Max.IsZero() {
		return false
	}
	switch cmp := a.Max.Compare(b.Max); {
	case cmp > 0:
		return true
	case cmp < 0:
		return false
	default:
		return a.IncludeMax && !b.IncludeMax
	}
}

// adjoins reports whether a's upper edge meets b's lower edge with no
// version in between and no overlap.
func adjoins(a, b VersionRange) bool {
	if a.Max.IsZero() || b.Min.IsZero() || !a.Max.Equal(b.Min) {
		return false
	}
	return a.IncludeMax != b.IncludeMin
}

// intersectRanges computes the intersection of two ranges, or none if they
// are disjoint.
func intersectRanges(a, b VersionRange) VersionConstraint {
	r := VersionRange{Min: a.Min, IncludeMin: a.IncludeMin, Max: a.Max, IncludeMax: a.IncludeMax}
	if allowsLower(a, b) {
		r.Min, r.IncludeMin = b.Min, b.IncludeMin
	}
	if allowsHigher(a, b) {
		r.Max, r.IncludeMax = b.Max, b.IncludeMax
	}

	if r.Min.IsZero() || r.Max.IsZero() {
		return r
	}
	switch cmp := r.Min.Compare(r.Max); {
	case cmp > 0:
		return none
	case cmp == 0:
		if !r.IncludeMin || !r.IncludeMax {
			return none
		}
	}
	return r
}

func intersectConstraints(a, b VersionConstraint) VersionConstraint {
	if a.IsEmpty() || b.IsEmpty() {
		return none
	}
	var out []VersionRange
	for _, ra := range a.asRanges() {
		for _, rb := range b.asRanges() {
			if c := intersectRanges(ra, rb); !c.IsEmpty() {
				out = append(out, c.(VersionRange))
			}
		}
	}
	return unionOf(out)
}

// unionOf merges a set of ranges into canonical form: sorted by lower bound,
// with overlapping or adjoining ranges coalesced.
func unionOf(rs []VersionRange) VersionConstraint {
	if len(rs) == 0 {
		return none
	}

	sorted := make([]VersionRange, len(rs))
	copy(sorted, rs)
	// Insertion sort by lower bound; inputs are tiny and often presorted.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && allowsLower(sorted[j], sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	merged := []VersionRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !intersectRanges(*last, r).IsEmpty() || adjoins(*last, r) {
			if allowsHigher(r, *last) {
				last.Max, last.IncludeMax = r.Max, r.IncludeMax
			}
			continue
		}
		merged = append(merged, r)
	}

	if len(merged) == 1 {
		return merged[0]
	}
	return versionUnion{rs: merged}
}

// subtractRange removes b from a, yielding the (up to two) remaining pieces.
func subtractRange(a, b VersionRange) []VersionRange {
	var out []VersionRange
	if !b.Min.IsZero() {
		below := intersectRanges(a, VersionRange{Max: b.Min, IncludeMax: !b.IncludeMin})
		if !below.IsEmpty() {
			out = append(out, below.(VersionRange))
		}
	}
	if !b.Max.IsZero() {
		above := intersectRanges(a, VersionRange{Min: b.Max, IncludeMin: !b.IncludeMax})
		if !above.IsEmpty() {
			out = append(out, above.(VersionRange))
		}
	}
	return out
}

func differenceOf(a, b VersionConstraint) VersionConstraint {
	if a.IsEmpty() || b.IsEmpty() {
		return unionOf(a.asRanges())
	}
	remaining := a.asRanges()
	for _, rb := range b.asRanges() {
		var next []VersionRange
		for _, ra := range remaining {
			next = append(next, subtractRange(ra, rb)...)
		}
		remaining = next
	}
	return unionOf(remaining)
}

// allowsAll reports whether every range of c fits entirely inside a single
// range of a. Ranges on both sides are ordered and disjoint, so anything
// spanning a gap in a is caught.
func allowsAll(a, c VersionConstraint) bool {
	if c.IsEmpty() {
		return true
	}
outer:
	for _, rc := range c.asRanges() {
		for _, ra := range a.asRanges() {
			if !allowsLower(rc, ra) && !allowsHigher(rc, ra) {
				continue outer
			}
		}
		return false
	}
	return true
}

// constraintEqual compares two constraints by value. The canonical forms
// produced by the constructors make the rendered form a reliable key.
func constraintEqual(a, b VersionConstraint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// ParseConstraint reads the textual constraint syntax: "any", "none", a bare
// version, caret ranges ("^1.2.0"), comparator sequences
// (">=1.0.0 <2.0.0", commas allowed), and unions joined with "||".
func ParseConstraint(body string) (VersionConstraint, error) {
	body = strings.TrimSpace(body)
	switch body {
	case "", "any", "*":
		return anyVersion, nil
	case "none":
		return none, nil
	}

	var out VersionConstraint = none
	for _, alt := range strings.Split(body, "||") {
		c, err := parseRangeSet(alt)
		if err != nil {
			return nil, err
		}
		out = out.Union(c)
	}
	return out, nil
}

func parseRangeSet(body string) (VersionConstraint, error) {
	body = strings.ReplaceAll(body, ",", " ")
	var out VersionConstraint = anyVersion
	for _, tok := range strings.Fields(body) {
		c, err := parseComparator(tok)
		if err != nil {
			return nil, err
		}
		out = out.Intersect(c)
	}
	return out, nil
}

func parseComparator(tok string) (VersionConstraint, error) {
	mk := func(body string, f func(Version) VersionRange) (VersionConstraint, error) {
		v, err := NewVersion(body)
		if err != nil {
			return nil, fmt.Errorf("malformed constraint token %q: %s", tok, err)
		}
		return f(v), nil
	}

	switch {
	case strings.HasPrefix(tok, "^"):
		return mk(tok[1:], CompatibleWith)
	case strings.HasPrefix(tok, ">="):
		return mk(tok[2:], func(v Version) VersionRange {
			return VersionRange{Min: v, IncludeMin: true}
		})
	case strings.HasPrefix(tok, "<="):
		return mk(tok[2:], func(v Version) VersionRange {
			return VersionRange{Max: v, IncludeMax: true}
		})
	case strings.HasPrefix(tok, ">"):
		return mk(tok[1:], func(v Version) VersionRange {
			return VersionRange{Min: v}
		})
	case strings.HasPrefix(tok, "<"):
		return mk(tok[1:], func(v Version) VersionRange {
			return VersionRange{Max: v}
		})
	case strings.HasPrefix(tok, "="):
		return mk(tok[1:], Exact)
	default:
		return mk(tok, Exact)
	}
}
