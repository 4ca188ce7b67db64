package solvent

import (
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Version is a single concrete semantic version. It wraps the semver
// package's version type so that parsing, ordering, and prerelease handling
// all come from one place.
type Version struct {
	sv *semver.Version
}

// NewVersion parses a semver string into a Version.
func NewVersion(body string) (Version, error) {
	sv, err := semver.StrictNewVersion(body)
	if err != nil {
		return Version{}, err
	}
	return Version{sv: sv}, nil
}

func (v Version) String() string {
	if v.sv == nil {
		return ""
	}
	return v.sv.String()
}

// IsZero reports whether v is the zero Version, which represents "no
// version" rather than 0.0.0.
func (v Version) IsZero() bool {
	return v.sv == nil
}

// Compare returns -1, 0, or 1 per the semver total ordering.
func (v Version) Compare(o Version) int {
	return v.sv.Compare(o.sv)
}

func (v Version) Equal(o Version) bool {
	if v.sv == nil || o.sv == nil {
		return v.sv == o.sv
	}
	return v.sv.Equal(o.sv)
}

func (v Version) LessThan(o Version) bool {
	return v.sv.LessThan(o.sv)
}

func (v Version) GreaterThan(o Version) bool {
	return v.sv.GreaterThan(o.sv)
}

// IsPrerelease reports whether the version carries a prerelease tag.
func (v Version) IsPrerelease() bool {
	return v.sv.Prerelease() != ""
}

// nextBreaking is the smallest version whose selection would be a breaking
// change from v: the next major for >=1.0.0, the next minor in the 0.x
// series, and the next patch in the 0.0.x series.
func (v Version) nextBreaking() Version {
	var nv semver.Version
	switch {
	case v.sv.Major() > 0:
		nv = v.sv.IncMajor()
	case v.sv.Minor() > 0:
		nv = v.sv.IncMinor()
	default:
		nv = v.sv.IncPatch()
	}
	return Version{sv: &nv}
}

// sortAscending orders versions by the semver total ordering, lowest first.
func sortAscending(vs []Version) {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].LessThan(vs[j])
	})
}

// sortForMode orders versions into the sequence bestVersionFor should try
// them: stable releases before prereleases, then highest-first for GET and
// UPGRADE, lowest-first for DOWNGRADE.
func sortForMode(vs []Version, mode SolveMode) {
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if pa, pb := a.IsPrerelease(), b.IsPrerelease(); pa != pb {
			return pb
		}
		if mode == Downgrade {
			return a.LessThan(b)
		}
		return a.GreaterThan(b)
	})
}
