package solvent

import (
	"sort"

	"github.com/sirupsen/logrus"
)

func sdkAllows(c VersionConstraint, v Version) bool {
	return c == nil || c.Allows(v)
}

// validateSDK checks a candidate's manifest against the probed SDK. Each
// failing check learns a prohibition spanning the whole adjacent run of
// versions carrying the same incompatibility, so one bad manifest rules out
// its neighbors in a single clause. Returns true iff both checks passed.
func (s *solver) validateSDK(id PackageID, m Manifest) (bool, error) {
	ok := true

	if !sdkAllows(m.SDK, s.sdk.Runtime) {
		dep, err := s.depWhere(id, func(other Manifest) bool {
			return !sdkAllows(other.SDK, s.sdk.Runtime)
		})
		if err != nil {
			return false, err
		}
		if s.l.Level >= logrus.InfoLevel {
			s.l.WithFields(logrus.Fields{
				"name":       id.Ref.Name,
				"version":    id.Version.String(),
				"constraint": m.SDK.String(),
				"sdk":        s.sdk.Runtime.String(),
			}).Info("Version run rejected by SDK constraint")
		}
		p := newProhibition(*dep, sdkCause{dep: *dep, constraint: m.SDK})
		if err := s.addClause(p); err != nil {
			return false, err
		}
		ok = false
	}

	frameworkBad := func(other Manifest) bool {
		if other.FrameworkSDK == nil {
			return false
		}
		return !s.sdk.FrameworkAvailable || !other.FrameworkSDK.Allows(s.sdk.Framework)
	}
	if frameworkBad(m) {
		dep, err := s.depWhere(id, frameworkBad)
		if err != nil {
			return false, err
		}
		if s.l.Level >= logrus.InfoLevel {
			s.l.WithFields(logrus.Fields{
				"name":    id.Ref.Name,
				"version": id.Version.String(),
			}).Info("Version run rejected by framework SDK constraint")
		}
		p := newProhibition(*dep, sdkCause{dep: *dep, constraint: m.FrameworkSDK, framework: true})
		if err := s.addClause(p); err != nil {
			return false, err
		}
		ok = false
	}

	return ok, nil
}

// depWhere generalizes a single version into the maximal contiguous run of
// existing versions around it whose manifests satisfy pred, rendered as the
// most compact dep that covers exactly that run. This is what keeps learned
// clauses per-range instead of per-version.
func (s *solver) depWhere(id PackageID, pred func(Manifest) bool) (*PackageDep, error) {
	m, err := s.describe(id)
	if err != nil {
		return nil, err
	}
	if !pred(m) {
		return nil, nil
	}

	vs, known, err := s.versionsOf(id.Ref)
	if err != nil {
		return nil, err
	}
	if !known {
		dep := id.toDep()
		return &dep, nil
	}

	i := sort.Search(len(vs), func(k int) bool {
		return !vs[k].LessThan(id.Version)
	})
	if i == len(vs) || !vs[i].Equal(id.Version) {
		dep := id.toDep()
		return &dep, nil
	}

	lo, hi := i, i
	for lo > 0 {
		pm, err := s.describe(PackageID{Ref: id.Ref, Version: vs[lo-1]})
		if err != nil {
			return nil, err
		}
		if !pred(pm) {
			break
		}
		lo--
	}
	for hi+1 < len(vs) {
		nm, err := s.describe(PackageID{Ref: id.Ref, Version: vs[hi+1]})
		if err != nil {
			return nil, err
		}
		if !pred(nm) {
			break
		}
		hi++
	}

	dep := PackageDep{Ref: id.Ref, Constraint: runConstraint(vs, lo, hi)}
	return &dep, nil
}

// runConstraint renders the run vs[lo..hi] in its most compact form.
func runConstraint(vs []Version, lo, hi int) VersionConstraint {
	indexAbove := hi + 1
	switch {
	case lo == hi:
		return Exact(vs[lo])
	case lo == 0 && indexAbove == len(vs):
		return anyVersion
	case indexAbove == len(vs):
		return VersionRange{Min: vs[lo], IncludeMin: true}
	case lo == 0:
		return VersionRange{Max: vs[indexAbove]}
	}

	if cw := CompatibleWith(vs[lo]); cw.Allows(vs[hi]) &&
		!cw.Allows(vs[indexAbove]) && !cw.Allows(vs[lo-1]) {
		return cw
	}
	return VersionRange{Min: vs[lo], IncludeMin: true, Max: vs[indexAbove]}
}
