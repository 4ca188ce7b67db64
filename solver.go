package solvent

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A Solver resolves a root manifest's transitive dependency graph to one
// concrete version per reachable package, or explains why no such
// assignment exists.
type Solver interface {
	Solve(ctx context.Context, opts SolveOpts) (*SolveResult, error)
}

// SolveOpts are the per-solve inputs.
type SolveOpts struct {
	Root Manifest
	Mode SolveMode
}

// NewSolver constructs a Solver over the given oracle and probed SDK.
func NewSolver(oracle VersionOracle, sdk SDKInfo, l *logrus.Logger) Solver {
	if l == nil {
		l = logrus.New()
	}

	return &solver{
		l:      l,
		oracle: oracle,
		sdk:    sdk,
	}
}

// solver is a conflict-driven clause learning solver over version-range
// constraints. Decisions pick one concrete version per package; unit
// propagation narrows per-package constraint state; conflicts learn clauses
// and backjump non-chronologically.
type solver struct {
	l      *logrus.Logger
	oracle VersionOracle
	sdk    SDKInfo
	mode   SolveMode

	root    Manifest
	rootRef PackageRef

	clauses    []*Clause
	clauseKeys map[string]struct{}
	byName     map[string][]*Clause

	decisions       []PackageID
	decisionsByName map[string]PackageID

	constraints      map[string]constraintState
	constraintsStack []map[string]constraintState

	implications      map[string][]implication
	implicationsStack []map[string][]implication

	// Oracle response caches, keyed by ref key / id string.
	bases     map[string][]Version
	tryOrder  map[string][]Version
	norms     map[string]*normalizer
	manifests map[string]Manifest
	notFound  map[string]bool

	attempts int
}

func (s *solver) Solve(ctx context.Context, opts SolveOpts) (*SolveResult, error) {
	if opts.Root.Name == "" {
		return nil, BadOptsFailure("root manifest must carry a package name")
	}
	if opts.Root.Version.IsZero() {
		return nil, BadOptsFailure("root manifest must carry a version")
	}

	s.reset(opts)

	if err := s.checkRootSDK(); err != nil {
		return nil, err
	}

	// The root is decision zero; it is never a backjump target.
	rootID := PackageID{Ref: s.rootRef, Version: s.root.Version}
	s.pushSnapshots()
	s.decisions = append(s.decisions, rootID)
	s.decisionsByName[s.root.Name] = rootID
	s.manifests[rootID.String()] = s.root

	for _, dep := range s.root.Deps {
		if err := s.addClause(newRequirement(dep, rootCause{rootName: s.root.Name})); err != nil {
			return nil, err
		}
	}

	for {
		// Between-iteration yield: ctx is checked here, once per
		// iteration. The oracle methods take no context, so an oracle call
		// already in progress is not interrupted.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id, found, err := s.nextCandidate()
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}

		if s.l.Level >= logrus.DebugLevel {
			s.l.WithFields(logrus.Fields{
				"attempts": s.attempts,
				"name":     id.Ref.Name,
				"version":  id.Version.String(),
				"selcount": len(s.decisions),
			}).Debug("Beginning step in solve loop")
		}

		if err := s.selectVersion(id); err != nil {
			return nil, err
		}
	}

	return s.buildResult(), nil
}

// reset clears all per-solve state.
func (s *solver) reset(opts SolveOpts) {
	s.root = opts.Root
	s.mode = opts.Mode
	s.rootRef = PackageRef{Name: opts.Root.Name, Source: "root"}

	s.clauses = nil
	s.decisions = nil
	s.constraintsStack = nil
	s.implicationsStack = nil
	s.attempts = 0
	s.clauseKeys = make(map[string]struct{})
	s.byName = make(map[string][]*Clause)
	s.decisionsByName = make(map[string]PackageID)
	s.constraints = make(map[string]constraintState)
	s.implications = make(map[string][]implication)
	s.bases = make(map[string][]Version)
	s.tryOrder = make(map[string][]Version)
	s.norms = make(map[string]*normalizer)
	s.manifests = make(map[string]Manifest)
	s.notFound = make(map[string]bool)
}

// checkRootSDK rejects a root manifest incompatible with the probed SDK
// before any solving happens.
func (s *solver) checkRootSDK() error {
	rootDep := PackageDep{Ref: s.rootRef, Constraint: Exact(s.root.Version)}
	if !sdkAllows(s.root.SDK, s.sdk.Runtime) {
		incompat := newProhibition(rootDep, sdkCause{dep: rootDep, constraint: s.root.SDK})
		return &SolveFailure{Incompatibility: incompat, root: s.rootRef}
	}
	if s.root.FrameworkSDK != nil &&
		(!s.sdk.FrameworkAvailable || !s.root.FrameworkSDK.Allows(s.sdk.Framework)) {
		incompat := newProhibition(rootDep, sdkCause{dep: rootDep, constraint: s.root.FrameworkSDK, framework: true})
		return &SolveFailure{Incompatibility: incompat, root: s.rootRef}
	}
	return nil
}

// nextCandidate picks the package and version to decide next. Positive
// accumulated constraints come first; otherwise the clause set is scanned
// for a satisfiable positive term in a not-yet-satisfied clause, preferring
// the term admitting the highest maximum version. No candidate means the
// assignment is complete.
func (s *solver) nextCandidate() (PackageID, bool, error) {
	for {
		dep := s.positiveCandidate()
		if dep == nil {
			dep = s.clauseCandidate()
		}
		if dep == nil {
			return PackageID{}, false, nil
		}

		id, found, err := s.bestVersionFor(*dep)
		if err != nil {
			return PackageID{}, false, err
		}
		if found {
			return id, true, nil
		}
		// A prohibition was learned; rescan from the updated state.
	}
}

func (s *solver) positiveCandidate() *PackageDep {
	names := make([]string, 0, len(s.constraints))
	for name := range s.constraints {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, decided := s.decisionsByName[name]; decided {
			continue
		}
		if cs := s.constraints[name]; cs.isPositive() {
			return cs.positive
		}
	}
	return nil
}

func (s *solver) clauseCandidate() *PackageDep {
	var best *Term
	for _, c := range s.clauses {
		var open []*Term
		skip := false
		for i := range c.terms {
			switch s.satisfaction(c.terms[i]) {
			case satisfied:
				skip = true
			case satisfiable:
				if !c.terms[i].Negative {
					open = append(open, &c.terms[i])
				}
			}
			if skip {
				break
			}
		}
		if skip {
			continue
		}
		for _, t := range open {
			if best == nil || allowsHigherMax(t.Dep, best.Dep) {
				best = t
			}
		}
	}
	if best == nil {
		return nil
	}
	return &best.Dep
}

// allowsHigherMax compares deps by the maximum version their constraints
// admit: an unbounded constraint beats any bounded one.
func allowsHigherMax(a, b PackageDep) bool {
	ra := a.constraintOrAny().asRanges()
	rb := b.constraintOrAny().asRanges()
	if len(ra) == 0 {
		return false
	}
	if len(rb) == 0 {
		return true
	}
	return allowsHigher(ra[len(ra)-1], rb[len(rb)-1])
}

// bestVersionFor resolves a dep to the concrete version to try next, under
// the mode's priority order. An unknown package learns a prohibition over
// any; a known package with no admissible version learns a prohibition over
// the dep's constraint. Versions excluded by the accumulated state are
// passed over when an alternative exists, in the manner of walking a
// version queue for a satisfiable entry.
func (s *solver) bestVersionFor(dep PackageDep) (PackageID, bool, error) {
	_, known, err := s.versionsOf(dep.Ref)
	if err != nil {
		return PackageID{}, false, err
	}
	if !known {
		if s.l.Level >= logrus.InfoLevel {
			s.l.WithField("name", dep.Ref.Name).Info("Package not found, learning prohibition")
		}
		p := newProhibition(dep.withConstraint(anyVersion), notFoundCause{ref: dep.Ref})
		return PackageID{}, false, s.addClause(p)
	}

	var fallback Version
	for _, v := range s.tryOrder[dep.Ref.key()] {
		if !dep.allows(v) {
			continue
		}
		if s.stateAllows(dep.Ref, v) {
			return PackageID{Ref: dep.Ref, Version: v}, true, nil
		}
		if fallback.IsZero() {
			fallback = v
		}
	}
	if !fallback.IsZero() {
		return PackageID{Ref: dep.Ref, Version: fallback}, true, nil
	}

	if s.l.Level >= logrus.InfoLevel {
		s.l.WithFields(logrus.Fields{
			"name":       dep.Ref.Name,
			"constraint": dep.constraintOrAny().String(),
		}).Info("No admissible version, learning prohibition")
	}
	p := newProhibition(dep, noVersionsCause{dep: dep})
	return PackageID{}, false, s.addClause(p)
}

// stateAllows checks a concrete version against the accumulated constraint
// state for its package.
func (s *solver) stateAllows(ref PackageRef, v Version) bool {
	cs, has := s.constraints[ref.Name]
	if !has {
		return true
	}
	if cs.isPositive() {
		if !samePackage(cs.positive.Ref, ref) {
			return false
		}
		return cs.positive.allows(v)
	}
	for _, neg := range cs.negatives {
		if samePackage(neg.Ref, ref) && neg.allows(v) {
			return false
		}
	}
	return true
}

// selectVersion commits to a concrete version: snapshot, decide, propagate
// the existing clauses over the package, then introduce the dependency
// clauses its manifest implies, generalized over the adjacent version run
// carrying the same dependency. A conflict anywhere backjumps and returns
// early; the decision loop reschedules.
func (s *solver) selectVersion(id PackageID) error {
	m, err := s.describe(id)
	if err != nil {
		return err
	}

	ok, err := s.validateSDK(id, m)
	if err != nil || !ok {
		return err
	}

	if s.l.Level >= logrus.InfoLevel {
		s.l.WithFields(logrus.Fields{
			"name":    id.Ref.Name,
			"version": id.Version.String(),
		}).Info("Selected package version")
	}

	s.pushSnapshots()
	s.decisions = append(s.decisions, id)
	s.decisionsByName[id.Ref.Name] = id
	// The decision subsumes the accumulated state for this name.
	delete(s.constraints, id.Ref.Name)

	clauses := append([]*Clause(nil), s.byName[id.Ref.Name]...)
	for _, c := range clauses {
		// Re-running a clause through addClause evaluates it against the
		// fresh decision and, on conflict, backjumps and re-propagates
		// from the restored state.
		if err := s.addClause(c); err != nil {
			return err
		}
		if !s.stillDecided(id) {
			return nil
		}
	}

	for _, target := range m.Deps {
		depender, derr := s.depWhere(id, func(other Manifest) bool {
			return manifestDependsSame(other, target)
		})
		if derr != nil {
			return derr
		}
		if depender == nil {
			// The predicate holds for id's own manifest, so a nil run here
			// cannot happen.
			continue
		}
		if err := s.addClause(newDependency(*depender, target)); err != nil {
			return err
		}
		if !s.stillDecided(id) {
			return nil
		}
	}
	return nil
}

func (s *solver) stillDecided(id PackageID) bool {
	cur, has := s.decisionsByName[id.Ref.Name]
	return has && cur == id
}

// manifestDependsSame reports whether a manifest declares the same
// dependency: same target package, same constraint.
func manifestDependsSame(m Manifest, target PackageDep) bool {
	for _, d := range m.Deps {
		if samePackage(d.Ref, target.Ref) &&
			constraintEqual(d.constraintOrAny(), target.constraintOrAny()) {
			return true
		}
	}
	return false
}

// versionsOf lists the package's existing versions, ascending, memoized.
// The first fetch also fixes the mode-priority try order and the
// normalizer base for the package.
func (s *solver) versionsOf(ref PackageRef) ([]Version, bool, error) {
	key := ref.key()
	if s.notFound[key] {
		return nil, false, nil
	}
	if base, has := s.bases[key]; has {
		return base, true, nil
	}

	ids, err := s.oracle.GetVersions(ref)
	if err != nil {
		var nf *PackageNotFoundError
		if errors.As(err, &nf) {
			s.notFound[key] = true
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "listing versions of %s", ref.Name)
	}

	base := make([]Version, len(ids))
	for i, id := range ids {
		base[i] = id.Version
	}
	sortAscending(base)

	try := append([]Version(nil), base...)
	sortForMode(try, s.mode)

	s.bases[key] = base
	s.tryOrder[key] = try
	s.norms[key] = newNormalizer(base)

	if s.l.Level >= logrus.DebugLevel {
		s.l.WithFields(logrus.Fields{
			"name":  ref.Name,
			"count": len(base),
		}).Debug("Fetched version list")
	}
	return base, true, nil
}

func (s *solver) describe(id PackageID) (Manifest, error) {
	if m, has := s.manifests[id.String()]; has {
		return m, nil
	}
	m, err := s.oracle.Describe(id)
	if err != nil {
		return Manifest{}, errors.Wrapf(err, "describing %s", id)
	}
	s.manifests[id.String()] = m
	return m, nil
}

// terminalFailure wraps up an unrecoverable contradiction: the root
// incompatibility whose single positive term is the root itself.
func (s *solver) terminalFailure(conflict *Clause, other *Clause) error {
	rootDep := PackageDep{Ref: s.rootRef, Constraint: Exact(s.root.Version)}
	incompat := newLearned(
		[]Term{positive(rootDep)},
		conflictCause{conflict: conflict, other: other},
	)
	return &SolveFailure{Incompatibility: incompat, root: s.rootRef}
}

func (s *solver) buildResult() *SolveResult {
	res := &SolveResult{
		Root:              s.decisions[0],
		Attempts:          s.attempts,
		Manifests:         make(map[string]Manifest),
		AvailableVersions: make(map[string][]Version),
	}
	for _, id := range s.decisions[1:] {
		res.Decisions = append(res.Decisions, id)
		if m, has := s.manifests[id.String()]; has {
			res.Manifests[id.Ref.Name] = m
		}
		if base, has := s.bases[id.Ref.key()]; has {
			res.AvailableVersions[id.Ref.Name] = base
		}
	}
	return res
}
