package solvent

// satisfaction is the solver's three-valued verdict on a term: already
// guaranteed, still possible, or impossible under the current state.
type satisfaction uint8

const (
	satisfiable satisfaction = iota
	satisfied
	unsatisfiable
)

func (v satisfaction) String() string {
	switch v {
	case satisfied:
		return "satisfied"
	case unsatisfiable:
		return "unsatisfiable"
	default:
		return "satisfiable"
	}
}

// satisfaction determines how a term stands relative to the current
// decisions and accumulated constraints. A decision on the term's package
// name settles it outright; otherwise the accumulated constraint state, if
// any, is consulted.
func (s *solver) satisfaction(t Term) satisfaction {
	name := t.Dep.Ref.Name

	if id, has := s.decisionsByName[name]; has {
		allowed := samePackage(id.Ref, t.Dep.Ref) && t.Dep.allows(id.Version)
		if allowed != t.Negative {
			return satisfied
		}
		return unsatisfiable
	}

	cs, has := s.constraints[name]
	if !has {
		return satisfiable
	}

	if cs.isPositive() {
		return positiveSatisfaction(*cs.positive, t)
	}
	return negativeSatisfaction(cs.negatives, t)
}

func positiveSatisfaction(c PackageDep, t Term) satisfaction {
	if !samePackage(c.Ref, t.Dep.Ref) {
		// The positive state pins the package tuple. A positive term about
		// another instance of the name can never hold; a negative one
		// already does.
		if t.Negative {
			return satisfied
		}
		return unsatisfiable
	}

	if t.Negative {
		if t.Dep.constraintOrAny().AllowsAll(c.constraintOrAny()) {
			return unsatisfiable
		}
		return satisfiable
	}

	if c.constraintOrAny().IsEmpty() {
		// A contradictory positive state satisfies nothing; the positive
		// term is doomed along with it.
		return unsatisfiable
	}

	switch {
	case t.Dep.constraintOrAny().AllowsAll(c.constraintOrAny()):
		return satisfied
	case t.Dep.constraintOrAny().AllowsAny(c.constraintOrAny()):
		return satisfiable
	default:
		return unsatisfiable
	}
}

func negativeSatisfaction(negs []PackageDep, t Term) satisfaction {
	for _, neg := range negs {
		if !samePackage(neg.Ref, t.Dep.Ref) {
			continue
		}
		if neg.constraintOrAny().AllowsAll(t.Dep.constraintOrAny()) {
			// The term's whole range is already forbidden.
			if t.Negative {
				return satisfied
			}
			return unsatisfiable
		}
	}
	return satisfiable
}
