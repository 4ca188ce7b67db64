package solvent

// constraintState is the accumulated evidence about one package name,
// derived by unit propagation. It is either positive - a single dep holding
// the running intersection of every positive obligation - or negative - a
// list of forbidden deps, all sharing the name, distinguished by source and
// description.
type constraintState struct {
	positive  *PackageDep
	negatives []PackageDep
}

func stateFromTerm(t Term) constraintState {
	dep := t.Dep
	if t.Negative {
		return constraintState{negatives: []PackageDep{dep}}
	}
	return constraintState{positive: &dep}
}

func (cs constraintState) isPositive() bool {
	return cs.positive != nil
}

func (cs constraintState) name() string {
	if cs.positive != nil {
		return cs.positive.Ref.Name
	}
	return cs.negatives[0].Ref.Name
}

// withTerm folds additional evidence into the state and returns the result.
// If nothing new was learned the result compares equal to the receiver.
// The term's package name must match the state's name.
func (cs constraintState) withTerm(t Term) constraintState {
	if cs.isPositive() {
		return cs.positiveWithTerm(t)
	}
	return cs.negativeWithTerm(t)
}

func (cs constraintState) positiveWithTerm(t Term) constraintState {
	cur := *cs.positive
	if !samePackage(cur.Ref, t.Dep.Ref) {
		// A positive state fixes the package tuple; a term about a
		// different instance of the name is independent evidence.
		return cs
	}

	var c VersionConstraint
	if t.Negative {
		c = cur.constraintOrAny().Difference(t.Dep.constraintOrAny())
	} else {
		c = cur.constraintOrAny().Intersect(t.Dep.constraintOrAny())
	}
	if constraintEqual(c, cur.constraintOrAny()) {
		return cs
	}

	ref := cur.Ref
	if !t.Negative && !c.IsEmpty() {
		ref = t.Dep.Ref
	}
	dep := PackageDep{Ref: ref, Constraint: c}
	return constraintState{positive: &dep}
}

func (cs constraintState) negativeWithTerm(t Term) constraintState {
	if !t.Negative {
		for _, neg := range cs.negatives {
			if samePackage(neg.Ref, t.Dep.Ref) {
				dep := t.Dep.withConstraint(
					t.Dep.constraintOrAny().Difference(neg.constraintOrAny()))
				return constraintState{positive: &dep}
			}
		}
		dep := t.Dep
		return constraintState{positive: &dep}
	}

	for i, neg := range cs.negatives {
		if samePackage(neg.Ref, t.Dep.Ref) {
			merged := neg.constraintOrAny().Union(t.Dep.constraintOrAny())
			if constraintEqual(merged, neg.constraintOrAny()) {
				return cs
			}
			out := make([]PackageDep, len(cs.negatives))
			copy(out, cs.negatives)
			out[i] = neg.withConstraint(merged)
			return constraintState{negatives: out}
		}
	}

	out := make([]PackageDep, len(cs.negatives), len(cs.negatives)+1)
	copy(out, cs.negatives)
	return constraintState{negatives: append(out, t.Dep)}
}

func (cs constraintState) equal(o constraintState) bool {
	if cs.isPositive() != o.isPositive() {
		return false
	}
	if cs.isPositive() {
		return cs.positive.Ref == o.positive.Ref &&
			constraintEqual(cs.positive.constraintOrAny(), o.positive.constraintOrAny())
	}
	if len(cs.negatives) != len(o.negatives) {
		return false
	}
	for i := range cs.negatives {
		if cs.negatives[i].Ref != o.negatives[i].Ref ||
			!constraintEqual(cs.negatives[i].constraintOrAny(), o.negatives[i].constraintOrAny()) {
			return false
		}
	}
	return true
}

func (cs constraintState) String() string {
	if cs.isPositive() {
		return cs.positive.String()
	}
	s := "not " + cs.negatives[0].String()
	for _, neg := range cs.negatives[1:] {
		s += ", not " + neg.String()
	}
	return s
}
