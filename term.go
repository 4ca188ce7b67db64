package solvent

// A Term is one signed atomic predicate over a package: either "a version
// admitted by this dep is selected" (positive) or its negation. Terms are
// value types; two terms with the same dep and sign are the same term.
type Term struct {
	Dep      PackageDep
	Negative bool
}

func positive(dep PackageDep) Term {
	return Term{Dep: dep}
}

func negative(dep PackageDep) Term {
	return Term{Dep: dep, Negative: true}
}

func (t Term) String() string {
	if t.Negative {
		return "not " + t.Dep.String()
	}
	return t.Dep.String()
}

// key is a canonical identity for maps. The constraint's canonical
// rendering stands in for structural hashing.
func (t Term) key() string {
	sign := "+"
	if t.Negative {
		sign = "-"
	}
	return sign + t.Dep.Ref.key() + "\x00" + t.Dep.constraintOrAny().String()
}

func (t Term) equal(o Term) bool {
	return t.Negative == o.Negative &&
		t.Dep.Ref == o.Dep.Ref &&
		constraintEqual(t.Dep.constraintOrAny(), o.Dep.constraintOrAny())
}

// satisfiedBy reports whether selecting version v of the term's package
// satisfies the term.
func (t Term) satisfiedBy(v Version) bool {
	return t.Dep.allows(v) != t.Negative
}
