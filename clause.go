package solvent

import (
	"sort"
	"strings"
)

// A Clause is a disjunction of terms: at least one must hold in any
// complete assignment. The solver only ever builds three primitive shapes -
// requirement [+d], prohibition [-d], and dependency [-a, +b] - plus
// learned clauses derived from conflicts.
//
// The cause records where the clause came from, for failure explanation. It
// takes no part in clause identity.
type Clause struct {
	terms []Term
	cause Cause
}

// newRequirement demands that some version of dep be selected.
func newRequirement(dep PackageDep, cause Cause) *Clause {
	return &Clause{terms: []Term{positive(dep)}, cause: cause}
}

// newProhibition forbids every version admitted by dep.
func newProhibition(dep PackageDep, cause Cause) *Clause {
	return &Clause{terms: []Term{negative(dep)}, cause: cause}
}

// newDependency encodes "selecting from depender implies selecting from
// target" as the disjunction (not depender) or target.
func newDependency(depender, target PackageDep) *Clause {
	return &Clause{
		terms: []Term{negative(depender), positive(target)},
		cause: dependencyCause{depender: depender, target: target},
	}
}

// newLearned builds a conflict-learned clause from the implicator set.
func newLearned(terms []Term, cause Cause) *Clause {
	return &Clause{terms: terms, cause: cause}
}

// key is a canonical identity for the clause set: term keys, order
// independent.
func (c *Clause) key() string {
	ks := make([]string, len(c.terms))
	for i, t := range c.terms {
		ks[i] = t.key()
	}
	sort.Strings(ks)
	return strings.Join(ks, "\x01")
}

func (c *Clause) String() string {
	parts := make([]string, len(c.terms))
	for i, t := range c.terms {
		parts[i] = t.String()
	}
	return "{" + strings.Join(parts, " or ") + "}"
}

// A Cause tags a clause with its provenance. External causes are facts fed
// into the solver; a conflict cause links a learned clause back to the two
// clauses it was derived from, forming the DAG the failure writer walks.
type Cause interface {
	isCause()
}

// rootCause marks a requirement taken from the root manifest.
type rootCause struct {
	rootName string
}

// dependencyCause marks a dependency edge read from a manifest.
type dependencyCause struct {
	depender PackageDep
	target   PackageDep
}

// noVersionsCause marks a prohibition learned because the oracle listed
// versions for the package but none inside the requested constraint.
type noVersionsCause struct {
	dep PackageDep
}

// notFoundCause marks a prohibition learned because the oracle does not
// know the package at all.
type notFoundCause struct {
	ref PackageRef
}

// sdkCause marks a prohibition over a run of versions whose manifests are
// incompatible with the probed SDK.
type sdkCause struct {
	dep        PackageDep
	constraint VersionConstraint
	framework  bool
}

// conflictCause links a learned clause to the clause that went
// unsatisfiable and the clause that forced the implicated term.
type conflictCause struct {
	conflict *Clause
	other    *Clause
}

func (rootCause) isCause()       {}
func (dependencyCause) isCause() {}
func (noVersionsCause) isCause() {}
func (notFoundCause) isCause()   {}
func (sdkCause) isCause()        {}
func (conflictCause) isCause()   {}
