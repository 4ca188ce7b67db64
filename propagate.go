package solvent

import (
	"github.com/sirupsen/logrus"
)

// An implication records why a term was forced: the other terms of the
// clause that derived it, and the clause itself. Entries accumulate per
// package name and are snapshotted alongside the constraint map.
type implication struct {
	term    Term
	reasons []Term
	from    *Clause
}

// addClause registers a clause and runs unit propagation over it. A clause
// that is already unsatisfiable triggers a backjump through the transitive
// implicators of its terms and is then re-evaluated against the restored
// state.
func (s *solver) addClause(c *Clause) error {
	key := c.key()
	if _, dup := s.clauseKeys[key]; !dup {
		s.clauseKeys[key] = struct{}{}
		s.clauses = append(s.clauses, c)
		seen := make(map[string]bool, len(c.terms))
		for _, t := range c.terms {
			name := t.Dep.Ref.Name
			if !seen[name] {
				seen[name] = true
				s.byName[name] = append(s.byName[name], c)
			}
		}
		if s.l.Level >= logrus.DebugLevel {
			s.l.WithField("clause", c.String()).Debug("Added clause")
		}
	}

	for {
		unit, conflict := s.unitToPropagate(c)
		if conflict {
			learned, err := s.resolveConflict(nil, c)
			if err != nil {
				return err
			}
			if learned != nil {
				return s.addClause(learned)
			}
			// Pure backjump; the clause may propagate against the
			// restored state.
			continue
		}
		if unit == nil {
			return nil
		}
		return s.propagateUnit(*unit)
	}
}

// unitToPropagate computes the clause's status under the current state: nil
// when it already holds or still has several open terms, the unique
// satisfiable term when the clause is unit, or a conflict when every term
// is unsatisfiable. Deriving a unit records its implication.
func (s *solver) unitToPropagate(c *Clause) (*Term, bool) {
	var unit *Term
	for i := range c.terms {
		switch s.satisfaction(c.terms[i]) {
		case satisfied:
			return nil, false
		case satisfiable:
			if unit != nil {
				// More than one open term - nothing is forced yet.
				return nil, false
			}
			unit = &c.terms[i]
		}
	}
	if unit == nil {
		return nil, true
	}

	s.recordImplication(*unit, c)
	return unit, false
}

func (s *solver) recordImplication(u Term, c *Clause) {
	var reasons []Term
	for _, t := range c.terms {
		if !t.equal(u) {
			reasons = append(reasons, t)
		}
	}

	name := u.Dep.Ref.Name
	entries := s.implications[name]
	for i := range entries {
		if entries[i].term.equal(u) {
			merged := entries[i]
		outer:
			for _, r := range reasons {
				for _, have := range merged.reasons {
					if have.equal(r) {
						continue outer
					}
				}
				merged.reasons = append(merged.reasons, r)
			}
			merged.from = c
			entries[i] = merged
			return
		}
	}
	s.implications[name] = append(entries, implication{term: u, reasons: reasons, from: c})
}

// propagateUnit asserts a derived term and works the consequences through
// the clause set until a fixpoint or a conflict. On conflict the learned
// clause is added (which backjumps first) and propagation is abandoned;
// the decision loop reschedules from the restored state.
func (s *solver) propagateUnit(first Term) error {
	work := []Term{first}
	for len(work) > 0 {
		t := work[0]
		work = work[1:]
		name := t.Dep.Ref.Name

		old, has := s.constraints[name]
		var next constraintState
		if has {
			next = old.withTerm(t)
		} else {
			next = stateFromTerm(t)
		}
		next = s.maximizeState(next)
		if has && next.equal(old) {
			continue
		}
		s.constraints[name] = next

		if next.isPositive() && next.positive.constraintOrAny().IsEmpty() {
			// The accumulated positive obligations just became mutually
			// exclusive. Resolve against the clause that asserted t.
			_, from, _ := s.reasonFor(t)
			if from == nil {
				from = newProhibition(*next.positive, noVersionsCause{dep: *next.positive})
			}
			tt := t
			learned, err := s.resolveConflict(&tt, from)
			if err != nil {
				return err
			}
			if learned == nil {
				return nil
			}
			return s.addClause(learned)
		}

		if s.l.Level >= logrus.DebugLevel {
			s.l.WithFields(logrus.Fields{
				"term":  t.String(),
				"state": next.String(),
			}).Debug("Constraint state updated")
		}

		for _, c := range s.byName[name] {
			unit, conflict := s.unitToPropagate(c)
			if conflict {
				tt := t
				learned, err := s.resolveConflict(&tt, c)
				if err != nil {
					return err
				}
				if learned == nil {
					return nil
				}
				return s.addClause(learned)
			}
			if unit != nil {
				work = append(work, *unit)
			}
		}
	}
	return nil
}

// maximizeState rewrites a positive state's constraint against the
// package's base, once the base is known, so derived constraints stay in
// canonical maximal form.
func (s *solver) maximizeState(cs constraintState) constraintState {
	if !cs.isPositive() {
		return cs
	}
	norm, has := s.norms[cs.positive.Ref.key()]
	if !has {
		return cs
	}
	dep := cs.positive.withConstraint(norm.maximize(cs.positive.constraintOrAny()))
	return constraintState{positive: &dep}
}

// reasonFor collects the recorded ancestry of a term. The accumulated
// constraint state for a package folds every implication about it together,
// so the ancestry of any term over that name is the merged reasons of all
// its entries - an over-approximation that can only make a backjump land
// shallower. An exact entry for the term, when present, fixes the source
// clause.
func (s *solver) reasonFor(t Term) (reasons []Term, from *Clause, found bool) {
	entries := s.implications[t.Dep.Ref.Name]
	for i := range entries {
		if entries[i].term.equal(t) && len(entries[i].reasons) > 0 {
			from = entries[i].from
			break
		}
	}
	var fallback *Clause
	for i := range entries {
		found = true
		if fallback == nil {
			fallback = entries[i].from
		}
		if from == nil && len(entries[i].reasons) > 0 {
			from = entries[i].from
		}
	merge:
		for _, r := range entries[i].reasons {
			for _, have := range reasons {
				if have.equal(r) {
					continue merge
				}
			}
			reasons = append(reasons, r)
		}
	}
	if from == nil {
		from = fallback
	}
	return reasons, from, found
}

// transitiveImplicators closes a term set over the implication graph and
// returns the package refs involved.
func (s *solver) transitiveImplicators(terms []Term) map[string]struct{} {
	refs := make(map[string]struct{})
	seen := make(map[string]struct{})
	queue := append([]Term(nil), terms...)
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		k := t.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		refs[t.Dep.Ref.key()] = struct{}{}

		reasons, _, _ := s.reasonFor(t)
		queue = append(queue, reasons...)
	}
	return refs
}

// resolveConflict handles clause c found unsatisfiable. When t is non-nil
// it is the term whose assertion exposed the conflict; its recorded reasons
// replace its package's terms in the learned clause, the classic resolution
// step. The solver backjumps to the most recent decision among the
// transitive implicators and returns the learned clause; with no such
// decision the conflict is terminal and a SolveFailure comes back as the
// error.
func (s *solver) resolveConflict(t *Term, c *Clause) (*Clause, error) {
	if s.l.Level >= logrus.DebugLevel {
		s.l.WithFields(logrus.Fields{
			"clause":    c.String(),
			"decisions": len(s.decisions),
		}).Debug("Conflict encountered")
	}

	if t == nil {
		// Conflict on clause arrival: no single asserted term to resolve
		// against. Try the plain backjump first; re-evaluation happens in
		// addClause.
		if idx, ok := s.backjumpTarget(s.transitiveImplicators(c.terms)); ok {
			s.backjumpTo(idx)
			return nil, nil
		}
		// Nowhere to jump: fall through into resolution so the failure
		// carries its derivation.
	}

	cur := c
	curT := t
	for round := 0; round < maxResolveRounds; round++ {
		var reasons []Term
		var from *Clause
		if curT != nil {
			reasons, from, _ = s.reasonFor(*curT)
		}

		implicators := resolveTerms(cur, curT, reasons)
		if len(implicators) == 0 {
			return nil, s.terminalFailure(cur, from)
		}

		if idx, ok := s.backjumpTarget(s.transitiveImplicators(implicators)); ok {
			learned := newLearned(implicators, conflictCause{conflict: cur, other: from})
			s.backjumpTo(idx)
			if s.l.Level >= logrus.InfoLevel {
				s.l.WithFields(logrus.Fields{
					"learned":   learned.String(),
					"decisions": len(s.decisions),
				}).Info("Learned clause from conflict")
			}
			return learned, nil
		}

		// No decision to undo; keep resolving toward the root.
		next := newLearned(implicators, conflictCause{conflict: cur, other: from})
		cur = next
		curT = nil
		for i := range cur.terms {
			if _, _, found := s.reasonFor(cur.terms[i]); found {
				curT = &cur.terms[i]
				break
			}
		}
		if curT == nil {
			return nil, s.terminalFailure(cur, nil)
		}
	}
	return nil, s.terminalFailure(cur, nil)
}

const maxResolveRounds = 10000

// resolveTerms merges the conflicting clause's terms about other packages
// with the asserted term's reasons, deduplicated in input order.
func resolveTerms(c *Clause, t *Term, reasons []Term) []Term {
	var out []Term
	add := func(candidate Term) {
		for _, have := range out {
			if have.equal(candidate) {
				return
			}
		}
		out = append(out, candidate)
	}
	for _, r := range reasons {
		add(r)
	}
	for _, u := range c.terms {
		if t == nil || u.Dep.Ref.Name != t.Dep.Ref.Name {
			add(u)
		}
	}
	return out
}

// backjumpTarget finds the greatest decision index whose package is among
// the given refs. The root decision at index zero is not a jump target.
func (s *solver) backjumpTarget(refs map[string]struct{}) (int, bool) {
	for i := len(s.decisions) - 1; i >= 1; i-- {
		if _, has := refs[s.decisions[i].Ref.key()]; has {
			return i, true
		}
	}
	return 0, false
}

// backjumpTo unwinds the decision stack to just before index i, restoring
// the constraint and implication maps from the snapshots captured when that
// decision was made.
func (s *solver) backjumpTo(i int) {
	if s.l.Level >= logrus.InfoLevel {
		s.l.WithFields(logrus.Fields{
			"from": len(s.decisions),
			"to":   i,
		}).Info("Backjumping")
	}

	for j := i; j < len(s.decisions); j++ {
		delete(s.decisionsByName, s.decisions[j].Ref.Name)
	}
	s.decisions = s.decisions[:i]

	s.constraints = s.constraintsStack[i]
	s.implications = s.implicationsStack[i]
	s.constraintsStack = s.constraintsStack[:i]
	s.implicationsStack = s.implicationsStack[:i]
	s.attempts++
}

// pushSnapshots captures the constraint and implication maps ahead of a
// decision. Full copies per decision: clear, and cheap at the scale of a
// dependency graph.
func (s *solver) pushSnapshots() {
	cons := make(map[string]constraintState, len(s.constraints))
	for k, v := range s.constraints {
		cons[k] = v
	}

	impls := make(map[string][]implication, len(s.implications))
	for k, entries := range s.implications {
		cp := make([]implication, len(entries))
		for i, e := range entries {
			cp[i] = implication{
				term:    e.term,
				reasons: append([]Term(nil), e.reasons...),
				from:    e.from,
			}
		}
		impls[k] = cp
	}

	s.constraintsStack = append(s.constraintsStack, cons)
	s.implicationsStack = append(s.implicationsStack, impls)
}
