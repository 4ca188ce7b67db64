package solvent

import (
	"fmt"
	"strings"
)

// explainFailure renders the derivation proof for a root incompatibility as
// numbered, word-wrapped prose. Derivations referenced more than once get a
// line number and are cited by it; single-use derivations are inlined into
// their parent with an "And because" continuation.
func explainFailure(root *Clause, rootRef PackageRef) string {
	w := &failureWriter{
		refCounts: make(map[*Clause]int),
		numbers:   make(map[*Clause]int),
		rootRef:   rootRef,
	}
	w.refString = buildRefStrings(root)
	if !isDerived(root) {
		w.write(root, fmt.Sprintf("Because %s, version solving failed.", w.externalPhrase(root)))
		return w.format()
	}
	w.countRefs(root, make(map[*Clause]bool))
	w.visit(root, true)
	return w.format()
}

type failureLine struct {
	text   string
	number int
}

type failureWriter struct {
	refCounts map[*Clause]int
	numbers   map[*Clause]int
	next      int
	lines     []failureLine
	rootRef   PackageRef
	refString func(PackageRef) string
}

// buildRefStrings decides how each package ref is printed: bare name
// normally, name plus source/description detail when two distinct packages
// in the proof share a name.
func buildRefStrings(root *Clause) func(PackageRef) string {
	byName := make(map[string]map[PackageRef]bool)
	var walk func(c *Clause, seen map[*Clause]bool)
	walk = func(c *Clause, seen map[*Clause]bool) {
		if c == nil || seen[c] {
			return
		}
		seen[c] = true
		for _, t := range c.terms {
			refs := byName[t.Dep.Ref.Name]
			if refs == nil {
				refs = make(map[PackageRef]bool)
				byName[t.Dep.Ref.Name] = refs
			}
			refs[t.Dep.Ref] = true
		}
		if cc, ok := c.cause.(conflictCause); ok {
			walk(cc.conflict, seen)
			walk(cc.other, seen)
		}
	}
	walk(root, make(map[*Clause]bool))

	return func(r PackageRef) string {
		if len(byName[r.Name]) > 1 {
			return r.detailString()
		}
		return r.Name
	}
}

func (w *failureWriter) countRefs(c *Clause, seen map[*Clause]bool) {
	cc, ok := c.cause.(conflictCause)
	if !ok {
		return
	}
	for _, child := range []*Clause{cc.conflict, cc.other} {
		if child == nil {
			continue
		}
		w.refCounts[child]++
		if !seen[child] {
			seen[child] = true
			w.countRefs(child, seen)
		}
	}
}

func isDerived(c *Clause) bool {
	if c == nil {
		return false
	}
	_, ok := c.cause.(conflictCause)
	return ok
}

// visit writes the derivation of c, children first, ending with the line
// that states c itself.
func (w *failureWriter) visit(c *Clause, conclusion bool) {
	cc := c.cause.(conflictCause)
	conflict, other := cc.conflict, cc.other

	this := w.phrase(c)
	if conclusion {
		this = "version solving failed"
	}

	because := "Because"
	so := "And because"
	if conclusion {
		so = "So, because"
	}

	switch {
	case isDerived(conflict) && isDerived(other):
		ni, iHas := w.numbers[conflict]
		nj, jHas := w.numbers[other]
		switch {
		case iHas && jHas:
			w.write(c, fmt.Sprintf("%s %s (%d) and %s (%d), %s.",
				because, w.phrase(conflict), ni, w.phrase(other), nj, this))
		case iHas:
			w.visit(other, false)
			w.write(c, fmt.Sprintf("%s %s (%d), %s.", so, w.phrase(conflict), ni, this))
		case jHas:
			w.visit(conflict, false)
			w.write(c, fmt.Sprintf("%s %s (%d), %s.", so, w.phrase(other), nj, this))
		default:
			w.visit(conflict, false)
			w.forceNumber(conflict)
			w.visit(other, false)
			w.write(c, fmt.Sprintf("%s %s (%d), %s.",
				so, w.phrase(conflict), w.numbers[conflict], this))
		}

	case isDerived(conflict) || isDerived(other):
		derived, external := conflict, other
		if isDerived(other) {
			derived, external = other, conflict
		}

		if n, has := w.numbers[derived]; has {
			w.write(c, fmt.Sprintf("%s %s and %s (%d), %s.",
				because, w.externalPhrase(external), w.phrase(derived), n, this))
			return
		}

		// Collapse a single-use derivation with exactly one external and
		// one derived predecessor: its external joins this line instead of
		// getting a line of its own.
		if w.refCounts[derived] <= 1 {
			dc := derived.cause.(conflictCause)
			dConf, dOther := dc.conflict, dc.other
			if isDerived(dConf) != isDerived(dOther) {
				inner, innerExt := dConf, dOther
				if isDerived(dOther) {
					inner, innerExt = dOther, dConf
				}
				w.visit(inner, false)
				w.write(c, fmt.Sprintf("%s %s and %s, %s.",
					so, w.externalPhrase(innerExt), w.externalPhrase(external), this))
				return
			}
		}

		w.visit(derived, false)
		w.write(c, fmt.Sprintf("%s %s, %s.", so, w.externalPhrase(external), this))

	default:
		if other == nil {
			w.write(c, fmt.Sprintf("%s %s, %s.", because, w.externalPhrase(conflict), this))
			return
		}
		w.write(c, fmt.Sprintf("%s %s and %s, %s.",
			because, w.externalPhrase(conflict), w.externalPhrase(other), this))
	}
}

func (w *failureWriter) write(c *Clause, text string) {
	n := 0
	if w.refCounts[c] > 1 {
		n = w.assignNumber(c)
	}
	w.lines = append(w.lines, failureLine{text: text, number: n})
}

func (w *failureWriter) forceNumber(c *Clause) {
	if _, has := w.numbers[c]; has {
		return
	}
	n := w.assignNumber(c)
	if len(w.lines) > 0 {
		w.lines[len(w.lines)-1].number = n
	}
}

func (w *failureWriter) assignNumber(c *Clause) int {
	if n, has := w.numbers[c]; has {
		return n
	}
	w.next++
	w.numbers[c] = w.next
	return w.next
}

// externalPhrase states a leaf clause: the fact fed into the solver that it
// represents.
func (w *failureWriter) externalPhrase(c *Clause) string {
	if c == nil {
		return "of the above"
	}
	switch cause := c.cause.(type) {
	case rootCause:
		return fmt.Sprintf("%s depends on %s", cause.rootName, w.dep(c.terms[0].Dep))
	case dependencyCause:
		return fmt.Sprintf("%s depends on %s", w.dep(cause.depender), w.dep(cause.target))
	case noVersionsCause:
		return fmt.Sprintf("no versions of %s match %s",
			w.refString(cause.dep.Ref), cause.dep.constraintOrAny())
	case notFoundCause:
		return fmt.Sprintf("%s doesn't exist", w.refString(cause.ref))
	case sdkCause:
		kind := "the SDK version"
		if cause.framework {
			kind = "the framework SDK version"
		}
		return fmt.Sprintf("%s requires %s %s", w.dep(cause.dep), kind, cause.constraint)
	default:
		return w.phrase(c)
	}
}

// phrase states a clause by its terms, for derived clauses with no single
// external fact behind them.
func (w *failureWriter) phrase(c *Clause) string {
	var pos, neg []PackageDep
	for _, t := range c.terms {
		if t.Negative {
			neg = append(neg, t.Dep)
		} else {
			pos = append(pos, t.Dep)
		}
	}

	switch {
	case len(pos) == 1 && len(neg) == 0:
		if samePackage(pos[0].Ref, w.rootRef) {
			return "version solving failed"
		}
		return fmt.Sprintf("%s is required", w.dep(pos[0]))
	case len(pos) == 0 && len(neg) == 1:
		return fmt.Sprintf("%s is forbidden", w.dep(neg[0]))
	case len(pos) == 1 && len(neg) == 1:
		return fmt.Sprintf("%s requires %s", w.dep(neg[0]), w.dep(pos[0]))
	case len(pos) == 0 && len(neg) == 2:
		return fmt.Sprintf("%s is incompatible with %s", w.dep(neg[0]), w.dep(neg[1]))
	default:
		parts := make([]string, len(c.terms))
		for i, t := range c.terms {
			parts[i] = t.String()
		}
		return strings.Join(parts, " or ")
	}
}

func (w *failureWriter) dep(d PackageDep) string {
	name := w.refString(d.Ref)
	c := d.constraintOrAny()
	if c.IsAny() {
		return "every version of " + name
	}
	return name + " " + c.String()
}

// format word-wraps the lines, reserving a left gutter for line numbers
// when any were assigned.
func (w *failureWriter) format() string {
	gutter := 0
	for _, line := range w.lines {
		if line.number > 0 {
			if g := len(fmt.Sprintf("(%d) ", line.number)); g > gutter {
				gutter = g
			}
		}
	}

	var buf strings.Builder
	for _, line := range w.lines {
		prefix := strings.Repeat(" ", gutter)
		if line.number > 0 {
			prefix = fmt.Sprintf("(%d) ", line.number)
			prefix += strings.Repeat(" ", gutter-len(prefix))
		}
		for i, wrapped := range wrapText(line.text, 79-gutter) {
			if i == 0 {
				buf.WriteString(prefix)
			} else {
				buf.WriteString(strings.Repeat(" ", gutter+2))
			}
			buf.WriteString(wrapped)
			buf.WriteByte('\n')
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var out []string
	cur := words[0]
	for _, word := range words[1:] {
		if len(cur)+1+len(word) > width {
			out = append(out, cur)
			cur = word
			continue
		}
		cur += " " + word
	}
	return append(out, cur)
}
