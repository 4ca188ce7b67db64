package solvent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermEquality(t *testing.T) {
	a := positive(dep("foo", "^1.0.0"))
	b := positive(dep("foo", ">=1.0.0 <2.0.0"))
	assert.True(t, a.equal(b), "equivalent constraints must make equal terms")
	assert.Equal(t, a.key(), b.key())

	assert.False(t, a.equal(negative(dep("foo", "^1.0.0"))))
	assert.False(t, a.equal(positive(dep("bar", "^1.0.0"))))
}

func TestTermSatisfiedBy(t *testing.T) {
	pos := positive(dep("foo", "^1.0.0"))
	assert.True(t, pos.satisfiedBy(mkv("1.5.0")))
	assert.False(t, pos.satisfiedBy(mkv("2.0.0")))

	neg := negative(dep("foo", "^1.0.0"))
	assert.False(t, neg.satisfiedBy(mkv("1.5.0")))
	assert.True(t, neg.satisfiedBy(mkv("2.0.0")))
}

func TestClauseShapes(t *testing.T) {
	req := newRequirement(dep("foo", "^1.0.0"), rootCause{rootName: "root"})
	require.Len(t, req.terms, 1)
	assert.False(t, req.terms[0].Negative)

	pro := newProhibition(dep("foo", "^1.0.0"), noVersionsCause{})
	require.Len(t, pro.terms, 1)
	assert.True(t, pro.terms[0].Negative)

	d := newDependency(dep("bar", "1.0.0"), dep("foo", "^2.0.0"))
	require.Len(t, d.terms, 2)
	assert.True(t, d.terms[0].Negative)
	assert.False(t, d.terms[1].Negative)
	_, is := d.cause.(dependencyCause)
	assert.True(t, is)
}

func TestClauseKeyOrderIndependent(t *testing.T) {
	a := &Clause{terms: []Term{negative(dep("bar", "1.0.0")), positive(dep("foo", "^2.0.0"))}}
	b := &Clause{terms: []Term{positive(dep("foo", "^2.0.0")), negative(dep("bar", "1.0.0"))}}
	assert.Equal(t, a.key(), b.key())
}

// Backjump validity: restoring to a decision depth must reproduce the
// constraint and implication maps exactly as they were captured.
func TestBackjumpRestoresSnapshots(t *testing.T) {
	s := newTestSolver()

	s.pushSnapshots()
	s.decisions = append(s.decisions, PackageID{Ref: ref("root"), Version: mkv("0.0.0")})
	s.decisionsByName["root"] = s.decisions[0]

	s.constraints["foo"] = stateFromTerm(positive(dep("foo", "^1.0.0")))
	s.recordImplication(positive(dep("foo", "^1.0.0")),
		newRequirement(dep("foo", "^1.0.0"), rootCause{rootName: "root"}))

	s.pushSnapshots()
	s.decisions = append(s.decisions, PackageID{Ref: ref("foo"), Version: mkv("1.0.0")})
	s.decisionsByName["foo"] = s.decisions[1]

	delete(s.constraints, "foo")
	s.constraints["bar"] = stateFromTerm(positive(dep("bar", "^3.0.0")))
	s.recordImplication(positive(dep("bar", "^3.0.0")),
		newDependency(dep("foo", "1.0.0"), dep("bar", "^3.0.0")))

	s.backjumpTo(1)

	require.Len(t, s.decisions, 1)
	_, fooDecided := s.decisionsByName["foo"]
	assert.False(t, fooDecided)

	require.Contains(t, s.constraints, "foo")
	assert.True(t, s.constraints["foo"].equal(stateFromTerm(positive(dep("foo", "^1.0.0")))))
	assert.NotContains(t, s.constraints, "bar")

	require.Len(t, s.implications["foo"], 1)
	assert.Empty(t, s.implications["bar"])
	assert.Equal(t, 1, s.attempts)
}
