package solvent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConstraint(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"any", "any"},
		{"*", "any"},
		{"none", "none"},
		{"1.2.3", "1.2.3"},
		{"=1.2.3", "1.2.3"},
		{"^1.2.3", "^1.2.3"},
		{"^0.2.3", "^0.2.3"},
		{">=1.0.0 <2.0.0", "^1.0.0"},
		{">=1.0.0, <3.0.0", ">=1.0.0 <3.0.0"},
		{">1.0.0", ">1.0.0"},
		{"<=2.0.0", "<=2.0.0"},
		{"^1.0.0 || ^3.0.0", "^1.0.0 or ^3.0.0"},
	} {
		c, err := ParseConstraint(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, c.String(), tc.in)
	}

	_, err := ParseConstraint(">=banana")
	assert.Error(t, err)
}

func TestRangeAllows(t *testing.T) {
	c := mkc(">=1.0.0 <2.0.0")
	assert.True(t, c.Allows(mkv("1.0.0")))
	assert.True(t, c.Allows(mkv("1.9.9")))
	assert.False(t, c.Allows(mkv("2.0.0")))
	assert.False(t, c.Allows(mkv("0.9.9")))

	open := mkc(">1.0.0")
	assert.False(t, open.Allows(mkv("1.0.0")))
	assert.True(t, open.Allows(mkv("1.0.1")))

	assert.True(t, anyVersion.Allows(mkv("0.0.1")))
	assert.False(t, none.Allows(mkv("0.0.1")))
}

func TestIntersect(t *testing.T) {
	for _, tc := range []struct {
		a, b, want string
	}{
		{"^1.0.0", ">=1.5.0", "^1.5.0"},
		{"^1.0.0", "^2.0.0", "none"},
		{"^1.0.0", "any", "^1.0.0"},
		{"<=2.0.0", ">=2.0.0", "2.0.0"},
		{"<2.0.0", ">=2.0.0", "none"},
		{"^1.0.0 || ^3.0.0", ">=1.5.0 <3.5.0", "^1.5.0 or >=3.0.0 <3.5.0"},
	} {
		got := mkc(tc.a).Intersect(mkc(tc.b))
		assert.Equal(t, tc.want, got.String(), "%s ∩ %s", tc.a, tc.b)
		com := mkc(tc.b).Intersect(mkc(tc.a))
		assert.True(t, constraintEqual(got, com), "intersection must commute for %s, %s", tc.a, tc.b)
	}
}

func TestUnion(t *testing.T) {
	for _, tc := range []struct {
		a, b, want string
	}{
		{"^1.0.0", "^2.0.0", ">=1.0.0 <3.0.0"},
		{"^1.0.0", "^3.0.0", "^1.0.0 or ^3.0.0"},
		{"<1.5.0", ">=1.5.0", "any"},
		{"1.0.0", "1.0.0", "1.0.0"},
		{">=1.0.0 <1.5.0", ">=1.2.0 <2.0.0", "^1.0.0"},
	} {
		got := mkc(tc.a).Union(mkc(tc.b))
		assert.Equal(t, tc.want, got.String(), "%s ∪ %s", tc.a, tc.b)
	}
}

func TestDifference(t *testing.T) {
	for _, tc := range []struct {
		a, b, want string
	}{
		{"^1.0.0", ">=1.5.0", ">=1.0.0 <1.5.0"},
		{"^1.0.0", "1.2.0", ">=1.0.0 <1.2.0 or >1.2.0 <2.0.0"},
		{"any", "^1.0.0", "<1.0.0 or >=2.0.0"},
		{"^1.0.0", "any", "none"},
		{"^1.0.0", "^2.0.0", "^1.0.0"},
		{"^1.0.0 || ^3.0.0", "^3.0.0", "^1.0.0"},
	} {
		got := mkc(tc.a).Difference(mkc(tc.b))
		assert.Equal(t, tc.want, got.String(), "%s \\ %s", tc.a, tc.b)
	}
}

func TestAllowsAllAndAny(t *testing.T) {
	assert.True(t, mkc("^1.0.0").AllowsAll(mkc(">=1.2.0 <1.5.0")))
	assert.False(t, mkc("^1.0.0").AllowsAll(mkc(">=1.2.0 <2.5.0")))
	assert.True(t, mkc("any").AllowsAll(mkc("^1.0.0 || ^4.0.0")))
	// A range spanning a union's gap is not covered even though both of
	// its endpoints are.
	assert.False(t, mkc("^1.0.0 || ^3.0.0").AllowsAll(mkc(">=1.5.0 <3.5.0")))

	assert.True(t, mkc("^1.0.0").AllowsAny(mkc(">=1.9.0")))
	assert.False(t, mkc("^1.0.0").AllowsAny(mkc(">=2.0.0")))
	assert.False(t, mkc("^1.0.0").AllowsAny(none))
}

func TestConstraintCanonicalForms(t *testing.T) {
	// Exact bounds collapse to the bare version.
	r := VersionRange{Min: mkv("1.0.0"), Max: mkv("1.0.0"), IncludeMin: true, IncludeMax: true}
	assert.Equal(t, "1.0.0", r.String())

	// Unions sort and merge their inputs.
	u := unionOf([]VersionRange{
		CompatibleWith(mkv("3.0.0")),
		CompatibleWith(mkv("1.0.0")),
		CompatibleWith(mkv("2.0.0")),
	})
	assert.Equal(t, ">=1.0.0 <4.0.0", u.String())

	gapped := unionOf([]VersionRange{
		CompatibleWith(mkv("3.0.0")),
		CompatibleWith(mkv("1.0.0")),
	})
	assert.Equal(t, "^1.0.0 or ^3.0.0", gapped.String())
}

func TestCompatibleWith(t *testing.T) {
	assert.Equal(t, "^1.2.3", CompatibleWith(mkv("1.2.3")).String())
	assert.True(t, CompatibleWith(mkv("1.2.3")).Allows(mkv("1.9.0")))
	assert.False(t, CompatibleWith(mkv("1.2.3")).Allows(mkv("2.0.0")))

	// In the 0.x series the minor is the breaking boundary.
	assert.True(t, CompatibleWith(mkv("0.2.3")).Allows(mkv("0.2.9")))
	assert.False(t, CompatibleWith(mkv("0.2.3")).Allows(mkv("0.3.0")))
	// And in 0.0.x, the patch.
	assert.False(t, CompatibleWith(mkv("0.0.3")).Allows(mkv("0.0.4")))
}
