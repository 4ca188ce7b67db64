package solvent

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Level = logrus.ErrorLevel
	return l
}

// mkv - make a version, panicking on bad test data.
func mkv(body string) Version {
	v, err := NewVersion(body)
	if err != nil {
		panic(fmt.Sprintf("Error when converting '%s' into a version: %s", body, err))
	}
	return v
}

// mkc - make a constraint, panicking on bad test data.
func mkc(body string) VersionConstraint {
	c, err := ParseConstraint(body)
	if err != nil {
		panic(fmt.Sprintf("Error when converting '%s' into a constraint: %s", body, err))
	}
	return c
}

// nsvSplit splits an "info" string on the first space into name and
// version/constraint.
//
// This is for narrow use - panics if there are less than two resulting
// items in the slice.
func nsvSplit(info string) (name string, version string) {
	s := strings.SplitN(info, " ", 2)
	if len(s) < 2 {
		panic(fmt.Sprintf("Malformed name/version info string '%s'", info))
	}
	return s[0], s[1]
}

// mkdep - make a dep from an "name constraint" string.
func mkdep(info string) PackageDep {
	name, body := nsvSplit(info)
	return PackageDep{Ref: PackageRef{Name: name}, Constraint: mkc(body)}
}

// dsm - "depspec manifest"
//
// First string is the package's own "name version"; the rest are its deps
// as "name constraint" strings. A dep prefixed "(sdk) " instead declares
// the manifest's SDK constraint, and "(fw) " the framework SDK constraint.
func dsm(pi string, deps ...string) Manifest {
	name, ver := nsvSplit(pi)
	m := Manifest{Name: name, Version: mkv(ver)}

	for _, dep := range deps {
		switch {
		case strings.HasPrefix(dep, "(sdk) "):
			m.SDK = mkc(strings.TrimPrefix(dep, "(sdk) "))
		case strings.HasPrefix(dep, "(fw) "):
			m.FrameworkSDK = mkc(strings.TrimPrefix(dep, "(fw) "))
		default:
			m.Deps = append(m.Deps, mkdep(dep))
		}
	}
	return m
}

// mkresults makes an expected result set from "name version" pairs.
func mkresults(pairs ...string) map[string]string {
	m := make(map[string]string)
	for _, pair := range pairs {
		name, ver := nsvSplit(pair)
		m[name] = ver
	}
	return m
}

type fixture struct {
	// name of this fixture datum
	n string
	// manifests; always treat first as root
	ds []Manifest
	// the probed runtime SDK version; defaults to 2.0.0
	sdk string
	// the probed framework SDK version; empty means unavailable
	fw string
	// results; map of name → version strings. nil means failure expected
	r map[string]string
	// max backjumps the solver should need. 0 means no limit
	maxAttempts int
	// solve mode; default Get
	mode SolveMode
	// names that must be mentioned in the failure proof, if failing
	errp []string
}

var fixtures = []fixture{
	// basic fixtures
	{
		n: "no dependencies",
		ds: []Manifest{
			dsm("root 0.0.0"),
		},
		r: mkresults(),
	},
	{
		n: "simple dependency tree",
		ds: []Manifest{
			dsm("root 0.0.0", "a 1.0.0", "b 1.0.0"),
			dsm("a 1.0.0", "aa 1.0.0", "ab 1.0.0"),
			dsm("aa 1.0.0"),
			dsm("ab 1.0.0"),
			dsm("b 1.0.0", "ba 1.0.0", "bb 1.0.0"),
			dsm("ba 1.0.0"),
			dsm("bb 1.0.0"),
		},
		r: mkresults(
			"a 1.0.0",
			"aa 1.0.0",
			"ab 1.0.0",
			"b 1.0.0",
			"ba 1.0.0",
			"bb 1.0.0",
		),
	},
	{
		n: "pick highest allowed by caret",
		ds: []Manifest{
			dsm("root 0.0.0", "foo ^1.0.0"),
			dsm("foo 1.0.0"),
			dsm("foo 1.0.1"),
			dsm("foo 2.0.0"),
		},
		r: mkresults("foo 1.0.1"),
	},
	{
		n: "shared dependency with overlapping constraints",
		ds: []Manifest{
			dsm("root 0.0.0", "a 1.0.0", "b 1.0.0"),
			dsm("a 1.0.0", "shared >=2.0.0 <4.0.0"),
			dsm("b 1.0.0", "shared >=3.0.0 <5.0.0"),
			dsm("shared 2.0.0"),
			dsm("shared 3.0.0"),
			dsm("shared 3.6.9"),
			dsm("shared 4.0.0"),
			dsm("shared 5.0.0"),
		},
		r: mkresults(
			"a 1.0.0",
			"b 1.0.0",
			"shared 3.6.9",
		),
	},
	{
		n: "downgrade on overlapping constraints",
		ds: []Manifest{
			dsm("root 0.0.0", "a 1.0.0", "b 1.0.0"),
			dsm("a 1.0.0", "shared >=2.0.0 <=4.0.0"),
			dsm("b 1.0.0", "shared >=3.0.0 <5.0.0"),
			dsm("shared 2.0.0"),
			dsm("shared 3.0.0"),
			dsm("shared 3.6.9"),
			dsm("shared 4.0.0"),
			dsm("shared 5.0.0"),
		},
		r: mkresults(
			"a 1.0.0",
			"b 1.0.0",
			"shared 3.0.0",
		),
		mode: Downgrade,
	},
	{
		n: "downgrade to lowest allowed",
		ds: []Manifest{
			dsm("root 0.0.0", "foo >=1.0.0"),
			dsm("foo 1.0.0"),
			dsm("foo 1.1.0"),
			dsm("foo 2.0.0"),
		},
		r:    mkresults("foo 1.0.0"),
		mode: Downgrade,
	},
	{
		n: "stable release preferred over newer prerelease",
		ds: []Manifest{
			dsm("root 0.0.0", "foo any"),
			dsm("foo 1.0.0"),
			dsm("foo 1.1.0-alpha.1"),
		},
		r: mkresults("foo 1.0.0"),
	},
	{
		n: "circular dependencies",
		ds: []Manifest{
			dsm("root 0.0.0", "foo ^1.0.0"),
			dsm("foo 1.0.0", "bar ^1.0.0"),
			dsm("bar 1.0.0", "foo ^1.0.0"),
		},
		r: mkresults(
			"foo 1.0.0",
			"bar 1.0.0",
		),
	},
	{
		n: "regression from older shared release",
		ds: []Manifest{
			dsm("root 0.0.0", "a any", "b any"),
			dsm("a 1.0.0", "shared ^2.0.0"),
			dsm("a 2.0.0", "shared ^3.0.0"),
			dsm("b 1.0.0", "shared ^2.0.0"),
			dsm("shared 2.0.0"),
			dsm("shared 2.5.0"),
			dsm("shared 3.0.0"),
		},
		r: mkresults(
			"a 1.0.0",
			"b 1.0.0",
			"shared 2.5.0",
		),
		maxAttempts: 8,
	},

	// failure fixtures
	{
		n: "root constraints disjoint with dependency constraints",
		ds: []Manifest{
			dsm("root 0.0.0", "foo ^1.0.0", "bar ^1.0.0"),
			dsm("foo 1.0.0"),
			dsm("foo 2.0.0"),
			dsm("bar 1.0.0", "foo ^2.0.0"),
		},
		errp: []string{"bar", "foo"},
	},
	{
		n: "dependency on a package that does not exist",
		ds: []Manifest{
			dsm("root 0.0.0", "foo ^1.0.0"),
			dsm("foo 1.0.0", "ghost ^1.0.0"),
		},
		errp: []string{"ghost"},
	},
	{
		n: "no versions inside the required range",
		ds: []Manifest{
			dsm("root 0.0.0", "foo ^3.0.0"),
			dsm("foo 1.0.0"),
			dsm("foo 2.0.0"),
		},
		errp: []string{"foo"},
	},

	// sdk fixtures
	{
		n: "sdk gate falls back to older release",
		ds: []Manifest{
			dsm("root 0.0.0", "foo any"),
			dsm("foo 0.9.0", "(sdk) >=2.0.0"),
			dsm("foo 1.0.0", "(sdk) >=3.0.0"),
		},
		sdk: "2.18.0",
		r:   mkresults("foo 0.9.0"),
	},
	{
		n: "framework requirement without a framework",
		ds: []Manifest{
			dsm("root 0.0.0", "foo any"),
			dsm("foo 1.0.0", "(fw) >=1.0.0"),
		},
		errp: []string{"foo"},
	},
	{
		n: "framework requirement satisfied when available",
		ds: []Manifest{
			dsm("root 0.0.0", "foo any"),
			dsm("foo 1.0.0", "(fw) >=1.0.0"),
		},
		fw: "1.2.0",
		r:  mkresults("foo 1.0.0"),
	},

	// backjumping fixtures
	{
		n: "backjump across an intermediate decision",
		ds: []Manifest{
			dsm("root 0.0.0", "a any"),
			dsm("a 1.0.0"),
			dsm("a 2.0.0", "b any", "c ^2.0.0"),
			dsm("b 1.0.0", "c ^1.0.0"),
			dsm("c 1.0.0"),
			dsm("c 2.0.0"),
		},
		// The dependency clause b 1.0.0 → c survives the backjump, so c
		// still gets an assignment even though nothing selected needs it.
		r:           mkresults("a 1.0.0", "c 1.0.0"),
		maxAttempts: 8,
	},
	{
		n: "backjump to alternative that satisfies everyone",
		ds: []Manifest{
			dsm("root 0.0.0", "a any", "b any"),
			dsm("a 1.0.0", "shared ^1.0.0"),
			dsm("a 2.0.0", "shared ^2.0.0"),
			dsm("b 1.0.0", "shared ^1.0.0"),
			dsm("shared 1.0.0"),
			dsm("shared 2.0.0"),
		},
		r: mkresults(
			"a 1.0.0",
			"b 1.0.0",
			"shared 1.0.0",
		),
		maxAttempts: 8,
	},
}
