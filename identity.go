package solvent

import "fmt"

// PackageRef is the identity of a package without any version information:
// its name, the source it is served from, and the source-specific
// description (e.g. a registry URL or repo path). Two refs with equal
// name/source/description denote the same package.
type PackageRef struct {
	Name        string
	Source      string
	Description string
}

func (r PackageRef) String() string {
	return r.Name
}

// detailString renders the ref with its distinguishing source/description,
// for use when two packages share a name.
func (r PackageRef) detailString() string {
	switch {
	case r.Source != "" && r.Description != "":
		return fmt.Sprintf("%s (from %s %s)", r.Name, r.Source, r.Description)
	case r.Source != "":
		return fmt.Sprintf("%s (from %s)", r.Name, r.Source)
	case r.Description != "":
		return fmt.Sprintf("%s (%s)", r.Name, r.Description)
	default:
		return r.Name
	}
}

func (r PackageRef) key() string {
	return r.Name + "\x00" + r.Source + "\x00" + r.Description
}

// samePackage reports whether two refs identify the same package.
func samePackage(a, b PackageRef) bool {
	return a == b
}

// PackageDep is a constrained reference: some admissible set of versions of
// one package.
type PackageDep struct {
	Ref        PackageRef
	Constraint VersionConstraint
}

func (d PackageDep) String() string {
	if d.Constraint == nil || d.Constraint.IsAny() {
		return d.Ref.Name + " any"
	}
	return d.Ref.Name + " " + d.Constraint.String()
}

// withConstraint returns a dep on the same package under a different
// constraint.
func (d PackageDep) withConstraint(c VersionConstraint) PackageDep {
	return PackageDep{Ref: d.Ref, Constraint: c}
}

// allows reports whether the dep's constraint admits v. A nil constraint
// reads as "any".
func (d PackageDep) allows(v Version) bool {
	return d.Constraint == nil || d.Constraint.Allows(v)
}

func (d PackageDep) constraintOrAny() VersionConstraint {
	if d.Constraint == nil {
		return anyVersion
	}
	return d.Constraint
}

// PackageID is one concrete version of one package - the unit of decision.
type PackageID struct {
	Ref     PackageRef
	Version Version
}

func (id PackageID) String() string {
	return fmt.Sprintf("%s %s", id.Ref.Name, id.Version)
}

// toDep returns the dep admitting exactly this id's version.
func (id PackageID) toDep() PackageDep {
	return PackageDep{Ref: id.Ref, Constraint: Exact(id.Version)}
}

// Manifest describes one version of a package: its declared dependencies
// and the SDK environments it supports.
type Manifest struct {
	Name    string
	Version Version
	Deps    []PackageDep

	// SDK constrains the runtime SDK version; nil means any.
	SDK VersionConstraint
	// FrameworkSDK, when non-nil, requires the framework SDK to be present
	// and inside the constraint.
	FrameworkSDK VersionConstraint
}

// SDKInfo is the probed environment the solution must be compatible with.
type SDKInfo struct {
	Runtime            Version
	Framework          Version
	FrameworkAvailable bool
}
