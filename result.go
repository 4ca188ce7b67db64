package solvent

// SolveResult is a successful resolution: one concrete version per
// reachable package, plus the metadata a consumer needs to act on the
// assignment without going back to the oracle.
type SolveResult struct {
	// Root is the root package the solve was run for.
	Root PackageID

	// Decisions lists the selected package versions, root excluded, in
	// decision order.
	Decisions []PackageID

	// Manifests maps each decided package name to its selected manifest.
	Manifests map[string]Manifest

	// AvailableVersions maps each decided package name to every version
	// the oracle reported for it, ascending.
	AvailableVersions map[string][]Version

	// Attempts counts the backjumps taken on the way to the solution.
	Attempts int
}
