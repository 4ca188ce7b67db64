package solvent

import "sync"

// SolveMode selects the version preference policy for a solve.
type SolveMode uint8

const (
	// Get prefers the highest admissible stable version.
	Get SolveMode = iota
	// Upgrade behaves like Get; it exists so callers can express intent.
	Upgrade
	// Downgrade prefers the lowest admissible stable version.
	Downgrade
)

func (m SolveMode) String() string {
	switch m {
	case Upgrade:
		return "upgrade"
	case Downgrade:
		return "downgrade"
	default:
		return "get"
	}
}

// ParseSolveMode reads a mode name as accepted on the command line.
func ParseSolveMode(body string) (SolveMode, error) {
	switch body {
	case "", "get":
		return Get, nil
	case "upgrade":
		return Upgrade, nil
	case "downgrade":
		return Downgrade, nil
	default:
		return Get, BadOptsFailure("unknown solve mode " + body)
	}
}

// A VersionOracle enumerates and describes the versions that exist for a
// package. It is the solver's only window onto the package universe;
// everything about where packages live and how their metadata is fetched
// stays behind it.
//
// GetVersions returns every existing version of the ref's package, or a
// PackageNotFoundError when the package is unknown. Describe returns the
// manifest for one concrete version. Both must be idempotent; the solver
// may call them repeatedly for the same input.
type VersionOracle interface {
	GetVersions(ref PackageRef) ([]PackageID, error)
	Describe(id PackageID) (Manifest, error)
}

// memoOracle caches oracle responses so repeated lookups during a solve, or
// across solves sharing an oracle, are answered from the cache once the
// inner oracle has answered successfully or with not-found. Other errors are
// not cached; the next lookup asks the inner oracle again.
type memoOracle struct {
	inner VersionOracle

	mu        sync.Mutex
	versions  map[string][]PackageID
	notFound  map[string]error
	manifests map[string]Manifest
}

// NewMemoizingOracle wraps an oracle with per-ref and per-id memoization.
// Safe for concurrent use.
func NewMemoizingOracle(inner VersionOracle) VersionOracle {
	return &memoOracle{
		inner:     inner,
		versions:  make(map[string][]PackageID),
		notFound:  make(map[string]error),
		manifests: make(map[string]Manifest),
	}
}

func (o *memoOracle) GetVersions(ref PackageRef) ([]PackageID, error) {
	key := ref.key()

	o.mu.Lock()
	if ids, has := o.versions[key]; has {
		o.mu.Unlock()
		return ids, nil
	}
	if err, has := o.notFound[key]; has {
		o.mu.Unlock()
		return nil, err
	}
	o.mu.Unlock()

	ids, err := o.inner.GetVersions(ref)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		if isNotFound(err) {
			o.notFound[key] = err
		}
		return nil, err
	}
	o.versions[key] = ids
	return ids, nil
}

func (o *memoOracle) Describe(id PackageID) (Manifest, error) {
	key := id.Ref.key() + "\x00" + id.Version.String()

	o.mu.Lock()
	if m, has := o.manifests[key]; has {
		o.mu.Unlock()
		return m, nil
	}
	o.mu.Unlock()

	m, err := o.inner.Describe(id)
	if err != nil {
		return Manifest{}, err
	}

	o.mu.Lock()
	o.manifests[key] = m
	o.mu.Unlock()
	return m, nil
}
