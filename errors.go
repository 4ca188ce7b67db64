package solvent

import (
	"fmt"

	"github.com/pkg/errors"
)

// PackageNotFoundError is the oracle's report that a package does not exist
// at all. The solver converts it into a learned prohibition rather than
// surfacing it.
type PackageNotFoundError struct {
	Ref PackageRef
}

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("package %q could not be found", e.Ref.Name)
}

func isNotFound(err error) bool {
	var nf *PackageNotFoundError
	return errors.As(err, &nf)
}

// BadOptsFailure is returned when SolveOpts are malformed.
type BadOptsFailure string

func (e BadOptsFailure) Error() string {
	return string(e)
}

// SolveFailure is the terminal resolution failure: a contradiction whose
// transitive implicators reach the root, carried as the root
// incompatibility. Its message is the rendered derivation proof.
type SolveFailure struct {
	Incompatibility *Clause

	root     PackageRef
	rendered string
}

func (e *SolveFailure) Error() string {
	if e.rendered == "" {
		e.rendered = explainFailure(e.Incompatibility, e.root)
	}
	return e.rendered
}
