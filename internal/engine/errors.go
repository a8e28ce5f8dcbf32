package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danieljhkim/pkgstage/internal/gitx"
	"github.com/danieljhkim/pkgstage/internal/graph"
	"github.com/danieljhkim/pkgstage/internal/link"
	"github.com/danieljhkim/pkgstage/internal/registry"
)

// Error kinds raised by lower layers, re-exported so callers only need this
// package for errors.Is checks.
var (
	ErrFormat      = link.ErrFormat
	ErrMissingTag  = link.ErrMissingTag
	ErrTagConflict = registry.ErrTagConflict
	ErrCycle       = graph.ErrCycle
	ErrSync        = gitx.ErrSync
	ErrSyncWarning = gitx.ErrSyncWarning
)

var (
	// ErrDuplicateReference indicates the same package is listed twice in a stage.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrMissingManifest indicates a package has no build-description file.
	ErrMissingManifest = errors.New("missing manifest")

	// ErrDependsTagConflict indicates a dependency asks for a different tag
	// than the one registered for it.
	ErrDependsTagConflict = errors.New("dependency tag conflict")

	// ErrMissingDependency indicates a dependency was never registered.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrDestinationConflict indicates two identities resolve to one destination.
	ErrDestinationConflict = errors.New("destination conflict")

	// ErrFolderConflict indicates two packages would share a build folder or
	// build variable name.
	ErrFolderConflict = errors.New("folder conflict")
)

// DuplicateReferenceError reports an identity listed more than once.
type DuplicateReferenceError struct {
	Stage    string
	Identity string

	// Count is how many times the identity appears.
	Count int
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("%s: %s listed %d times in stage %q", ErrDuplicateReference, e.Identity, e.Count, e.Stage)
}

func (e *DuplicateReferenceError) Unwrap() error { return ErrDuplicateReference }

// DestinationConflictError reports a destination already owned by another
// identity.
type DestinationConflictError struct {
	Destination string
	Identity    string
	Owner       string
}

func (e *DestinationConflictError) Error() string {
	return fmt.Sprintf("%s: %s resolves to %s, which already belongs to %s",
		ErrDestinationConflict, e.Identity, e.Destination, e.Owner)
}

func (e *DestinationConflictError) Unwrap() error { return ErrDestinationConflict }

// FolderConflictError reports two packages mapping to the same build and
// install folder name or to the same variable name.
type FolderConflictError struct {
	// What is "folder" or "variable".
	What    string
	Value   string
	Package string

	// Owner is the source folder of the package already using Value.
	Owner string
}

func (e *FolderConflictError) Error() string {
	return fmt.Sprintf("%s: %s and %s share the %s %q", ErrFolderConflict, e.Owner, e.Package, e.What, e.Value)
}

func (e *FolderConflictError) Unwrap() error { return ErrFolderConflict }

// MissingManifestError reports a package directory without a manifest.
type MissingManifestError struct {
	Package string
	Path    string
}

func (e *MissingManifestError) Error() string {
	return fmt.Sprintf("%s: %s has no %s", ErrMissingManifest, e.Package, e.Path)
}

func (e *MissingManifestError) Unwrap() error { return ErrMissingManifest }

// DependsTagConflictError reports a dependency pinned to a tag other than the
// registered one.
type DependsTagConflictError struct {
	Package       string
	Dependency    string
	RegisteredTag string
	RequestedTag  string
}

func (e *DependsTagConflictError) Error() string {
	return fmt.Sprintf("%s: %s depends on %s but %q is registered (requested %q)",
		ErrDependsTagConflict, e.Package, e.Dependency, e.RegisteredTag, e.RequestedTag)
}

func (e *DependsTagConflictError) Unwrap() error { return ErrDependsTagConflict }

// MissingDependencyError reports a dependency found neither in this stage
// nor in any earlier one.
type MissingDependencyError struct {
	Package    string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s: %s depends on %s, which is not registered by this or any earlier stage",
		ErrMissingDependency, e.Package, e.Dependency)
}

func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// PhaseError aggregates every error collected during one phase of a stage.
type PhaseError struct {
	Stage string
	Phase string
	errs  []error
}

func (e *PhaseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage %q: %s phase failed with %d error(s):", e.Stage, e.Phase, len(e.errs))
	for _, err := range e.errs {
		fmt.Fprintf(&b, "\n  - %s", err)
	}
	return b.String()
}

// Errors returns the individual errors in the order they were found.
func (e *PhaseError) Errors() []error {
	out := make([]error, len(e.errs))
	copy(out, e.errs)
	return out
}

func (e *PhaseError) Unwrap() []error { return e.errs }
