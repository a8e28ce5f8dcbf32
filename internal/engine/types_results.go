package engine

import (
	"time"

	"github.com/danieljhkim/pkgstage/internal/build"
	"github.com/danieljhkim/pkgstage/internal/gitx"
	"github.com/danieljhkim/pkgstage/internal/link"
	"github.com/danieljhkim/pkgstage/internal/lockfile"
	"github.com/danieljhkim/pkgstage/internal/manifest"
)

// Package is one resolved package of a stage.
type Package struct {
	Resolved *link.Resolved

	// Folders locate the package's source, build, and install directories.
	Folders build.Folders

	// Sync is nil for local packages.
	Sync *gitx.Outcome

	// Manifest is nil when a remote package ships without one.
	Manifest *manifest.Manifest

	// Dependencies are the raw identities from the manifest.
	Dependencies []string

	// DependencyDestinations are Dependencies resolved through the registry,
	// in the same order.
	DependencyDestinations []string
}

// Name returns the package's short name.
func (p *Package) Name() string { return p.Folders.Name }

// Destination returns the package's directory.
func (p *Package) Destination() string { return p.Resolved.Destination }

// StageResult describes a completed stage.
type StageResult struct {
	Stage string

	// Packages are in reference-list order.
	Packages []*Package

	// Order lists destinations in build order.
	Order []string

	// Selected lists the destinations chosen for dispatch, in build order.
	Selected []string

	// Dispatched lists destinations handed to the build dispatcher, empty on
	// a dry run. With a matrix, each pass appends the selection again.
	Dispatched []string

	// Warnings are non-fatal problems: failed updates and remote packages
	// without a manifest.
	Warnings []error

	// Lock is the lock file as written, nil when skipped.
	Lock *lockfile.Lock

	Duration time.Duration
}

// Package returns the package at destination.
func (r *StageResult) Package(destination string) (*Package, bool) {
	for _, p := range r.Packages {
		if p.Destination() == destination {
			return p, true
		}
	}
	return nil, false
}

// Matches reports whether name refers to p by its short name or its
// manifest NAME.
func (p *Package) Matches(name string) bool {
	if p.Name() == name {
		return true
	}
	return p.Manifest != nil && p.Manifest.Name != "" && p.Manifest.Name == name
}

// OrderedNames returns package names in build order.
func (r *StageResult) OrderedNames() []string {
	names := make([]string, 0, len(r.Order))
	for _, dest := range r.Order {
		if p, ok := r.Package(dest); ok {
			names = append(names, p.Name())
		}
	}
	return names
}
