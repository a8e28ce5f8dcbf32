// Package engine drives stages through the pkgstage pipeline.
//
// A stage run has three phases followed by dispatch:
//   - resolve: parse each reference, fix its destination, claim its identity
//     in the registry, then synchronize remote sources
//   - validate: read manifests and resolve every declared dependency
//   - order: sort the stage's packages so dependencies build first
//
// Errors inside the resolve and validate phases are collected and reported
// together at the phase boundary. Nothing is dispatched unless all three
// phases succeed.
package engine

import (
	"path/filepath"

	"github.com/danieljhkim/pkgstage/internal/build"
	"github.com/danieljhkim/pkgstage/internal/clock"
	"github.com/danieljhkim/pkgstage/internal/config"
	"github.com/danieljhkim/pkgstage/internal/fsops"
	"github.com/danieljhkim/pkgstage/internal/gitx"
	"github.com/danieljhkim/pkgstage/internal/hash"
	"github.com/danieljhkim/pkgstage/internal/link"
	"github.com/danieljhkim/pkgstage/internal/lockfile"
	"github.com/danieljhkim/pkgstage/internal/registry"
)

// Engine runs stages against one registry. Use a single Engine for a whole
// invocation so claims from earlier stages stay visible to later ones.
type Engine struct {
	registry   *registry.Registry
	syncer     gitx.Syncer
	dispatcher build.Dispatcher
	locks      *lockfile.FileStore
	fs         fsops.FS
	hasher     hash.Hasher
	clock      clock.Clock
	paths      config.Paths

	// known holds every claimed package, in claim order, for the public
	// build environment.
	known    []build.Folders
	knownIdx map[string]int

	// owners maps each build folder name and variable name to the source
	// folder of the package using it.
	owners map[ownerKey]string
}

// New creates a new Engine with the given dependencies. locks may be nil to
// disable the lock file.
func New(
	reg *registry.Registry,
	syncer gitx.Syncer,
	dispatcher build.Dispatcher,
	locks *lockfile.FileStore,
	fs fsops.FS,
	hasher hash.Hasher,
	clk clock.Clock,
	paths config.Paths,
) *Engine {
	return &Engine{
		registry:   reg,
		syncer:     syncer,
		dispatcher: dispatcher,
		locks:      locks,
		fs:         fs,
		hasher:     hasher,
		clock:      clk,
		paths:      paths,
		knownIdx:   make(map[string]int),
		owners:     make(map[ownerKey]string),
	}
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Paths returns the configured paths.
func (e *Engine) Paths() config.Paths {
	return e.paths
}

// roots returns the directories used to resolve references.
func (e *Engine) roots() link.Roots {
	return link.Roots{Source: e.paths.SourceRoot, Base: e.paths.Base}
}

// folders computes where a package is built and installed.
func (e *Engine) folders(r *link.Resolved) build.Folders {
	dir := filepath.Base(r.Destination)
	return build.Folders{
		Name:    r.Name(),
		Source:  r.Destination,
		Build:   filepath.Join(e.paths.BuildRoot, dir),
		Install: filepath.Join(e.paths.InstallRoot, dir),
	}
}

type ownerKey struct {
	what  string
	value string
}

// ownerKeys returns the names f occupies under the build and install roots
// and in the build environment.
func ownerKeys(f build.Folders) []ownerKey {
	return []ownerKey{
		{"folder", filepath.Base(f.Build)},
		{"variable", build.VarName(f.Name)},
	}
}

// checkOwners reports the first name f shares with a different package.
// pending holds the names taken earlier in the current stage.
func (e *Engine) checkOwners(f build.Folders, identity string, pending map[ownerKey]string) error {
	keys := ownerKeys(f)
	for _, k := range keys {
		owner, ok := pending[k]
		if !ok {
			owner, ok = e.owners[k]
		}
		if ok && owner != f.Source {
			return &FolderConflictError{What: k.what, Value: k.value, Package: identity, Owner: owner}
		}
	}
	for _, k := range keys {
		pending[k] = f.Source
	}
	return nil
}

// remember records f for the public build environment.
func (e *Engine) remember(f build.Folders) {
	if _, ok := e.knownIdx[f.Source]; ok {
		return
	}
	e.knownIdx[f.Source] = len(e.known)
	e.known = append(e.known, f)
	for _, k := range ownerKeys(f) {
		e.owners[k] = f.Source
	}
}

// Known returns every package claimed so far, in claim order.
func (e *Engine) Known() []build.Folders {
	out := make([]build.Folders, len(e.known))
	copy(out, e.known)
	return out
}
