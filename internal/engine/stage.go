package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danieljhkim/pkgstage/internal/build"
	"github.com/danieljhkim/pkgstage/internal/clock"
	"github.com/danieljhkim/pkgstage/internal/ctxlog"
	"github.com/danieljhkim/pkgstage/internal/gitx"
	"github.com/danieljhkim/pkgstage/internal/graph"
	"github.com/danieljhkim/pkgstage/internal/hash"
	"github.com/danieljhkim/pkgstage/internal/link"
	"github.com/danieljhkim/pkgstage/internal/lockfile"
	"github.com/danieljhkim/pkgstage/internal/manifest"
)

// RunStage resolves, validates, orders, and dispatches one stage.
//
// Any failure before dispatch returns a nil result. A dispatch failure stops
// at the failing package and returns the result so far together with the
// error.
func (e *Engine) RunStage(ctx context.Context, req *StageRequest) (*StageResult, error) {
	logger := ctxlog.FromContext(ctx).With("stage", req.Stage)
	start := e.clock.Now()

	pkgs, err := e.resolveStage(ctx, req.Stage, req.References)
	if err != nil {
		return nil, err
	}
	result := &StageResult{Stage: req.Stage, Packages: pkgs}

	warnings, err := e.syncSources(ctx, pkgs)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, warnings...)

	warnings, err = e.validateStage(ctx, req.Stage, pkgs)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, warnings...)

	order, err := e.orderStage(pkgs)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", req.Stage, err)
	}
	result.Order = order
	logger.Info("stage ordered", "packages", len(order))

	if e.locks != nil && !req.SkipLock {
		lock, err := e.recordLock(req.Stage, req.References, pkgs, order)
		if err != nil {
			return nil, err
		}
		result.Lock = lock
		logger.Debug("lock file written", "path", e.locks.Path())
	}

	result.Selected = selectPackages(pkgs, order, req.Packages, req.WithDependencies)
	if req.DryRun {
		result.Duration = clock.Since(e.clock, start)
		return result, nil
	}

	passes := req.Matrix
	if len(passes) == 0 {
		passes = []map[string]string{nil}
	}
	byDest := indexByDestination(pkgs)
	public := build.PublicEnv(e.paths.InstallRoot, e.known)
	for _, vars := range passes {
		for _, dest := range result.Selected {
			p := byDest[dest]
			env := build.Merge(public, build.PrivateEnv(p.Folders), req.Env, vars)

			logger.Info("dispatching build", "package", p.Name(), "source", dest, "matrix", vars)
			if err := e.dispatcher.Build(ctx, &build.Request{Stage: req.Stage, Package: p.Folders, Env: env}); err != nil {
				result.Duration = clock.Since(e.clock, start)
				return result, fmt.Errorf("stage %q: %w", req.Stage, err)
			}
			result.Dispatched = append(result.Dispatched, dest)
		}
	}

	result.Duration = clock.Since(e.clock, start)
	logger.Info("stage complete", "built", len(result.Dispatched), "duration", result.Duration)
	return result, nil
}

// RegisterStage claims a stage's identities without syncing, reading
// manifests, or building. It replays the stages that precede the selected
// one so their packages resolve as dependencies.
func (e *Engine) RegisterStage(ctx context.Context, req *RegisterRequest) error {
	pkgs, err := e.resolveStage(ctx, req.Stage, req.References)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("stage registered", "stage", req.Stage, "packages", len(pkgs))
	return nil
}

// resolveStage parses and resolves every reference and claims its identity.
// Format and missing-tag errors are returned at once; tag conflicts,
// duplicates, and shared destinations or folders are collected.
func (e *Engine) resolveStage(ctx context.Context, stage string, refs []string) ([]*Package, error) {
	logger := ctxlog.FromContext(ctx).With("stage", stage)
	coll := newCollector(stage, "resolve")

	counts := make(map[string]int, len(refs))
	pending := make(map[ownerKey]string)
	var dups []string
	var pkgs []*Package

	for _, raw := range refs {
		ref, err := link.Parse(raw)
		if err != nil {
			return nil, err
		}
		res, err := link.Resolve(ref, e.roots())
		if err != nil {
			return nil, err
		}

		base, full := claimIdentity(res)
		counts[full]++
		if counts[full] > 1 {
			if counts[full] == 2 {
				dups = append(dups, full)
			}
			continue
		}

		claim, _, err := e.registry.Claim(stage, base, res.Tag, full, res.Destination)
		if err != nil {
			coll.add(err)
			continue
		}
		if claim.Destination != res.Destination {
			logger.Warn("identity already placed elsewhere, using registered destination",
				"identity", full, "registered", claim.Destination, "requested", res.Destination)
			res.Destination = claim.Destination
		}
		if owner, ok := e.registry.AtDestination(res.Destination); ok && owner.Full != full {
			coll.add(&DestinationConflictError{Destination: res.Destination, Identity: full, Owner: owner.Full})
			continue
		}
		folders := e.folders(res)
		if err := e.checkOwners(folders, full, pending); err != nil {
			coll.add(err)
			continue
		}
		pkgs = append(pkgs, &Package{Resolved: res, Folders: folders})
	}

	for _, full := range dups {
		coll.add(&DuplicateReferenceError{Stage: stage, Identity: full, Count: counts[full]})
	}
	if err := coll.result(); err != nil {
		return nil, err
	}

	for _, p := range pkgs {
		e.remember(p.Folders)
	}
	return pkgs, nil
}

// claimIdentity returns the registry keys for a resolved package. Local
// packages are keyed by their absolute destination so different spellings
// of the same path agree.
func claimIdentity(r *link.Resolved) (base, full string) {
	if r.IsRemote() {
		return r.BaseIdentity, r.Identity()
	}
	return r.Destination, r.Destination
}

// syncSources brings remote checkouts up to date and checks that local
// packages carry a manifest. Clone failures and missing local manifests are
// fatal; failed updates are returned as warnings.
func (e *Engine) syncSources(ctx context.Context, pkgs []*Package) ([]error, error) {
	logger := ctxlog.FromContext(ctx)
	var warnings []error

	for _, p := range pkgs {
		dest := p.Destination()
		remote, ok := p.Resolved.Ref.(link.Remote)
		if !ok {
			present, err := e.fs.Exists(manifest.Path(dest))
			if err != nil {
				return warnings, fmt.Errorf("check manifest of %s: %w", p.Resolved.Identity(), err)
			}
			if !present {
				return warnings, &MissingManifestError{Package: p.Resolved.Identity(), Path: manifest.Path(dest)}
			}
			continue
		}

		out, err := gitx.Sync(ctx, e.syncer, e.fs, remote.URL, remote.Tag, dest)
		if err != nil {
			return warnings, err
		}
		p.Sync = &out
		if out.Warning != nil {
			logger.Warn("update failed, using existing checkout", "package", p.Name(), "error", out.Warning.Err)
			warnings = append(warnings, out.Warning)
			continue
		}
		logger.Info("source synchronized", "package", p.Name(), "action", string(out.Action))
	}
	return warnings, nil
}

// validateStage reads every manifest and resolves every dependency through
// the registry. Tag conflicts and missing dependencies are collected.
func (e *Engine) validateStage(ctx context.Context, stage string, pkgs []*Package) ([]error, error) {
	logger := ctxlog.FromContext(ctx).With("stage", stage)
	coll := newCollector(stage, "validate")
	var warnings []error

	for _, p := range pkgs {
		m, err := manifest.ReadFile(e.fs, p.Destination())
		switch {
		case err == nil:
			p.Manifest = m
			p.Dependencies = m.Depends
		case os.IsNotExist(err):
			missing := &MissingManifestError{Package: p.Resolved.Identity(), Path: manifest.Path(p.Destination())}
			if !p.Resolved.IsRemote() {
				return nil, missing
			}
			logger.Warn("package has no manifest, assuming no dependencies", "package", p.Name())
			warnings = append(warnings, missing)
		default:
			return nil, fmt.Errorf("read manifest of %s: %w", p.Resolved.Identity(), err)
		}

		for _, dep := range p.Dependencies {
			dest, err := e.resolveDependency(p, dep)
			if err != nil {
				coll.add(err)
				continue
			}
			p.DependencyDestinations = append(p.DependencyDestinations, dest)
		}
	}
	return warnings, coll.result()
}

// resolveDependency maps one raw dependency identity to a registered
// destination. Identities are looked up by their tag-stripped form; tokens
// that are not URLs are also tried as paths relative to the dependent.
func (e *Engine) resolveDependency(p *Package, dep string) (string, error) {
	base, tag := link.SplitTag(dep)
	claim, ok := e.registry.Lookup(base)
	if !ok && !strings.Contains(dep, "://") {
		path := dep
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.Destination(), path)
		}
		claim, ok = e.registry.AtDestination(filepath.Clean(path))
		tag = ""
	}
	if !ok {
		return "", &MissingDependencyError{Package: p.Resolved.Identity(), Dependency: dep}
	}
	if tag != "" && claim.Tag != tag {
		return "", &DependsTagConflictError{
			Package:       p.Resolved.Identity(),
			Dependency:    dep,
			RegisteredTag: claim.Tag,
			RequestedTag:  tag,
		}
	}
	return claim.Destination, nil
}

// orderStage sorts the stage's destinations so dependencies come first.
func (e *Engine) orderStage(pkgs []*Package) ([]string, error) {
	nodes := make([]graph.Node, len(pkgs))
	for i, p := range pkgs {
		nodes[i] = graph.Node{ID: p.Destination(), Deps: p.DependencyDestinations}
	}
	return graph.Build(nodes).Sort()
}

// recordLock writes the stage's resolution to the lock file.
func (e *Engine) recordLock(stage string, refs []string, pkgs []*Package, order []string) (*lockfile.Lock, error) {
	byDest := indexByDestination(pkgs)
	st := lockfile.Stage{
		Name:             stage,
		BuildOrder:       order,
		Packages:         make([]lockfile.Package, 0, len(order)),
		ReferencesSHA256: hash.Bytes([]byte(strings.Join(refs, "\n"))),
	}

	for i, dest := range order {
		p := byDest[dest]
		entry := lockfile.Package{
			BuildIndex:    i,
			Name:          p.Name(),
			Kind:          string(p.Resolved.Ref.Kind()),
			Identity:      p.Resolved.Identity(),
			Tag:           p.Resolved.Tag,
			Destination:   dest,
			BuildFolder:   p.Folders.Build,
			InstallFolder: p.Folders.Install,
			Dependencies:  append([]string{}, p.DependencyDestinations...),
		}
		if p.Manifest != nil {
			entry.Version = p.Manifest.Version
			sum, err := e.hasher.HashFile(p.Manifest.Path)
			if err != nil {
				return nil, fmt.Errorf("hash manifest of %s: %w", entry.Identity, err)
			}
			entry.ManifestSHA256 = sum
		}
		st.Packages = append(st.Packages, entry)
	}
	return e.locks.Record(e.paths.InstallRoot, st)
}

// selectPackages returns the destinations in order that names select. With
// withDeps the selection grows along dependency edges inside the stage.
func selectPackages(pkgs []*Package, order, names []string, withDeps bool) []string {
	if len(names) == 0 {
		return append([]string(nil), order...)
	}

	byDest := indexByDestination(pkgs)
	chosen := make(map[string]bool)
	var queue []string
	for _, p := range pkgs {
		for _, name := range names {
			if p.Matches(name) && !chosen[p.Destination()] {
				chosen[p.Destination()] = true
				queue = append(queue, p.Destination())
			}
		}
	}
	for withDeps && len(queue) > 0 {
		p := byDest[queue[0]]
		queue = queue[1:]
		for _, dep := range p.DependencyDestinations {
			if _, inStage := byDest[dep]; inStage && !chosen[dep] {
				chosen[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	out := make([]string, 0, len(chosen))
	for _, dest := range order {
		if chosen[dest] {
			out = append(out, dest)
		}
	}
	return out
}

func indexByDestination(pkgs []*Package) map[string]*Package {
	out := make(map[string]*Package, len(pkgs))
	for _, p := range pkgs {
		out[p.Destination()] = p
	}
	return out
}
