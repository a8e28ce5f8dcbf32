// Package gitx fetches remote package sources with git.
//
// A remote package lives in its own checkout under the source root. The
// first run clones it at the requested tag; later runs refresh the existing
// checkout in place.
package gitx

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/danieljhkim/pkgstage/internal/fsops"
)

// Syncer performs the git operations behind Sync.
type Syncer interface {
	// Clone creates dest as a checkout of url at tag.
	Clone(ctx context.Context, url, tag, dest string) error

	// Update fetches dest's origin, checks out tag, and fast-forwards when
	// tag names a branch.
	Update(ctx context.Context, dest, tag string) error
}

// Action is what Sync did to a destination.
type Action string

const (
	ActionCloned  Action = "cloned"
	ActionUpdated Action = "updated"
	ActionStale   Action = "stale"
)

// Outcome describes a completed sync.
type Outcome struct {
	Destination string
	Action      Action

	// Warning is set when Action is ActionStale.
	Warning *SyncWarning
}

// Sync makes dest a checkout of url at tag.
//
// A missing or empty dest is cloned; a clone failure is fatal and returned
// as a *SyncError. An existing dest is updated; an update failure leaves the
// checkout untouched and is reported through Outcome.Warning.
func Sync(ctx context.Context, s Syncer, fs fsops.FS, url, tag, dest string) (Outcome, error) {
	out := Outcome{Destination: dest}
	fail := func(err error) (Outcome, error) {
		return out, &SyncError{URL: url, Tag: tag, Destination: dest, Err: err}
	}

	existed, err := fs.Exists(dest)
	if err != nil {
		return fail(err)
	}
	populated := false
	if existed {
		dir, err := fs.IsDir(dest)
		if err != nil {
			return fail(err)
		}
		if !dir {
			return fail(fmt.Errorf("%s exists and is not a directory", dest))
		}
		empty, err := fs.IsEmptyDir(dest)
		if err != nil {
			return fail(err)
		}
		populated = !empty
	}

	if !populated {
		if err := s.Clone(ctx, url, tag, dest); err != nil {
			// A failed clone leaves no partial checkout.
			if !existed {
				_ = fs.RemoveAll(dest)
			}
			return fail(err)
		}
		out.Action = ActionCloned
		return out, nil
	}

	if err := s.Update(ctx, dest, tag); err != nil {
		out.Action = ActionStale
		out.Warning = &SyncWarning{Destination: dest, Tag: tag, Err: err}
		return out, nil
	}
	out.Action = ActionUpdated
	return out, nil
}

// GitSyncer implements Syncer with the git binary.
type GitSyncer struct {
	// Binary is the git executable, "git" when empty.
	Binary string
}

// NewGitSyncer creates a new GitSyncer.
func NewGitSyncer() *GitSyncer {
	return &GitSyncer{Binary: "git"}
}

// Clone clones url into dest. An empty tag clones the default branch.
func (g *GitSyncer) Clone(ctx context.Context, url, tag, dest string) error {
	if err := validateRef(url, "url"); err != nil {
		return err
	}
	args := []string{"clone", "--depth", "1"}
	if tag != "" {
		if err := validateRef(tag, "tag"); err != nil {
			return err
		}
		args = append(args, "--branch", tag)
	}
	_, err := g.run(ctx, "", append(args, "--", url, dest)...)
	return err
}

// Update refreshes the checkout at dest. An empty tag keeps the current
// branch.
func (g *GitSyncer) Update(ctx context.Context, dest, tag string) error {
	if _, err := g.run(ctx, dest, "fetch", "--tags", "origin"); err != nil {
		return err
	}
	if tag != "" {
		if err := validateRef(tag, "tag"); err != nil {
			return err
		}
		if _, err := g.run(ctx, dest, "checkout", tag); err != nil {
			return err
		}
	}

	// Tags leave HEAD detached; only branches have something to pull.
	if _, err := g.run(ctx, dest, "symbolic-ref", "-q", "HEAD"); err != nil {
		return nil
	}
	_, err := g.run(ctx, dest, "pull", "--ff-only")
	return err
}

// run executes git in dir (or the working directory when dir is empty).
func (g *GitSyncer) run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	sub := args[0]
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w\nstderr: %s", sub, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// validateRef rejects values git would parse as options.
func validateRef(value, what string) error {
	if value == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidRef, what)
	}
	if strings.HasPrefix(value, "-") {
		return fmt.Errorf("%w: %s %q starts with '-'", ErrInvalidRef, what, value)
	}
	if what == "tag" && strings.ContainsAny(value, " \t\n") {
		return fmt.Errorf("%w: %s %q contains whitespace", ErrInvalidRef, what, value)
	}
	return nil
}
