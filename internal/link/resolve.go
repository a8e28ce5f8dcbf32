package link

import (
	"fmt"
	"path/filepath"
)

// Roots holds the directories used to place and anchor destinations.
type Roots struct {
	// Source is the default root for derived remote destinations.
	Source string

	// Base anchors relative local paths and relative explicit destinations,
	// normally the directory holding the stage file.
	Base string
}

// Resolved is a reference with its canonical identity and destination fixed.
type Resolved struct {
	Ref Reference

	// BaseIdentity is the identity with any @tag stripped.
	BaseIdentity string

	// Tag is empty for local packages.
	Tag string

	// Destination is an absolute directory.
	Destination string
}

// Identity returns the full identity, including the tag.
func (r *Resolved) Identity() string {
	return r.Ref.Identity()
}

// Name returns the package's short name: the repository name for remote
// packages and the directory name for local ones.
func (r *Resolved) Name() string {
	return RepoName(r.BaseIdentity)
}

// IsRemote reports whether the package is synchronized from version control.
func (r *Resolved) IsRemote() bool {
	_, ok := r.Ref.(Remote)
	return ok
}

// Resolve fixes the destination for a parsed reference.
func Resolve(ref Reference, roots Roots) (*Resolved, error) {
	switch r := ref.(type) {
	case Remote:
		dest := r.Destination
		if dest == "" {
			if r.Tag == "" {
				return nil, &MissingTagError{Identity: r.Identity()}
			}
			dest = filepath.Join(roots.Source, fmt.Sprintf("%s-%s", RepoName(r.URL), DirTag(r.Tag)))
		}
		abs, err := anchor(dest, roots.Base)
		if err != nil {
			return nil, err
		}
		return &Resolved{Ref: r, BaseIdentity: r.URL, Tag: r.Tag, Destination: abs}, nil

	case Local:
		dest := r.Destination
		if dest == "" {
			dest = r.Path
		}
		abs, err := anchor(dest, roots.Base)
		if err != nil {
			return nil, err
		}
		return &Resolved{Ref: r, BaseIdentity: r.Path, Destination: abs}, nil

	default:
		return nil, fmt.Errorf("unsupported reference type %T", ref)
	}
}

// anchor makes path absolute, interpreting relative paths against base.
func anchor(path, base string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if base != "" {
		path = filepath.Join(base, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %q: %w", path, err)
	}
	return abs, nil
}
