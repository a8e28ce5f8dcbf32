// Package link parses package reference strings and resolves them to
// filesystem destinations.
//
// A reference is one line of a stage's package list:
//
//	REMOTE: https://host/Org/Repo.git@v1.2.0
//	REMOTE: https://host/Org/Repo.git@main => /opt/src/repo
//	LOCAL: ./engine/core
//
// Remote references name a git repository and usually a tag; local references
// name a directory owned by the caller.
package link

import (
	"regexp"
	"strings"
)

// Kind is the source kind of a reference.
type Kind string

const (
	KindRemote Kind = "REMOTE"
	KindLocal  Kind = "LOCAL"
)

// Grammar is the accepted reference shape, shown in format errors.
const Grammar = "REMOTE|LOCAL: <identity> [=> <destination>]"

var (
	explicitPattern = regexp.MustCompile(`^(REMOTE|LOCAL):\s*([^=]+?)\s*=>\s*(.+)$`)
	derivedPattern  = regexp.MustCompile(`^(REMOTE|LOCAL):\s*([^=]+?)\s*$`)
)

// Reference is a parsed package reference. It is either a Remote or a Local.
type Reference interface {
	Kind() Kind

	// Identity returns the identity exactly as written in the reference.
	Identity() string

	// ExplicitDestination returns the caller-supplied destination, or "".
	ExplicitDestination() string

	sealed()
}

// Remote is a version-controlled package fetched from URL at Tag.
type Remote struct {
	URL         string
	Tag         string
	Destination string
}

func (r Remote) Kind() Kind                  { return KindRemote }
func (r Remote) ExplicitDestination() string { return r.Destination }
func (Remote) sealed()                       {}

// Identity returns the URL with its @tag suffix when a tag was given.
func (r Remote) Identity() string {
	if r.Tag == "" {
		return r.URL
	}
	return r.URL + "@" + r.Tag
}

// Local is a package living in a caller-managed directory.
type Local struct {
	Path        string
	Destination string
}

func (l Local) Kind() Kind                  { return KindLocal }
func (l Local) Identity() string            { return l.Path }
func (l Local) ExplicitDestination() string { return l.Destination }
func (Local) sealed()                       {}

// Parse parses a single reference string. The explicit-destination form is
// tried before the derived form.
func Parse(raw string) (Reference, error) {
	line := strings.TrimSpace(raw)

	var kind, identity, dest string
	if m := explicitPattern.FindStringSubmatch(line); m != nil {
		kind, identity, dest = m[1], strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
		if dest == "" {
			return nil, &FormatError{Raw: raw}
		}
	} else if m := derivedPattern.FindStringSubmatch(line); m != nil {
		kind, identity = m[1], strings.TrimSpace(m[2])
	} else {
		return nil, &FormatError{Raw: raw}
	}

	if identity == "" {
		return nil, &FormatError{Raw: raw}
	}

	switch Kind(kind) {
	case KindRemote:
		base, tag := SplitTag(identity)
		return Remote{URL: base, Tag: tag, Destination: dest}, nil
	case KindLocal:
		return Local{Path: identity, Destination: dest}, nil
	default:
		return nil, &FormatError{Raw: raw}
	}
}

// SplitTag splits a remote identity into its base and tag. The tag is the
// text after the last '@'. It may contain '/' (release/1.0) but not ':', so
// scp-style URLs such as git@host:org/repo.git stay whole. An '@' inside the
// authority of a scheme URL (ssh://git@host/repo.git) is user info, not a tag.
func SplitTag(identity string) (base, tag string) {
	i := strings.LastIndex(identity, "@")
	if i < 0 {
		return identity, ""
	}
	base, candidate := identity[:i], identity[i+1:]
	if candidate == "" || strings.Contains(candidate, ":") {
		return identity, ""
	}
	if j := strings.Index(base, "://"); j >= 0 && !strings.Contains(base[j+3:], "/") {
		return identity, ""
	}
	return base, candidate
}

// DirTag returns tag in a form usable as part of a directory name.
func DirTag(tag string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(tag)
}

// RepoName returns the last path segment of a base identity with a trailing
// ".git" removed.
func RepoName(base string) string {
	trimmed := strings.TrimRight(base, "/")
	if i := strings.LastIndexAny(trimmed, "/:\\"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSuffix(trimmed, ".git")
}
