// Package lockfile records how each stage was resolved.
//
// After a stage is ordered its packages, destinations, folders, and
// dependencies are written to package.lock.json. Later stages are merged into
// the same file so it always describes the most recent run of every stage.
package lockfile

import "time"

// SchemaVersion is written into every lock file.
const SchemaVersion = 1

// Lock is the on-disk document.
type Lock struct {
	Version int `json:"version"`

	// GeneratedAt is when the file was last written.
	GeneratedAt time.Time `json:"generatedAt"`

	InstallRoot string `json:"installRoot"`

	// Stages appear in the order they were first recorded.
	Stages []Stage `json:"stages"`
}

// Stage is the resolution of one stage.
type Stage struct {
	Name string `json:"name"`

	// BuildOrder lists destinations in dispatch order.
	BuildOrder []string `json:"buildOrder"`

	Packages []Package `json:"packages"`

	// ReferencesSHA256 fingerprints the stage's reference list as written.
	ReferencesSHA256 string `json:"referencesSha256,omitempty"`
}

// Package is one resolved package.
type Package struct {
	// BuildIndex is the package's position in BuildOrder.
	BuildIndex int `json:"buildIndex"`

	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Identity    string `json:"identity"`
	Tag         string `json:"tag,omitempty"`
	Version     string `json:"version,omitempty"`
	Destination string `json:"destination"`

	BuildFolder   string `json:"buildFolder"`
	InstallFolder string `json:"installFolder"`

	// Dependencies are destinations, as resolved.
	Dependencies []string `json:"dependencies"`

	// ManifestSHA256 is empty when the package has no manifest.
	ManifestSHA256 string `json:"manifestSha256,omitempty"`
}

// New creates an empty lock.
func New(installRoot string) *Lock {
	return &Lock{
		Version:     SchemaVersion,
		InstallRoot: installRoot,
		Stages:      []Stage{},
	}
}

// Upsert replaces the stage with the same name or appends st.
func (l *Lock) Upsert(st Stage) {
	for i := range l.Stages {
		if l.Stages[i].Name == st.Name {
			l.Stages[i] = st
			return
		}
	}
	l.Stages = append(l.Stages, st)
}

// Stage returns the named stage.
func (l *Lock) Stage(name string) (*Stage, bool) {
	for i := range l.Stages {
		if l.Stages[i].Name == name {
			return &l.Stages[i], true
		}
	}
	return nil, false
}
