package gitx

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// FakeSyncer is a test double that records calls instead of running git.
//
// When Materialize is true a successful Clone creates dest and writes the
// files registered for the URL in Files, so callers that read the checkout
// afterwards (manifests, build folders) see real content.
type FakeSyncer struct {
	mu sync.Mutex

	CloneCalls  []CloneCall
	UpdateCalls []UpdateCall

	// Configurable responses
	CloneErr    error
	UpdateErr   error
	CloneErrs   map[string]error // by URL, wins over CloneErr
	UpdateErrs  map[string]error // by destination, wins over UpdateErr
	Materialize bool
	Files       map[string]map[string]string // URL -> relative path -> content
}

type CloneCall struct {
	URL         string
	Tag         string
	Destination string
}

type UpdateCall struct {
	Destination string
	Tag         string
}

// NewFakeSyncer creates a FakeSyncer that materializes clones.
func NewFakeSyncer() *FakeSyncer {
	return &FakeSyncer{
		CloneErrs:   make(map[string]error),
		UpdateErrs:  make(map[string]error),
		Materialize: true,
		Files:       make(map[string]map[string]string),
	}
}

// AddFile registers a file to write into checkouts of url.
func (f *FakeSyncer) AddFile(url, rel, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Files == nil {
		f.Files = make(map[string]map[string]string)
	}
	if f.Files[url] == nil {
		f.Files[url] = make(map[string]string)
	}
	f.Files[url][rel] = content
}

func (f *FakeSyncer) Clone(ctx context.Context, url, tag, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CloneCalls = append(f.CloneCalls, CloneCall{URL: url, Tag: tag, Destination: dest})
	if err, ok := f.CloneErrs[url]; ok {
		return err
	}
	if f.CloneErr != nil {
		return f.CloneErr
	}
	if !f.Materialize {
		return nil
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	for rel, content := range f.Files[url] {
		path := filepath.Join(dest, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeSyncer) Update(ctx context.Context, dest, tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.UpdateCalls = append(f.UpdateCalls, UpdateCall{Destination: dest, Tag: tag})
	if err, ok := f.UpdateErrs[dest]; ok {
		return err
	}
	return f.UpdateErr
}

// Cloned reports whether Clone was called for url.
func (f *FakeSyncer) Cloned(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.CloneCalls {
		if c.URL == url {
			return true
		}
	}
	return false
}
