// Package registry tracks which tag of each package identity has been
// claimed during one invocation.
//
// A base identity (the identity with its @tag stripped) may be claimed by
// exactly one full identity for the lifetime of a Registry. Claims are
// append-only: re-claiming with the same full identity is a no-op, a claim
// with a different tag is a conflict, and nothing is ever unregistered.
package registry

import (
	"errors"
	"fmt"
	"sync"
)

// ErrTagConflict indicates a base identity was claimed with two different tags.
var ErrTagConflict = errors.New("tag conflict")

// TagConflictError reports a second claim on a base identity with another tag.
type TagConflictError struct {
	Base         string
	ExistingTag  string
	RequestedTag string
}

func (e *TagConflictError) Error() string {
	return fmt.Sprintf("%s: %s is already claimed with tag %q, cannot claim it with tag %q",
		ErrTagConflict, e.Base, e.ExistingTag, e.RequestedTag)
}

func (e *TagConflictError) Unwrap() error { return ErrTagConflict }

// Claim is one registered package.
type Claim struct {
	Base        string
	Full        string
	Tag         string
	Destination string

	// Stage is the stage that made the claim.
	Stage string
}

// Registry maps base identities to the claim that owns them.
type Registry struct {
	mu     sync.RWMutex
	byBase map[string]*Claim
	byFull map[string]*Claim
	byDest map[string]*Claim
	order  []*Claim
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byBase: make(map[string]*Claim),
		byFull: make(map[string]*Claim),
		byDest: make(map[string]*Claim),
	}
}

// Claim registers full (base plus tag) at destination. It returns the claim
// now owning base, and a *TagConflictError when base is owned by another tag.
// The boolean is true when this call created the claim.
func (r *Registry) Claim(stage, base, tag, full, destination string) (*Claim, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byBase[base]; ok {
		if existing.Full == full {
			return existing, false, nil
		}
		return existing, false, &TagConflictError{
			Base:         base,
			ExistingTag:  existing.Tag,
			RequestedTag: tag,
		}
	}

	c := &Claim{
		Base:        base,
		Full:        full,
		Tag:         tag,
		Destination: destination,
		Stage:       stage,
	}
	r.byBase[base] = c
	r.byFull[full] = c
	if _, taken := r.byDest[destination]; !taken {
		r.byDest[destination] = c
	}
	r.order = append(r.order, c)
	return c, true, nil
}

// Lookup returns the claim owning base.
func (r *Registry) Lookup(base string) (*Claim, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byBase[base]
	return c, ok
}

// Destination returns the destination registered for a full identity.
func (r *Registry) Destination(full string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byFull[full]
	if !ok {
		return "", false
	}
	return c.Destination, true
}

// AtDestination returns the first claim registered at an absolute destination.
func (r *Registry) AtDestination(destination string) (*Claim, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byDest[destination]
	return c, ok
}

// Claims returns all claims in registration order.
func (r *Registry) Claims() []Claim {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Claim, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, *c)
	}
	return out
}

// Len returns the number of claims.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
