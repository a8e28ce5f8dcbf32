package link

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat indicates a reference string does not match the grammar.
	ErrFormat = errors.New("malformed package reference")

	// ErrMissingTag indicates a remote reference has neither a tag nor an
	// explicit destination, so no destination can be derived.
	ErrMissingTag = errors.New("remote reference has no tag")
)

// FormatError reports a reference that matches neither accepted grammar.
type FormatError struct {
	Raw string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %q (expected %q)", ErrFormat, e.Raw, Grammar)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// MissingTagError reports a remote reference whose destination cannot be derived.
type MissingTagError struct {
	Identity string
}

func (e *MissingTagError) Error() string {
	return fmt.Sprintf("%s: %q needs an @tag suffix or an explicit '=> <destination>'", ErrMissingTag, e.Identity)
}

func (e *MissingTagError) Unwrap() error { return ErrMissingTag }
