package gitx

import (
	"errors"
	"fmt"
)

var (
	// ErrSync is returned when a package source cannot be obtained.
	ErrSync = errors.New("source sync failed")

	// ErrSyncWarning marks a failed refresh of an existing checkout. The
	// checkout is left as it was and the run continues.
	ErrSyncWarning = errors.New("source update failed")

	// ErrInvalidRef is returned when a tag or URL would be read by git as an option.
	ErrInvalidRef = errors.New("invalid git reference")
)

// SyncError reports a clone that did not produce a checkout.
type SyncError struct {
	URL         string
	Tag         string
	Destination string
	Err         error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("clone %s@%s into %s: %v", e.URL, e.Tag, e.Destination, e.Err)
}

func (e *SyncError) Unwrap() []error { return []error{ErrSync, e.Err} }

// SyncWarning reports an existing checkout that could not be refreshed.
type SyncWarning struct {
	Destination string
	Tag         string
	Err         error
}

func (e *SyncWarning) Error() string {
	return fmt.Sprintf("update %s to %s: %v", e.Destination, e.Tag, e.Err)
}

func (e *SyncWarning) Unwrap() []error { return []error{ErrSyncWarning, e.Err} }
