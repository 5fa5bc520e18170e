// Package datastore provides dataset retrieval from the remote data store.
// A dataset is addressed by an opaque handle and materializes as a
// directory of files.
package datastore

import (
	"context"
	"errors"
	"fmt"
)

// Fetcher retrieves a remote dataset into a local directory. The source
// manager depends on this interface; the concrete client below talks to
// the data store REST API.
type Fetcher interface {
	// Fetch downloads the dataset identified by handle into dest. The
	// destination directory is created if needed. On failure the caller
	// must treat dest as garbage.
	Fetch(ctx context.Context, handle, dest string) error
}

// FetchError reports a failed dataset retrieval. A fetch failure aborts
// the whole build, since any output might depend on the dataset.
type FetchError struct {
	Handle string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch dataset %q: %v", e.Handle, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err stems from a dataset retrieval failure.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// TransientError marks an error as retryable (timeouts, 5xx responses).
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }

func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
