package rig

import (
	"errors"
	"fmt"
)

// Errors returned by rig proxies.
var (
	// ErrInvalidKey indicates an empty collection key.
	ErrInvalidKey = errors.New("invalid datablock key")

	// ErrKeyMismatch indicates a key naming another datablock in its parent.
	ErrKeyMismatch = errors.New("key does not name datablock in parent")

	// ErrOwnerNotFound indicates no object references the datablock.
	// Operations degrade to ordinary attributes and never return it.
	ErrOwnerNotFound = errors.New("owner object not found")

	// ErrPendingCommitMissing indicates a deferred commit without a
	// stashed gated region.
	ErrPendingCommitMissing = errors.New("no pending gated region")

	// ErrGatedWrite indicates the deferred write of the gated region failed.
	ErrGatedWrite = errors.New("gated region write failed")
)

// GatedWriteError describes a failed deferred commit.
type GatedWriteError struct {
	UUID  string
	Owner string
	Err   error
}

// Error implements the error interface.
func (e *GatedWriteError) Error() string {
	return fmt.Sprintf("%s: datablock %s owner %s: %v", ErrGatedWrite, e.UUID, e.Owner, e.Err)
}

// Unwrap returns the underlying error.
func (e *GatedWriteError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrGatedWrite.
func (e *GatedWriteError) Is(target error) bool {
	return target == ErrGatedWrite
}
