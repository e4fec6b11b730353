package proxy

import "errors"

// Errors returned by proxy operations.
var (
	// ErrUUIDMismatch indicates an update addressed to another datablock.
	ErrUUIDMismatch = errors.New("update addressed to another datablock")
)
