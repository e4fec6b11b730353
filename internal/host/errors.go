package host

import "errors"

// Errors returned by host documents.
var (
	// ErrAttributeNotFound indicates the datablock has no such attribute.
	ErrAttributeNotFound = errors.New("attribute not found")

	// ErrModeRequired indicates a gated attribute was accessed outside the
	// gated mode.
	ErrModeRequired = errors.New("attribute requires edit mode")

	// ErrModeUnsupported indicates the mode is unknown or not available for
	// the active object.
	ErrModeUnsupported = errors.New("mode not supported")

	// ErrModeExclusive indicates another object already holds the gated mode.
	ErrModeExclusive = errors.New("edit mode held by another object")

	// ErrNoActiveObject indicates a mode change without an active object.
	ErrNoActiveObject = errors.New("no active object")

	// ErrForeignObject indicates an object that does not belong to the document.
	ErrForeignObject = errors.New("object does not belong to document")

	// ErrInvalidValue indicates a value of the wrong type for an attribute.
	ErrInvalidValue = errors.New("invalid attribute value")
)
