package vdom

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPatchTarget is returned when a patch addresses a node that
	// does not exist or has the wrong kind. It means the patches were computed
	// against a different tree state; retrying the same patches cannot succeed.
	ErrInvalidPatchTarget = errors.New("vdom: invalid patch target")

	// ErrInvalidPatch is returned for malformed patches, such as an unknown
	// op or a Replace without a node payload.
	ErrInvalidPatch = errors.New("vdom: invalid patch")
)

// PatchError describes why a patch could not be applied.
type PatchError struct {
	Index  int     // Position of the failing patch in the stream (-1 for the root)
	Op     PatchOp // Operation of the failing patch
	Path   Path    // Address the patch targeted
	Want   string  // Expected target shape
	Got    Kind    // Kind actually found, when a node was found
	Found  bool    // Whether the path resolved to a node
	Reason string  // Human-readable cause
	Err    error   // ErrInvalidPatchTarget or ErrInvalidPatch
}

// Error implements the error interface.
func (e *PatchError) Error() string {
	msg := fmt.Sprintf("%v: patch %d (%s %s): %s", e.Err, e.Index, e.Op, e.Path, e.Reason)
	if e.Want != "" {
		if e.Found {
			msg += fmt.Sprintf(" (want %s, got %s)", e.Want, e.Got)
		} else {
			msg += fmt.Sprintf(" (want %s)", e.Want)
		}
	}
	return msg
}

// Unwrap returns the sentinel error for errors.Is support.
func (e *PatchError) Unwrap() error {
	return e.Err
}
