package cae

import (
	"errors"
	"fmt"
)

// LinkErrorCode categorizes invalid handle usage.
type LinkErrorCode string

const (
	// ErrCodeStaleLink indicates a link issued before the last NewTurn.
	ErrCodeStaleLink LinkErrorCode = "STALE_LINK"

	// ErrCodeForeignLink indicates a link issued by another Graph, or a
	// zero Link.
	ErrCodeForeignLink LinkErrorCode = "FOREIGN_LINK"

	// ErrCodeUnknownNode indicates a link whose index is outside the arena.
	ErrCodeUnknownNode LinkErrorCode = "UNKNOWN_NODE"

	// ErrCodeStaleVisitor indicates a visitor resumed after NewTurn or
	// against another Graph.
	ErrCodeStaleVisitor LinkErrorCode = "STALE_VISITOR"
)

// LinkError is the panic value raised when a Graph is handed a handle it
// did not issue in the current turn. It signals a programming error in the
// calling system, so it is raised with panic rather than returned.
type LinkError struct {
	Code LinkErrorCode

	// Op names the Graph operation that rejected the handle.
	Op string

	// ID is the offending handle.
	ID NodeID

	// Generation is the graph's current turn generation.
	Generation uint64
}

// Error implements the error interface.
func (e *LinkError) Error() string {
	return fmt.Sprintf("%s: %s rejected %s (current generation %d)", e.Code, e.Op, e.ID, e.Generation)
}

// IsLinkError reports whether v (an error or a recovered panic value) is a
// *LinkError.
func IsLinkError(v any) bool {
	_, ok := AsLinkError(v)
	return ok
}

// AsLinkError extracts a *LinkError from an error or a recovered panic value.
func AsLinkError(v any) (*LinkError, bool) {
	err, ok := v.(error)
	if !ok {
		return nil, false
	}
	var le *LinkError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// ErrDuplicateSubscription is returned when a Registry already holds a
// subscription with the requested name.
var ErrDuplicateSubscription = errors.New("duplicate subscription")

// ErrInvalidSubscription is returned for an empty name or nil predicate.
var ErrInvalidSubscription = errors.New("invalid subscription")
