package model

import (
	"errors"
	"fmt"
)

// State is the trash lifecycle state of an expense.
type State string

const (
	StateActive  State = "active"
	StateTrashed State = "trashed"
	// StatePurged has no stored representation: the row is gone.
	StatePurged State = "purged"
)

// Operation is a lifecycle transition requested by a caller.
type Operation string

const (
	OpTrash   Operation = "trash"
	OpRestore Operation = "restore"
	OpPurge   Operation = "purge"
)

// ErrIllegalTransition is returned when an operation is not allowed from a state.
var ErrIllegalTransition = errors.New("illegal lifecycle transition")

// Edge is a single allowed transition.
type Edge struct {
	From State
	To   State
}

// There is no ACTIVE -> PURGED edge: records are trashed before they are purged.
var transitions = map[Operation]Edge{
	OpTrash:   {From: StateActive, To: StateTrashed},
	OpRestore: {From: StateTrashed, To: StateActive},
	OpPurge:   {From: StateTrashed, To: StatePurged},
}

// EdgeFor returns the transition an operation performs. Callers apply it
// only to rows currently in edge.From.
func EdgeFor(op Operation) (Edge, error) {
	edge, ok := transitions[op]
	if !ok {
		return Edge{}, fmt.Errorf("%w: unknown operation %q", ErrIllegalTransition, op)
	}
	return edge, nil
}

// StateOf maps the stored deletion flag to a state.
func StateOf(isDeleted bool) State {
	if isDeleted {
		return StateTrashed
	}
	return StateActive
}

// Deleted reports the stored deletion flag for a persisted state.
func (s State) Deleted() bool {
	return s == StateTrashed
}
