package domain

import "errors"

// ErrUnknownProtocol is returned when no schema matches a protocol ID.
var ErrUnknownProtocol = errors.New("unknown protocol")

// ErrInvalidSchema is returned for a schema that breaks the step sequence rules
// (no steps, gaps in the indices, a missing or misplaced terminal step).
var ErrInvalidSchema = errors.New("invalid schema")

// ErrAtFirstStep is returned when retreating from step 1.
var ErrAtFirstStep = errors.New("already at first step")

// ErrAtTerminalStep is returned when advancing past the terminal step.
// Callers should Finish instead.
var ErrAtTerminalStep = errors.New("already at terminal step")

// ErrNotAtTerminalStep is returned when finishing a session that has not reached its last step.
var ErrNotAtTerminalStep = errors.New("not at terminal step")

// ErrStepOutOfRange is returned when jumping to an index outside 1..N.
var ErrStepOutOfRange = errors.New("step out of range")

// ErrInvalidFieldPath is returned for an empty path segment or a path that
// descends through a value that is not a group.
var ErrInvalidFieldPath = errors.New("invalid field path")

// ErrUnboundState is returned when a state has no schema attached (e.g. after deserialization).
var ErrUnboundState = errors.New("session state is not bound to a schema")

// ErrRecordNotFound is returned when a record ID cannot be found in the store.
var ErrRecordNotFound = errors.New("record not found")

// ErrDuplicateRecord is returned when appending a record whose ID is already stored.
var ErrDuplicateRecord = errors.New("duplicate record")
