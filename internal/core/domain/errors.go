package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of them,
// so callers can branch with errors.Is.
var (
	ErrPrecondition      = errors.New("precondition violated")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConsistency       = errors.New("store consistency violated")
	ErrLogic             = errors.New("operation not allowed in current state")
	ErrMultipleVote      = errors.New("vote already registered")
)

var (
	ErrAlreadyPersisted    = fmt.Errorf("%w: entity can be saved only once", ErrPrecondition)
	ErrNotPersisted        = fmt.Errorf("%w: entity is not saved yet", ErrPrecondition)
	ErrMissingOwner        = fmt.Errorf("%w: owner id is required", ErrPrecondition)
	ErrEmptyTitle          = fmt.Errorf("%w: title is required", ErrPrecondition)
	ErrInvalidStatus       = fmt.Errorf("%w: unknown planning status", ErrPrecondition)
	ErrMissingPlanning     = fmt.Errorf("%w: planning id is required", ErrPrecondition)
	ErrEmptyOptionText     = fmt.Errorf("%w: option text is required", ErrPrecondition)
	ErrNegativeOrdinal     = fmt.Errorf("%w: option ordinal must not be negative", ErrPrecondition)
	ErrMissingVoterID      = fmt.Errorf("%w: voter id is required", ErrPrecondition)
	ErrMissingFirstName    = fmt.Errorf("%w: voter first name is required", ErrPrecondition)
	ErrPlanningInProgress  = fmt.Errorf("%w: a planning is already under construction", ErrPrecondition)
	ErrPlanningNotEditable = fmt.Errorf("%w: options can only be added while under construction", ErrPrecondition)

	ErrPlanningNotOpened = fmt.Errorf("%w: planning not opened: impossible to vote", ErrLogic)
)
