package domain

import (
	"errors"
	"fmt"
)

// Common domain errors. Typed errors below wrap one of these so callers can
// classify failures with errors.Is.
var (
	// ErrValidation indicates rejected input; no state was changed.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition indicates a bid status change not permitted by
	// the bid state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInconsistentWeights indicates criteria weights that do not sum to 100.
	ErrInconsistentWeights = errors.New("criteria weights do not sum to 100")

	// ErrNotFound indicates that a tender, bid or evaluation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateBid indicates a second bid by the same bidder on one tender.
	ErrDuplicateBid = errors.New("bidder already submitted a bid for this tender")

	// ErrAlreadyAwarded indicates an attempt to award a tender that already
	// has a different winner, or to change bids of an awarded tender.
	ErrAlreadyAwarded = errors.New("tender already awarded")

	// ErrNotOwner indicates an owner-only action by someone other than the
	// tender's owner.
	ErrNotOwner = errors.New("not the tender owner")
)

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

// Invalid is shorthand for a ValidationError with a single message.
func Invalid(entity, format string, args ...any) *ValidationError {
	e := NewValidationError(entity)
	e.AddError(fmt.Sprintf(format, args...))
	return e
}

// StateTransitionError reports a rejected bid status change. It is returned
// before any write is attempted.
type StateTransitionError struct {
	BidID string
	From  BidStatus
	To    BidStatus
}

// Error implements the error interface for StateTransitionError.
func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("bid %s: cannot move from %s to %s", e.BidID, e.From, e.To)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *StateTransitionError) Unwrap() error { return ErrInvalidTransition }

// NewStateTransitionError creates a StateTransitionError.
func NewStateTransitionError(bidID string, from, to BidStatus) *StateTransitionError {
	return &StateTransitionError{BidID: bidID, From: from, To: to}
}

// OwnershipError reports an owner-only action attempted by another user.
type OwnershipError struct {
	TenderID string
	UserID   string
}

// Error implements the error interface for OwnershipError.
func (e *OwnershipError) Error() string {
	return fmt.Sprintf("user %q does not own tender %s", e.UserID, e.TenderID)
}

// Unwrap lets errors.Is match ErrNotOwner.
func (e *OwnershipError) Unwrap() error { return ErrNotOwner }

// InconsistentWeightError reports a rubric whose weights do not add up to
// 100. It is a soft error: the aggregator never raises it and scores whatever
// the weights dictate. Only authoring-time checks return it.
type InconsistentWeightError struct {
	TenderID string
	Total    float64
}

// Error implements the error interface for InconsistentWeightError.
func (e *InconsistentWeightError) Error() string {
	return fmt.Sprintf("tender %s: criteria weights sum to %.2f, want 100", e.TenderID, e.Total)
}

// Unwrap lets errors.Is match ErrInconsistentWeights.
func (e *InconsistentWeightError) Unwrap() error { return ErrInconsistentWeights }

// NewInconsistentWeightError creates an InconsistentWeightError.
func NewInconsistentWeightError(tenderID string, total float64) *InconsistentWeightError {
	return &InconsistentWeightError{TenderID: tenderID, Total: total}
}
