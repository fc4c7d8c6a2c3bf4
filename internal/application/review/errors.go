package review

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when an action arrives while a request is outstanding
	ErrBusy = errors.New("another request is in progress")

	// ErrFirstRecord is returned by GoPrevious at the head of the queue
	ErrFirstRecord = errors.New("already at the first record")

	// ErrLastRecord is returned by GoNext at the tail of the queue
	ErrLastRecord = errors.New("already at the last record")

	ErrNoManager           = errors.New("please select a project manager")
	ErrInvalidMode         = errors.New("invalid session mode")
	ErrInvalidFilter       = errors.New("status filter not available for this mode")
	ErrInvalidValue        = errors.New("value not allowed")
	ErrNotReviewing        = errors.New("no task is under review")
	ErrConfirmationPending = errors.New("support change awaiting confirmation")
	ErrNoConfirmation      = errors.New("no support change awaiting confirmation")
	ErrFieldNotEditable    = errors.New("field cannot be edited inline")
	ErrViewModeOnly        = errors.New("inline edits are only available in view mode")
	ErrWrongPhase          = errors.New("action not available in the current phase")
)

// RequestError is a backend call failure, carrying the message shown to
// the user. Session state is left as it was before the call.
type RequestError struct {
	Op      string
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
