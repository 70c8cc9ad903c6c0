// Package errs holds the sentinel domain errors shared by services and
// handlers. Handlers match them with errors.Is to pick a response code.
package errs

import "errors"

var (
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrTicketNotOpen is returned when a claim finds the ticket already
	// assigned or closed: the conditional update matched zero rows but the
	// ticket exists. Callers surface it as a conflict, distinct from
	// ErrTicketNotFound.
	ErrTicketNotOpen = errors.New("ticket already assigned or closed")

	// ErrTicketClosed rejects new messages on a CLOSED ticket.
	ErrTicketClosed = errors.New("cannot send message to a closed ticket")

	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidSender = errors.New("invalid sender type")
	ErrValidation    = errors.New("missing required field")
)
