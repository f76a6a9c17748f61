package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientCandidates is returned when a question cannot be assembled from the available content.
	ErrInsufficientCandidates = errors.New("insufficient candidates")
	// ErrQueueSlotConflict is returned when the user already holds a queue slot.
	ErrQueueSlotConflict = errors.New("queue slot already held")
	// ErrNotRegistered is returned for users without a stats record.
	ErrNotRegistered = errors.New("user not registered")
	// ErrAlreadyRegistered is returned by a second registration.
	ErrAlreadyRegistered = errors.New("user already registered")
	// ErrNotFound indicates the requested content does not exist.
	ErrNotFound = errors.New("content not found")
	// ErrSessionNotFound is returned for events addressed to a finished or unknown session.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNotSessionOwner is returned when someone other than the session opener responds.
	ErrNotSessionOwner = errors.New("response from another user")
	ErrInvalidTimeLimit = errors.New("time limit must be positive")
)

// Platform error codes the lifecycle cares about.
const (
	CodeUnknownInteraction  = 10062
	CodeAlreadyAcknowledged = 40060
)

// HandshakeError is a failed interaction acknowledgement or edit.
type HandshakeError struct {
	Code int
	Err  error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("interaction handshake failed (code %d): %v", e.Code, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// Expired reports that the interaction token is no longer valid.
func (e *HandshakeError) Expired() bool {
	return e.Code == CodeUnknownInteraction
}

// AlreadyAcknowledged reports a double ack.
func (e *HandshakeError) AlreadyAcknowledged() bool {
	return e.Code == CodeAlreadyAcknowledged
}
