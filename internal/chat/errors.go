package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamEnded reports that the broadcast is over. It is a clean
	// termination, not a failure.
	ErrStreamEnded = errors.New("live stream has ended")

	// ErrNoStreamRef is returned when no video, channel or username was given.
	ErrNoStreamRef = errors.New("either a video id or a channel id/username must be provided")

	// ErrNotLive is returned by resolvers when the target has no active
	// live chat.
	ErrNotLive = errors.New("no active live chat found")
)

// TransientFetchError is a retryable fetch failure: network errors,
// timeouts and rate limiting.
type TransientFetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransientFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: transient failure (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// FatalFetchError is a non-retryable fetch failure such as an invalid or
// expired stream reference.
type FatalFetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FatalFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: fatal failure (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: fatal failure: %v", e.Op, e.Err)
}

func (e *FatalFetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is, or wraps, a *TransientFetchError.
func IsTransient(err error) bool {
	var te *TransientFetchError
	return errors.As(err, &te)
}

// IsFatal reports whether err is, or wraps, a *FatalFetchError.
func IsFatal(err error) bool {
	var fe *FatalFetchError
	return errors.As(err, &fe)
}
