package tts

import (
	"errors"
	"fmt"
)

// Common speech errors
var (
	// ErrNoEngineConfigured indicates no speech engine has been selected
	ErrNoEngineConfigured = errors.New("no speech engine configured - specify --tts piper, --tts openai or --tts mock")

	// ErrEngineUnavailable indicates the selected engine cannot synthesize at all
	ErrEngineUnavailable = errors.New("speech engine unavailable")

	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid speech engine specified")

	// ErrEmptyText indicates there is nothing left to say after normalization
	ErrEmptyText = errors.New("nothing to synthesize")

	// ErrInvalidSpeed indicates speed value is out of range
	ErrInvalidSpeed = errors.New("speed must be between 0.25 and 4.0")
)

// EngineUnavailableError reports that an engine cannot produce audio for a
// voice: a missing binary, model file or credential. It matches
// ErrEngineUnavailable with errors.Is.
type EngineUnavailableError struct {
	Engine string
	Voice  string
	Err    error
}

func (e *EngineUnavailableError) Error() string {
	msg := fmt.Sprintf("%s engine unavailable", e.Engine)
	if e.Voice != "" {
		msg += fmt.Sprintf(" for voice %q", e.Voice)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EngineUnavailableError) Unwrap() error { return e.Err }

// Is reports whether target is ErrEngineUnavailable.
func (e *EngineUnavailableError) Is(target error) bool {
	return target == ErrEngineUnavailable
}

// RemoteSynthesisError is returned by network-backed engines. Retryable is
// set for rate limiting, server errors and timeouts; other failures affect
// only the utterance being synthesized.
type RemoteSynthesisError struct {
	Status    int
	Retryable bool
	Err       error
}

func (e *RemoteSynthesisError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote synthesis failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("remote synthesis failed: %v", e.Err)
}

func (e *RemoteSynthesisError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a retryable remote synthesis failure.
func IsRetryable(err error) bool {
	var rse *RemoteSynthesisError
	return errors.As(err, &rse) && rse.Retryable
}
