// Package fault defines the error taxonomy shared by the rapport pipeline.
//
// Two propagation policies exist side by side: terminal faults (validation,
// not-found, configuration, synthesis) surface to the boundary layer, while
// snippet and place lookups degrade to empty results and never produce a
// fault at all. The boundary layer maps fault kinds to HTTP statuses.
package fault

import "errors"

// ValidationError rejects malformed input before any I/O happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports that a ZIP resolves to no known place.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// TimeoutError reports an operation that exceeded its deadline. Msg is
// supplied by the caller that armed the deadline.
type TimeoutError struct {
	Msg string
}

func (e *TimeoutError) Error() string { return e.Msg }

// TransportError reports a network failure or non-success upstream status.
type TransportError struct {
	Msg        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigError reports a missing or invalid credential/endpoint.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// ParseError reports malformed content from an upstream that should have
// been well-formed.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmptySynthesisError reports a model reply that parsed to no anchors and
// no knowledge sentences. Content failure, not transport failure.
type EmptySynthesisError struct {
	Msg string
}

func (e *EmptySynthesisError) Error() string { return e.Msg }

// IsValidation returns true if any error in the chain is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound returns true if any error in the chain is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTimeout returns true if any error in the chain is a TimeoutError.
func IsTimeout(err error) bool {
	var t *TimeoutError
	return errors.As(err, &t)
}

// IsConfig returns true if any error in the chain is a ConfigError.
func IsConfig(err error) bool {
	var c *ConfigError
	return errors.As(err, &c)
}

// IsEmptySynthesis returns true if any error in the chain is an
// EmptySynthesisError.
func IsEmptySynthesis(err error) bool {
	var es *EmptySynthesisError
	return errors.As(err, &es)
}
