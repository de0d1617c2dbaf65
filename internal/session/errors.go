package session

import "errors"

// ErrEmptyMessage is a client error: the inbound turn carried no text.
// The turn is rejected with no side effects.
var ErrEmptyMessage = errors.New("no message provided")

// ErrUnavailable signals that a required collaborator (store or model
// binding) is absent. It is raised before any session state is touched.
var ErrUnavailable = errors.New("service unavailable")

// ErrModel wraps a failed hosted-model call. It is surfaced to the
// channel adapter as a generic failure with no retry.
var ErrModel = errors.New("model error")
