package gateway

import (
	"errors"
	"fmt"
)

// TransportError covers an unreachable backend, a non-2xx answer without a
// structured error body, or a body that could not be decoded.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	default:
		return e.Op + ": transport error"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError is a backend-reported failure carrying an {"error": "..."} body,
// e.g. a CSV with bad headers or non-numeric fields.
type ValidationError struct {
	Op      string
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// NotFoundError means the referenced dataset id is unknown to the backend.
type NotFoundError struct {
	Op string
	ID string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	if e.ID == "" {
		return e.Op + ": not found"
	}
	return fmt.Sprintf("%s: dataset %s not found", e.Op, e.ID)
}

// Message extracts the text shown to the operator: the backend-supplied error
// when present, otherwise the transport error's message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Message != "" {
		return verr.Message
	}
	var terr *TransportError
	if errors.As(err, &terr) && terr.Err != nil {
		return terr.Err.Error()
	}
	return err.Error()
}
