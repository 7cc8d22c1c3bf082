package rest

import (
	"fmt"

	"github.com/gered/go-hl7-fhir/model"
)

// ValidationError is returned when a caller-supplied value fails the
// structural Resource/Bundle check required by Create, Update or Transaction.
// It is raised before any network call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid argument: " + e.Reason
}

// Error is the protocol error for a non-2xx server response. It carries the
// HTTP status, whether the response body was a FHIR JSON payload, and either
// the decoded payload (typically an OperationOutcome) or the raw body.
//
// It is constructed at the dispatch boundary and never retried; callers
// branch on it with errors.As.
type Error struct {
	// StatusCode is the HTTP status reported by the server.
	StatusCode int
	// IsFHIRResponse reports whether the response carried a FHIR JSON
	// payload. When true, Outcome holds the decoded payload and Body is
	// empty; when false, Body holds the raw response body.
	IsFHIRResponse bool
	Outcome        model.Resource
	Body           string
}

func (e *Error) Error() string {
	if e.IsFHIRResponse {
		return fmt.Sprintf("fhir request failed: status %d (%s)", e.StatusCode, e.Outcome.ResourceType())
	}
	return fmt.Sprintf("fhir request failed: status %d", e.StatusCode)
}
