package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check for these with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrBudgetExceeded indicates a user has consumed their tier's monthly
	// token or spend budget. API layer should map this to HTTP 402.
	ErrBudgetExceeded = errors.New("monthly budget exceeded")

	// ErrAuditVerificationFailed indicates an audit record's signature does
	// not match its payload, meaning the record was altered after signing.
	ErrAuditVerificationFailed = errors.New("audit record failed signature verification")
)
