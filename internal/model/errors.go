package model

import "fmt"

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NotFoundError reports a missing catalog entry or display record.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// CorrelationMissError is raised by a stage when the request id decoded from
// an object name has no process record. The event must not be acknowledged.
type CorrelationMissError struct {
	RequestID string
	ObjectKey string
}

func (e *CorrelationMissError) Error() string {
	return fmt.Sprintf("no process record for request %q (object %q)", e.RequestID, e.ObjectKey)
}

// UpstreamServiceError wraps a failed call to an inference service.
type UpstreamServiceError struct {
	Service string
	Err     error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Service, e.Err)
}

func (e *UpstreamServiceError) Unwrap() error {
	return e.Err
}
