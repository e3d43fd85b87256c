package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")

	// ErrSerializationFailure is the retryable signal raised when the store
	// aborts a serializable transaction. Callers retry the whole transaction.
	ErrSerializationFailure = NewDomainError("SERIALIZATION_FAILURE", "Transaction aborted due to concurrent access, retry required")

	// ErrSequenceOverflow is raised when a number sequence would exceed its
	// fixed-width serial field. Retrying cannot help.
	ErrSequenceOverflow = NewDomainError("SEQUENCE_OVERFLOW", "Number sequence exhausted for the current period")

	// ErrNoMatchingRule is returned when no approval rule applies and the
	// configured fallback policy rejects the submission.
	ErrNoMatchingRule = NewDomainError("NO_MATCHING_RULE", "No approval rule matches the submitted document")
)
