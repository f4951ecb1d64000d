package dbmcp

import "errors"

// Kind classifies a gateway failure for the tool boundary. Every error
// returned by DBMcp methods carries exactly one Kind.
type Kind string

const (
	// KindValidation means the statement failed the read-only policy.
	// The database was never contacted.
	KindValidation Kind = "validation_error"

	// KindConnection means a database session could not be established or
	// re-established. Retried only on the next caller-initiated call.
	KindConnection Kind = "connection_error"

	// KindExecution means the database rejected or failed a validated
	// statement (syntax, permissions, timeout). The message carries the
	// driver's own diagnostic.
	KindExecution Kind = "execution_error"

	// KindNotFound means a schema lookup named a table that does not exist
	// in the resolved schema.
	KindNotFound Kind = "not_found"
)

// Error is the error type returned by all DBMcp methods.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or "" if err is not a gateway error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func connectionError(err error, message string) *Error {
	return &Error{Kind: KindConnection, Message: message, Err: err}
}

func executionError(err error, message string) *Error {
	return &Error{Kind: KindExecution, Message: message, Err: err}
}

func notFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}
