package errors

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// messageCodes maps driver-agnostic error text to a code. Order matters: first match wins.
var messageCodes = []struct {
	fragment string
	code     ErrorCode
}{
	{"unique constraint", ErrCodeDuplicate},
	{"foreign key constraint", ErrCodeConstraint},
	{"check constraint", ErrCodeConstraint},
	{"not null constraint", ErrCodeConstraint},
	{"database is locked", ErrCodeBusy},
	{"database disk image is malformed", ErrCodeCorruption},
	{"no such table", ErrCodeSchema},
	{"no such column", ErrCodeSchema},
	{"permission denied", ErrCodePermission},
	{"read-only", ErrCodePermission},
	{"disk full", ErrCodeDiskSpace},
	{"no space left", ErrCodeDiskSpace},
	{"unable to open database", ErrCodeConnection},
	{"sql: database is closed", ErrCodeConnection},
	{"timeout", ErrCodeTimeout},
	{"deadlock", ErrCodeTransaction},
	{"transaction has already been committed", ErrCodeTransaction},
}

// ClassifyError maps a snapshot store error to an ErrorCode
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return ErrCodeUnknown
	}

	if code := classifySQLiteError(err); code != ErrCodeUnknown {
		return code
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrCodeNotFound
	case errors.Is(err, sql.ErrTxDone):
		return ErrCodeTransaction
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrCodeTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, mc := range messageCodes {
		if strings.Contains(msg, mc.fragment) {
			return mc.code
		}
	}
	return ErrCodeUnknown
}

// WrapDatabaseError wraps a database error with its classified code
func WrapDatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewRepositoryError(op, err, ClassifyError(err))
}

// WrapDatabaseErrorWithContext wraps a database error with its classified code and extra context
func WrapDatabaseErrorWithContext(op string, err error, contextMap map[string]string) error {
	if err == nil {
		return nil
	}
	return NewRepositoryErrorWithContext(op, err, ClassifyError(err), contextMap)
}

// HandleNotFound creates a not found error for a missing snapshot resource
func HandleNotFound(op string, resource string, identifier string) error {
	return NewRepositoryErrorWithContext(op, sql.ErrNoRows, ErrCodeNotFound, map[string]string{
		"resource":   resource,
		"identifier": identifier,
	})
}

// HandleValidationError creates a validation error for a rejected input value
func HandleValidationError(op string, field string, value string, reason string) error {
	return NewRepositoryErrorWithContext(op, errors.New("validation failed"), ErrCodeValidation, map[string]string{
		"field":  field,
		"value":  value,
		"reason": reason,
	})
}

// HandleConnectionError creates a connection error
func HandleConnectionError(op string, details string) error {
	return NewRepositoryErrorWithContext(op, errors.New("connection error"), ErrCodeConnection, map[string]string{
		"details": details,
	})
}

// HandleTransactionError creates a transaction error for the failing phase (begin, commit, rollback)
func HandleTransactionError(op string, phase string, details string) error {
	return NewRepositoryErrorWithContext(op, errors.New("transaction error"), ErrCodeTransaction, map[string]string{
		"phase":   phase,
		"details": details,
	})
}

// HandleSchemaError creates a schema error, raised when the snapshot was written by an incompatible version
func HandleSchemaError(op string, details string) error {
	return NewRepositoryErrorWithContext(op, errors.New("schema mismatch"), ErrCodeSchema, map[string]string{
		"details": details,
	})
}
