package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorCode classifies failures raised by the snapshot store and the analysis core
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeNotFound
	ErrCodeDuplicate
	ErrCodeConstraint
	ErrCodeConnection
	ErrCodeTransaction
	ErrCodeTimeout
	ErrCodeValidation
	ErrCodePermission
	ErrCodeDiskSpace
	ErrCodeCorruption
	ErrCodeInternal
	ErrCodeBusy
	ErrCodeSchema
	ErrCodeClassificationInput
	ErrCodeAggregationInput
)

var codeNames = map[ErrorCode]string{
	ErrCodeNotFound:            "NOT_FOUND",
	ErrCodeDuplicate:           "DUPLICATE",
	ErrCodeConstraint:          "CONSTRAINT",
	ErrCodeConnection:          "CONNECTION",
	ErrCodeTransaction:         "TRANSACTION",
	ErrCodeTimeout:             "TIMEOUT",
	ErrCodeValidation:          "VALIDATION",
	ErrCodePermission:          "PERMISSION",
	ErrCodeDiskSpace:           "DISK_SPACE",
	ErrCodeCorruption:          "CORRUPTION",
	ErrCodeInternal:            "INTERNAL",
	ErrCodeBusy:                "BUSY",
	ErrCodeSchema:              "SCHEMA",
	ErrCodeClassificationInput: "CLASSIFICATION_INPUT",
	ErrCodeAggregationInput:    "AGGREGATION_INPUT",
}

// String returns a string representation of the error code
func (e ErrorCode) String() string {
	if name, ok := codeNames[e]; ok {
		return name
	}
	return "UNKNOWN"
}

// RepositoryError is a snapshot store error with context and retry information
type RepositoryError struct {
	Op        string            // operation name
	Err       error             // underlying error
	Code      ErrorCode         // error classification
	Retryable bool              // whether the error is retryable
	Context   map[string]string // additional context information
	Timestamp time.Time         // when the error occurred
}

func (e *RepositoryError) Error() string {
	if e == nil {
		return "repository error"
	}

	var parts []string
	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}
	if e.Code != ErrCodeUnknown {
		parts = append(parts, "code="+e.Code.String())
	}
	if e.Retryable {
		parts = append(parts, "retryable=true")
	}

	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, e.Context[k]))
	}

	suffix := ""
	if len(parts) > 0 {
		suffix = " [" + strings.Join(parts, " ") + "]"
	}

	if e.Err != nil {
		return e.Err.Error() + suffix
	}
	return "repository error" + suffix
}

func (e *RepositoryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another RepositoryError by code, or the wrapped error
func (e *RepositoryError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*RepositoryError); ok {
		return e.Code == t.Code
	}
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// IsRetryable returns whether the error is retryable
func (e *RepositoryError) IsRetryable() bool {
	return e != nil && e.Retryable
}

// GetCode returns the error code as a string (for logging interface compatibility)
func (e *RepositoryError) GetCode() string {
	if e == nil {
		return ErrCodeUnknown.String()
	}
	return e.Code.String()
}

// GetContext returns the error context, never nil
func (e *RepositoryError) GetContext() map[string]string {
	if e == nil || e.Context == nil {
		return map[string]string{}
	}
	return e.Context
}

// GetTimestamp returns when the error was created
func (e *RepositoryError) GetTimestamp() time.Time {
	if e == nil {
		return time.Time{}
	}
	return e.Timestamp
}

// WithContext adds a context entry by mutating the receiver.
// Not safe once the error has been shared between goroutines.
func (e *RepositoryError) WithContext(key, value string) *RepositoryError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// NewRepositoryError creates a new repository error with the given parameters
func NewRepositoryError(op string, err error, code ErrorCode) *RepositoryError {
	return &RepositoryError{
		Op:        op,
		Err:       err,
		Code:      code,
		Retryable: isRetryableError(code, err),
		Context:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// NewRepositoryErrorWithContext creates a new repository error with a copy of the given context
func NewRepositoryErrorWithContext(op string, err error, code ErrorCode, context map[string]string) *RepositoryError {
	repoErr := NewRepositoryError(op, err, code)
	for k, v := range context {
		repoErr.Context[k] = v
	}
	return repoErr
}

// isRetryableError determines if an error is retryable based on its code
func isRetryableError(code ErrorCode, err error) bool {
	switch code {
	case ErrCodeConnection, ErrCodeTimeout, ErrCodeTransaction, ErrCodeBusy:
		return true
	case ErrCodeUnknown:
		if err == nil {
			return false
		}
		msg := strings.ToLower(err.Error())
		for _, hint := range []string{"temporary", "retry", "busy", "locked", "deadlock"} {
			if strings.Contains(msg, hint) {
				return true
			}
		}
		return false
	default:
		// disk space needs external cleanup, everything else is deterministic
		return false
	}
}

func hasCode(err error, code ErrorCode) bool {
	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.Code == code
	}
	return false
}

// IsNotFound checks if the error is a "not found" error
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsDuplicate checks if the error is a "duplicate" error
func IsDuplicate(err error) bool { return hasCode(err, ErrCodeDuplicate) }

// IsConstraint checks if the error is a constraint violation
func IsConstraint(err error) bool { return hasCode(err, ErrCodeConstraint) }

// IsConnection checks if the error is a connection error
func IsConnection(err error) bool { return hasCode(err, ErrCodeConnection) }

// IsTransaction checks if the error is a transaction error
func IsTransaction(err error) bool { return hasCode(err, ErrCodeTransaction) }

// IsTimeout checks if the error is a timeout error
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsBusy checks if the error is a busy/locked error
func IsBusy(err error) bool { return hasCode(err, ErrCodeBusy) }

// IsCorruption checks if the error is a corruption error
func IsCorruption(err error) bool { return hasCode(err, ErrCodeCorruption) }

// IsSchema checks if the error is a schema error
func IsSchema(err error) bool { return hasCode(err, ErrCodeSchema) }

// IsValidation checks if the error is a validation error, including input errors raised by the analysis core
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation) || IsClassificationInput(err) || IsAggregationInput(err)
}

// IsRetryable checks if the error is retryable
func IsRetryable(err error) bool {
	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.Retryable
	}
	return false
}
