package errors

import (
	"errors"
	"fmt"
)

// ClassificationInputError reports a title that is not valid text.
// Callers treat the title as empty and keep going; one bad title never aborts a run.
type ClassificationInputError struct {
	Index  int // position in the record stream, -1 when unknown
	Title  string
	Reason string
}

func (e *ClassificationInputError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("classification input: record %d: %s", e.Index, e.Reason)
	}
	return "classification input: " + e.Reason
}

// Code returns the taxonomy code of the error
func (e *ClassificationInputError) Code() ErrorCode { return ErrCodeClassificationInput }

// AggregationInputError reports a record that violates the aggregation precondition:
// title, channel and timestamp must all be populated.
type AggregationInputError struct {
	Index  int
	Field  string
	Reason string
}

func (e *AggregationInputError) Error() string {
	return fmt.Sprintf("aggregation input: record %d: field %q %s", e.Index, e.Field, e.Reason)
}

// Code returns the taxonomy code of the error
func (e *AggregationInputError) Code() ErrorCode { return ErrCodeAggregationInput }

// NewClassificationInputError creates an error for an unusable title
func NewClassificationInputError(index int, title, reason string) *ClassificationInputError {
	return &ClassificationInputError{Index: index, Title: title, Reason: reason}
}

// NewAggregationInputError creates an error for the first record failing validation
func NewAggregationInputError(index int, field, reason string) *AggregationInputError {
	return &AggregationInputError{Index: index, Field: field, Reason: reason}
}

// IsClassificationInput checks if the error is a ClassificationInputError
func IsClassificationInput(err error) bool {
	var target *ClassificationInputError
	return errors.As(err, &target)
}

// IsAggregationInput checks if the error is an AggregationInputError
func IsAggregationInput(err error) bool {
	var target *AggregationInputError
	return errors.As(err, &target)
}
