package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassificationInputError(t *testing.T) {
	err := NewClassificationInputError(3, "\xff", "title is not valid UTF-8")

	if !strings.Contains(err.Error(), "record 3") {
		t.Errorf("Error() = %q, want record index", err.Error())
	}
	if err.Code() != ErrCodeClassificationInput {
		t.Errorf("Code() = %v", err.Code())
	}

	wrapped := fmt.Errorf("classify: %w", err)
	if !IsClassificationInput(wrapped) {
		t.Error("IsClassificationInput should see through wrapping")
	}
	if !IsValidation(wrapped) {
		t.Error("classification input errors count as validation errors")
	}
	if IsAggregationInput(wrapped) {
		t.Error("classification error is not an aggregation error")
	}

	noIndex := NewClassificationInputError(-1, "", "empty")
	if strings.Contains(noIndex.Error(), "record") {
		t.Errorf("Error() without index = %q", noIndex.Error())
	}
}

func TestAggregationInputError(t *testing.T) {
	err := NewAggregationInputError(7, "watchedAt", "is zero")

	want := `aggregation input: record 7: field "watchedAt" is zero`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Code() != ErrCodeAggregationInput {
		t.Errorf("Code() = %v", err.Code())
	}

	var target *AggregationInputError
	if !errors.As(fmt.Errorf("load: %w", err), &target) || target.Index != 7 {
		t.Error("errors.As should recover the index")
	}
	if !IsAggregationInput(err) || !IsValidation(err) {
		t.Error("predicates should match")
	}
	if IsAggregationInput(errors.New("plain")) {
		t.Error("plain error should not match")
	}
}
