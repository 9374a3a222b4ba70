package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ErrCodeUnknown},
		{"no rows", sql.ErrNoRows, ErrCodeNotFound},
		{"wrapped no rows", fmt.Errorf("get: %w", sql.ErrNoRows), ErrCodeNotFound},
		{"tx done", sql.ErrTxDone, ErrCodeTransaction},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"unique", errors.New("UNIQUE constraint failed: category_counts.category"), ErrCodeDuplicate},
		{"foreign key", errors.New("FOREIGN KEY constraint failed"), ErrCodeConstraint},
		{"not null", errors.New("NOT NULL constraint failed: watch_records.title"), ErrCodeConstraint},
		{"locked", errors.New("database is locked"), ErrCodeBusy},
		{"malformed", errors.New("database disk image is malformed"), ErrCodeCorruption},
		{"missing table", errors.New("no such table: watch_records"), ErrCodeSchema},
		{"missing column", errors.New("no such column: foo"), ErrCodeSchema},
		{"disk full", errors.New("write failed: no space left on device"), ErrCodeDiskSpace},
		{"cannot open", errors.New("unable to open database file"), ErrCodeConnection},
		{"unrelated", errors.New("something else"), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapDatabaseError(t *testing.T) {
	if WrapDatabaseError("op", nil) != nil {
		t.Error("nil error should stay nil")
	}
	if WrapDatabaseErrorWithContext("op", nil, map[string]string{"a": "b"}) != nil {
		t.Error("nil error should stay nil")
	}

	err := WrapDatabaseError("list_records", sql.ErrNoRows)
	var repoErr *RepositoryError
	if !errors.As(err, &repoErr) {
		t.Fatalf("expected *RepositoryError, got %T", err)
	}
	if repoErr.Op != "list_records" || repoErr.Code != ErrCodeNotFound {
		t.Errorf("unexpected wrap result %+v", repoErr)
	}

	err = WrapDatabaseErrorWithContext("save", errors.New("database is locked"), map[string]string{"table": "daily_counts"})
	if !IsBusy(err) || !IsRetryable(err) {
		t.Error("locked database should be busy and retryable")
	}
	if !errors.As(err, &repoErr) || repoErr.Context["table"] != "daily_counts" {
		t.Error("context should be attached")
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		key   string
		value string
	}{
		{"not found", HandleNotFound("get", "snapshot", "history.db"), IsNotFound, "resource", "snapshot"},
		{"validation", HandleValidationError("connect", "path", "", "empty"), IsValidation, "field", "path"},
		{"connection", HandleConnectionError("connect", "ping failed"), IsConnection, "details", "ping failed"},
		{"transaction", HandleTransactionError("tx", "commit", "boom"), IsTransaction, "phase", "commit"},
		{"schema", HandleSchemaError("migrate", "version 9"), IsSchema, "details", "version 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("constructor produced wrong code: %v", tt.err)
			}
			var repoErr *RepositoryError
			if !errors.As(tt.err, &repoErr) {
				t.Fatal("expected *RepositoryError")
			}
			if repoErr.Context[tt.key] != tt.value {
				t.Errorf("context[%q] = %q, want %q", tt.key, repoErr.Context[tt.key], tt.value)
			}
		})
	}
}
