package errors

import (
	"errors"
	"testing"

	"github.com/mattn/go-sqlite3"
)

func TestClassifySQLiteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ErrCodeUnknown},
		{"non-sqlite", errors.New("other"), ErrCodeUnknown},
		{"unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, ErrCodeDuplicate},
		{"primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, ErrCodeDuplicate},
		{"foreign key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, ErrCodeConstraint},
		{"not null", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, ErrCodeConstraint},
		{"check", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck}, ErrCodeConstraint},
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, ErrCodeBusy},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, ErrCodeBusy},
		{"corrupt", sqlite3.Error{Code: sqlite3.ErrCorrupt}, ErrCodeCorruption},
		{"not a db", sqlite3.Error{Code: sqlite3.ErrNotADB}, ErrCodeCorruption},
		{"readonly", sqlite3.Error{Code: sqlite3.ErrReadonly}, ErrCodePermission},
		{"cant open", sqlite3.Error{Code: sqlite3.ErrCantOpen}, ErrCodeConnection},
		{"full", sqlite3.Error{Code: sqlite3.ErrFull}, ErrCodeDiskSpace},
		{"misuse", sqlite3.Error{Code: sqlite3.ErrMisuse}, ErrCodeInternal},
		{"schema", sqlite3.Error{Code: sqlite3.ErrSchema}, ErrCodeSchema},
		{"unmapped", sqlite3.Error{Code: sqlite3.ErrNomem}, ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifySQLiteError(tt.err); got != tt.want {
				t.Errorf("classifySQLiteError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyError_PrefersSQLiteCodes(t *testing.T) {
	// a locked sqlite error is busy even though its message would also match the text table
	err := sqlite3.Error{Code: sqlite3.ErrLocked}
	if got := ClassifyError(err); got != ErrCodeBusy {
		t.Errorf("ClassifyError() = %v, want BUSY", got)
	}
	if got := ClassifyError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}); got != ErrCodeDuplicate {
		t.Errorf("ClassifyError() = %v, want DUPLICATE", got)
	}
}
