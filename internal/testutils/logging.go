package testutils

import (
	"sync"

	"watchlens/internal/infrastructure/logging"
)

// TestingT is a minimal interface that matches the methods we need from testing.T
type TestingT interface {
	Errorf(format string, args ...any)
}

// FieldsToMap converts alternating key/value log fields to a map.
// Malformed entries are reported through t and skipped.
func FieldsToMap(t TestingT, fields []any) map[string]any {
	fieldsMap := make(map[string]any)

	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			t.Errorf("Malformed fields slice: missing value for key at index %d", i)
			continue
		}

		key, ok := fields[i].(string)
		if !ok {
			t.Errorf("Malformed fields slice: key at index %d is not a string, got %T", i, fields[i])
			continue
		}

		fieldsMap[key] = fields[i+1]
	}

	return fieldsMap
}

// LogCall is one captured log invocation
type LogCall struct {
	Level  string
	Msg    string
	Fields []any
}

// RecordingLogger captures every call for later assertions. Safe for concurrent use.
// Children created with With share the parent's call list and prepend their fields.
type RecordingLogger struct {
	mu     *sync.Mutex
	calls  *[]LogCall
	prefix []any
}

// NewRecordingLogger creates an empty recording logger
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{mu: &sync.Mutex{}, calls: &[]LogCall{}}
}

func (r *RecordingLogger) record(level, msg string, fields []any) {
	all := make([]any, 0, len(r.prefix)+len(fields))
	all = append(all, r.prefix...)
	all = append(all, fields...)

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.calls = append(*r.calls, LogCall{Level: level, Msg: msg, Fields: all})
}

func (r *RecordingLogger) Debug(msg string, fields ...any) { r.record("debug", msg, fields) }
func (r *RecordingLogger) Info(msg string, fields ...any)  { r.record("info", msg, fields) }
func (r *RecordingLogger) Warn(msg string, fields ...any)  { r.record("warn", msg, fields) }
func (r *RecordingLogger) Error(msg string, fields ...any) { r.record("error", msg, fields) }

// With returns a child logger sharing the same call list
func (r *RecordingLogger) With(fields ...any) logging.Logger {
	prefix := make([]any, 0, len(r.prefix)+len(fields))
	prefix = append(prefix, r.prefix...)
	prefix = append(prefix, fields...)
	return &RecordingLogger{mu: r.mu, calls: r.calls, prefix: prefix}
}

// Calls returns the captured calls for a level, or all calls when level is empty
func (r *RecordingLogger) Calls(level string) []LogCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []LogCall
	for _, c := range *r.calls {
		if level == "" || c.Level == level {
			out = append(out, c)
		}
	}
	return out
}

// HasMessage reports whether any call at the level carried msg
func (r *RecordingLogger) HasMessage(level, msg string) bool {
	for _, c := range r.Calls(level) {
		if c.Msg == msg {
			return true
		}
	}
	return false
}
