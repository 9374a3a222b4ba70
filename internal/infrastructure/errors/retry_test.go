package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"watchlens/internal/testutils"
)

func fastRetryConfig() *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxAttempts != 3 || cfg.InitialDelay != 100*time.Millisecond || cfg.MaxDelay != 5*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	for _, code := range []ErrorCode{ErrCodeConnection, ErrCodeTimeout, ErrCodeTransaction, ErrCodeBusy} {
		found := false
		for _, c := range cfg.RetryableErrors {
			if c == code {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %v to be retryable by default", code)
		}
	}
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		code      ErrorCode
		wantCalls int
		wantErr   bool
	}{
		{"success first try", 0, ErrCodeBusy, 1, false},
		{"success after retries", 2, ErrCodeBusy, 3, false},
		{"non-retryable", 5, ErrCodeNotFound, 1, true},
		{"max attempts exceeded", 5, ErrCodeConnection, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), fastRetryConfig(), func() error {
				calls++
				if calls <= tt.failures {
					return NewRepositoryError("op", errors.New("failed"), tt.code)
				}
				return nil
			})

			if (err != nil) != tt.wantErr {
				t.Fatalf("WithRetry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if err != nil && !hasCode(err, tt.code) {
				t.Errorf("returned error should keep code %v: %v", tt.code, err)
			}
		})
	}
}

func TestWithRetry_PlainErrorNotRetried(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return errors.New("database is locked")
	})
	if err == nil || calls != 1 {
		t.Errorf("plain errors are not retried: calls=%d err=%v", calls, err)
	}
}

func TestWithRetry_NilConfig(t *testing.T) {
	calls := 0
	if err := WithRetry(context.Background(), nil, func() error { calls++; return nil }); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}
}

func TestWithRetryContext_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetryConfig()
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	calls := 0
	err := WithRetryContext(ctx, cfg, func() error {
		calls++
		cancel()
		return NewRepositoryError("op", errors.New("busy"), ErrCodeBusy)
	}, "replace_history")

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !strings.Contains(err.Error(), "replace_history") {
		t.Errorf("error should carry the operation name: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetryContext_FailureMessage(t *testing.T) {
	err := WithRetryContext(context.Background(), fastRetryConfig(), func() error {
		return NewRepositoryError("op", errors.New("busy"), ErrCodeBusy)
	}, "save_daily_counts")

	if err == nil || !strings.Contains(err.Error(), "operation 'save_daily_counts' failed after 3 attempts") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestShouldRetry(t *testing.T) {
	cfg := DefaultRetryConfig()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"busy", NewRepositoryError("op", nil, ErrCodeBusy), true},
		{"wrapped connection", fmt.Errorf("x: %w", NewRepositoryError("op", nil, ErrCodeConnection)), true},
		{"validation", NewRepositoryError("op", nil, ErrCodeValidation), false},
		{"retryable flag cleared", &RepositoryError{Code: ErrCodeBusy}, false},
		{"plain", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.err, cfg); got != tt.want {
				t.Errorf("shouldRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateDelay(t *testing.T) {
	cfg := &RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second}
	for attempt, w := range want {
		if got := calculateDelay(attempt, cfg); got != w {
			t.Errorf("attempt %d: delay = %v, want %v", attempt, got, w)
		}
	}

	cfg.Jitter = true
	for i := 0; i < 50; i++ {
		got := calculateDelay(1, cfg)
		if got < 200*time.Millisecond || got >= 250*time.Millisecond {
			t.Fatalf("jittered delay %v out of range", got)
		}
	}
}

type capturingRetryLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (c *capturingRetryLogger) Printf(format string, v ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, fmt.Sprintf(format, v...))
}

func TestSetRetryLogger(t *testing.T) {
	capture := &capturingRetryLogger{}
	SetRetryLogger(capture)
	t.Cleanup(func() { SetRetryLogger(nil) })

	calls := 0
	_ = WithRetryContext(context.Background(), fastRetryConfig(), func() error {
		calls++
		if calls < 2 {
			return NewRepositoryError("op", nil, ErrCodeBusy)
		}
		return nil
	}, "list_records")

	if len(capture.msgs) != 2 {
		t.Fatalf("expected retry and success messages, got %v", capture.msgs)
	}
	if !strings.Contains(capture.msgs[1], "succeeded after 2 attempts") {
		t.Errorf("unexpected message %q", capture.msgs[1])
	}
}

func TestLoggerBridge(t *testing.T) {
	rec := testutils.NewRecordingLogger()
	UseLogger(rec)
	t.Cleanup(func() { SetRetryLogger(nil) })

	logRetryMessage("attempt %d", 2)

	calls := rec.Calls("warn")
	if len(calls) != 1 || calls[0].Msg != "attempt 2" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	fields := testutils.FieldsToMap(t, calls[0].Fields)
	if fields["component"] != "retry" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestLogRetryMessage_NilLogger(t *testing.T) {
	SetRetryLogger(nil)
	logRetryMessage("nothing %s", "happens")
}
