package endpoint

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	if !isTransient(io.ErrUnexpectedEOF) {
		t.Error("io.ErrUnexpectedEOF should be transient")
	}
	if !isTransient(os.ErrDeadlineExceeded) {
		t.Error("os.ErrDeadlineExceeded should be transient")
	}
	if isTransient(os.ErrPermission) {
		t.Error("os.ErrPermission should not be transient")
	}
}

func TestWithRetry_succeedsWithoutRetryOnNilError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("calls = %d, err = %v", calls, err)
	}
}

func TestWithRetry_givesUpImmediatelyOnNonTransientError(t *testing.T) {
	calls := 0
	sentinel := errors.New("permission denied")
	err := withRetry(context.Background(), func() error {
		calls++
		return sentinel
	})
	if err != sentinel || calls != 1 {
		t.Errorf("calls = %d, err = %v, want 1 call and sentinel", calls, err)
	}
}

func TestWithRetry_retriesTransientErrorUpToLimit(t *testing.T) {
	old := retryBackoff
	retryBackoff = []time.Duration{time.Millisecond, time.Millisecond}
	defer func() { retryBackoff = old }()

	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++
		return io.ErrUnexpectedEOF
	})
	if err != io.ErrUnexpectedEOF {
		t.Errorf("err = %v, want io.ErrUnexpectedEOF", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls)
	}
}

func TestWithRetry_stopsOnContextCancellation(t *testing.T) {
	old := retryBackoff
	retryBackoff = []time.Duration{time.Hour}
	defer func() { retryBackoff = old }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withRetry(ctx, func() error {
		calls++
		return io.ErrUnexpectedEOF
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
