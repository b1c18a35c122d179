package batch

import (
	"errors"
	"testing"
	"time"
)

func TestRetryPolicySucceedsOnThirdAttempt(t *testing.T) {
	var slept []time.Duration
	policy := RetryPolicy{
		Attempts: 3,
		Delay:    time.Second,
		Sleep:    func(d time.Duration) { slept = append(slept, d) },
	}

	calls := 0
	err := policy.Do(func() error {
		calls++
		if calls < 3 {
			return errors.New("file locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != time.Second {
		t.Errorf("slept = %v, want two 1s delays", slept)
	}
}

func TestRetryPolicyReturnsLastError(t *testing.T) {
	policy := RetryPolicy{Attempts: 2, Sleep: func(time.Duration) {}}

	attempt := 0
	err := policy.Do(func() error {
		attempt++
		return errors.New("locked " + string(rune('0'+attempt)))
	})
	if err == nil || err.Error() != "locked 2" {
		t.Errorf("err = %v, want the second attempt's error", err)
	}
}

func TestRetryPolicyPermanentErrorStopsRetries(t *testing.T) {
	var slept []time.Duration
	policy := RetryPolicy{
		Attempts: 3,
		Delay:    time.Second,
		Sleep:    func(d time.Duration) { slept = append(slept, d) },
	}

	sentinel := errors.New("gone for good")
	calls := 0
	err := policy.Do(func() error {
		calls++
		return Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want the wrapped sentinel", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(slept) != 0 {
		t.Errorf("permanent failure should not sleep, slept %v", slept)
	}
}

func TestRetryPolicyZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	if err := (RetryPolicy{}).Do(func() error { calls++; return nil }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
