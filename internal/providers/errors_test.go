package providers

import (
	"errors"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":       ErrorQuota,
		"429 rate":                 ErrorRate,
		"unsupported media format": ErrorPermanentInput,
		"duration exceeds ceiling": ErrorPermanentInput,
		"timeout":                  ErrorTransient,
		"service unavailable":      ErrorTransient,
		"bad request":              ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(ErrorPermanentInput) {
		t.Fatal("permanent-input errors must not be retried")
	}
	if !Retryable(ErrorTransient) || !Retryable(ErrorRate) || !Retryable(ErrorQuota) {
		t.Fatal("transient classes must be retryable")
	}
}
