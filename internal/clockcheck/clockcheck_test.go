package clockcheck

import (
	"testing"
	"time"
)

func TestResult_String(t *testing.T) {
	r := Result{Offset: 10 * time.Millisecond, Healthy: true}
	if got := r.String(); got == "" {
		t.Fatal("expected non-empty string")
	}
}

func TestAbsDuration(t *testing.T) {
	if absDuration(-5*time.Second) != 5*time.Second {
		t.Error("absDuration did not normalize a negative duration")
	}
	if absDuration(5*time.Second) != 5*time.Second {
		t.Error("absDuration changed a positive duration")
	}
}
