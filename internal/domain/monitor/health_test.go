package monitor

import (
	"testing"
	"time"
)

func TestHealthPolicy_Alerting(t *testing.T) {
	policy := HealthPolicy{Threshold: 3}
	for count, want := range map[int]bool{0: false, 1: false, 2: false, 3: true, 4: true, 10: true} {
		if got := policy.Alerting(count); got != want {
			t.Errorf("Alerting(%d) = %v, want %v", count, got, want)
		}
	}
}

func TestHealthPolicy_ZeroThresholdUsesDefault(t *testing.T) {
	var policy HealthPolicy
	if policy.Alerting(DefaultErrorThreshold - 1) {
		t.Fatal("should not alert below the default threshold")
	}
	if !policy.Alerting(DefaultErrorThreshold) {
		t.Fatal("should alert at the default threshold")
	}
}

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)
	cutoff := RetentionCutoff(now, 30)
	if want := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC); !cutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", cutoff, want)
	}
	if old := now.AddDate(0, 0, -31); !old.Before(cutoff) {
		t.Fatal("T-31 days should fall before the cutoff")
	}
	if recent := now.AddDate(0, 0, -1); recent.Before(cutoff) {
		t.Fatal("T-1 day should be retained")
	}
}
