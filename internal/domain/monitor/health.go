package monitor

import "time"

// DefaultErrorThreshold is the number of consecutive parse failures after
// which a feed starts alerting.
const DefaultErrorThreshold = 3

// HealthPolicy decides when a failing feed raises an alert.
type HealthPolicy struct {
	Threshold int
}

// Alerting reports whether a feed with the given consecutive failure count
// should alert. It holds on every pass at or above the threshold, not only
// on the pass that crosses it.
func (p HealthPolicy) Alerting(failureCount int) bool {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultErrorThreshold
	}
	return failureCount >= threshold
}

// RetentionCutoff returns the instant before which articles are pruned.
func RetentionCutoff(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}
