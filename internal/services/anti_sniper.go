package services

import (
	"time"
)

// SnipeCheck decides whether a bid arriving at the given time lands
// inside the anti-sniper window of the auction's deadline, and if so
// computes the extended deadline. Deadlines only ever move forward: the
// returned deadline is never earlier than the current one, and a
// non-sniped bid leaves it untouched. All comparisons are on UTC
// instants.
func SnipeCheck(arrival, dateDue time.Time, windowMinutes int) (bool, time.Time) {
	if windowMinutes <= 0 {
		return false, dateDue
	}

	threshold := arrival.Add(time.Duration(windowMinutes) * time.Minute)
	if threshold.Before(dateDue) {
		return false, dateDue
	}

	if threshold.After(dateDue) {
		return true, threshold
	}
	return true, dateDue
}
