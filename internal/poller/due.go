// Package poller decides which tracked posts need a new measurement and
// runs the fetches under a bounded-concurrency policy.
package poller

import (
	"time"

	"reel_tracker/internal/model"
)

// SelectDue returns the IDs of targets whose poll interval has elapsed.
//
// A target with no recorded poll time is always due. A recorded time that
// does not parse also selects the target: an extra fetch is better than
// silently starving a post on a corrupt timestamp.
func SelectDue(targets []model.PollTarget, now time.Time) []int64 {
	var due []int64
	for _, t := range targets {
		if t.LastPolledAt == "" {
			due = append(due, t.ID)
			continue
		}
		last, err := time.Parse(time.RFC3339, t.LastPolledAt)
		if err != nil {
			due = append(due, t.ID)
			continue
		}
		next := last.Add(time.Duration(t.PollIntervalSec) * time.Second)
		if !now.Before(next) {
			due = append(due, t.ID)
		}
	}
	return due
}
