package inbox

import (
	"math"

	"github.com/harborops/harbordesk/internal/models"
)

// Metrics are inbox-level aggregates, always computed over the unfiltered
// thread set.
type Metrics struct {
	Total              int
	Pinned             int
	Unread             int
	Escalated          int
	Collaborators      int
	AvgResponseMinutes float64
}

// ComputeMetrics aggregates over all threads. The collaborator count is
// the union of participant user ids across threads; response times that
// are non-finite or not positive are left out of the average.
func ComputeMetrics(threads []models.Thread) Metrics {
	m := Metrics{Total: len(threads)}

	collaborators := make(map[int64]struct{})
	responseSum := 0.0
	responseCount := 0

	for i := range threads {
		t := &threads[i]
		if t.Pinned {
			m.Pinned++
		}
		if t.Unread() {
			m.Unread++
		}
		if t.Escalated() {
			m.Escalated++
		}
		for _, p := range t.Participants {
			collaborators[p.UserID] = struct{}{}
		}
		if mins := t.ResponseMinutes; mins > 0 && !math.IsInf(mins, 0) && !math.IsNaN(mins) {
			responseSum += mins
			responseCount++
		}
	}

	m.Collaborators = len(collaborators)
	if responseCount > 0 {
		m.AvgResponseMinutes = responseSum / float64(responseCount)
	}
	return m
}
