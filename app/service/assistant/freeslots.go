package assistant

import (
	"time"

	"planbot/app/client/caldav"
	"planbot/app/util/timeparse"

	"github.com/elliotchance/pie/v2"
)

type Slot struct {
	Start time.Time
	End   time.Time
}

func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// FindFreeSlots returns the gaps of at least minDuration between events
// inside window. Events outside the window clamp to its edges; overlapping
// events collapse.
func FindFreeSlots(events []caldav.Event, window timeparse.Range, minDuration time.Duration) []Slot {
	sorted := pie.SortUsing(events, func(a, b caldav.Event) bool {
		return a.Start.Before(b.Start)
	})

	var slots []Slot
	cursor := window.Start

	for _, event := range sorted {
		if !event.End.After(window.Start) || !event.Start.Before(window.End) {
			continue
		}

		start := event.Start
		if start.After(window.End) {
			start = window.End
		}

		if cursor.Before(start) && start.Sub(cursor) >= minDuration {
			slots = append(slots, Slot{Start: cursor, End: start})
		}

		if event.End.After(cursor) {
			cursor = event.End
		}
	}

	if cursor.Before(window.End) && window.End.Sub(cursor) >= minDuration {
		slots = append(slots, Slot{Start: cursor, End: window.End})
	}

	return slots
}
