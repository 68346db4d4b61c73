package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planbot/app/client/caldav"
	"planbot/app/util/timeparse"
)

func day(hour, minute int) time.Time {
	return time.Date(2024, 1, 15, hour, minute, 0, 0, time.UTC)
}

func event(start, end time.Time) caldav.Event {
	return caldav.Event{Summary: "busy", Start: start, End: end}
}

func TestFindFreeSlotsEmptyCalendar(t *testing.T) {
	window := timeparse.Range{Start: day(9, 0), End: day(18, 0)}

	slots := FindFreeSlots(nil, window, time.Hour)

	require.Len(t, slots, 1)
	assert.Equal(t, window.Start, slots[0].Start)
	assert.Equal(t, window.End, slots[0].End)
}

func TestFindFreeSlotsBetweenEvents(t *testing.T) {
	window := timeparse.Range{Start: day(9, 0), End: day(18, 0)}
	events := []caldav.Event{
		event(day(10, 0), day(11, 0)),
		event(day(14, 0), day(15, 30)),
	}

	slots := FindFreeSlots(events, window, time.Hour)

	require.Len(t, slots, 3)
	assert.Equal(t, Slot{Start: day(9, 0), End: day(10, 0)}, slots[0])
	assert.Equal(t, Slot{Start: day(11, 0), End: day(14, 0)}, slots[1])
	assert.Equal(t, Slot{Start: day(15, 30), End: day(18, 0)}, slots[2])
}

func TestFindFreeSlotsMinDurationFiltersShortGaps(t *testing.T) {
	window := timeparse.Range{Start: day(9, 0), End: day(12, 0)}
	events := []caldav.Event{
		event(day(9, 30), day(10, 0)),
		event(day(10, 45), day(12, 0)),
	}

	// 30m and 45m gaps, both below the hour minimum.
	slots := FindFreeSlots(events, window, time.Hour)
	assert.Empty(t, slots)

	slots = FindFreeSlots(events, window, 40*time.Minute)
	require.Len(t, slots, 1)
	assert.Equal(t, Slot{Start: day(10, 0), End: day(10, 45)}, slots[0])
}

func TestFindFreeSlotsOverlappingEventsCollapse(t *testing.T) {
	window := timeparse.Range{Start: day(9, 0), End: day(18, 0)}
	events := []caldav.Event{
		event(day(10, 0), day(12, 0)),
		event(day(11, 0), day(13, 0)),
		event(day(12, 30), day(14, 0)),
	}

	slots := FindFreeSlots(events, window, time.Hour)

	require.Len(t, slots, 2)
	assert.Equal(t, Slot{Start: day(9, 0), End: day(10, 0)}, slots[0])
	assert.Equal(t, Slot{Start: day(14, 0), End: day(18, 0)}, slots[1])
}

func TestFindFreeSlotsIgnoresEventsOutsideWindow(t *testing.T) {
	window := timeparse.Range{Start: day(9, 0), End: day(18, 0)}
	events := []caldav.Event{
		event(day(6, 0), day(8, 0)),
		event(day(19, 0), day(20, 0)),
	}

	slots := FindFreeSlots(events, window, time.Hour)

	require.Len(t, slots, 1)
	assert.Equal(t, Slot{Start: day(9, 0), End: day(18, 0)}, slots[0])
}

func TestFindFreeSlotsUnsortedInput(t *testing.T) {
	window := timeparse.Range{Start: day(9, 0), End: day(18, 0)}
	events := []caldav.Event{
		event(day(14, 0), day(15, 0)),
		event(day(10, 0), day(11, 0)),
	}

	slots := FindFreeSlots(events, window, time.Hour)

	require.Len(t, slots, 3)
	assert.Equal(t, day(9, 0), slots[0].Start)
}

func TestSlotDuration(t *testing.T) {
	slot := Slot{Start: day(9, 0), End: day(10, 30)}
	assert.Equal(t, 90*time.Minute, slot.Duration())
}
