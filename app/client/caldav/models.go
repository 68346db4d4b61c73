package caldav

import "time"

// Event is a calendar event as this assistant sees it. Start/End follow
// the half-open convention used everywhere else in the app.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	RRule       string // e.g. "FREQ=WEEKLY"
}

// Criteria narrows candidate events for update/delete. All hints are
// optional; empty criteria match everything in the window.
type Criteria struct {
	TitleHint string
	Window    *TimeWindow
	TimeOfDay string // morning, afternoon or evening
}

type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Changes carries the fields to patch on an existing event. Nil pointers
// leave the current value untouched.
type Changes struct {
	Title    *string
	Start    *time.Time
	End      *time.Time
	Location *string
	Note     *string
}
