// Package timeparse turns natural date-time phrases ("next week",
// "tomorrow at 2pm", "January 15th") into absolute points or half-open
// ranges in a target time zone. Resolution is deterministic for a given
// reference time; unknown phrases fail with ErrUnresolvedPhrase so callers
// can ask for clarification instead of guessing, and explicit dates or
// clock times that cannot exist fail with fault.ValidationError.
package timeparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"planbot/app/util/fault"
)

var ErrUnresolvedPhrase = errors.New("unresolved date phrase")

type Kind int

const (
	KindPoint Kind = iota
	KindRange
)

// Range is a half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

type Result struct {
	Kind  Kind
	Point time.Time
	Range Range
}

type Resolver struct {
	Location  *time.Location
	WeekStart time.Weekday
}

func NewResolver(loc *time.Location, weekStart time.Weekday) *Resolver {
	return &Resolver{
		Location:  loc,
		WeekStart: weekStart,
	}
}

var (
	clockRe    = regexp.MustCompile(`(?:\bat\s+)?\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b|(?:\bat\s+)?\b(\d{1,2}):(\d{2})\b`)
	inDaysRe   = regexp.MustCompile(`\bin\s+(\d+)\s+days?\b`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	monthDayRe = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	weekdayRe  = regexp.MustCompile(`\b(this|next)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

// Resolve parses phrase relative to now. A phrase naming only a day or week
// yields a range; a phrase that also carries a clock time yields a point at
// the start day of that range.
func (r *Resolver) Resolve(phrase string, now time.Time) (Result, error) {
	text := strings.ToLower(strings.TrimSpace(phrase))
	if text == "" {
		return Result{}, fmt.Errorf("%w: empty phrase", ErrUnresolvedPhrase)
	}

	now = now.In(r.Location)

	hour, minute, hasClock, err := r.extractClock(text)
	if err != nil {
		return Result{}, err
	}

	dayRange, ok, err := r.resolveDate(text, now)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		if !hasClock {
			return Result{}, fmt.Errorf("%w: %q", ErrUnresolvedPhrase, phrase)
		}

		// Clock time alone means today, or tomorrow if already past.
		dayRange = r.dayRange(now, 0)
		point := r.at(dayRange.Start, hour, minute)
		if !point.After(now) {
			point = point.AddDate(0, 0, 1)
		}

		return Result{Kind: KindPoint, Point: point}, nil
	}

	if hasClock {
		return Result{
			Kind:  KindPoint,
			Point: r.at(dayRange.Start, hour, minute),
		}, nil
	}

	return Result{Kind: KindRange, Range: dayRange}, nil
}

// ResolveDay is Resolve restricted to phrases that denote a single day,
// used for due dates. Week-long phrases collapse to their first day.
func (r *Resolver) ResolveDay(phrase string, now time.Time) (time.Time, error) {
	result, err := r.Resolve(phrase, now)
	if err != nil {
		return time.Time{}, err
	}

	if result.Kind == KindPoint {
		return result.Point, nil
	}

	return result.Range.Start, nil
}

func (r *Resolver) extractClock(text string) (hour, minute int, ok bool, err error) {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false, nil
	}

	if m[1] != "" {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if m[3] == "pm" && hour < 12 {
			hour += 12
		}
		if m[3] == "am" && hour == 12 {
			hour = 0
		}
	} else {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
	}

	if hour > 23 || minute > 59 {
		return 0, 0, false, &fault.ValidationError{
			Field:  "time",
			Reason: fmt.Sprintf("%q is not a valid time of day", strings.TrimSpace(m[0])),
		}
	}

	return hour, minute, true, nil
}

func (r *Resolver) resolveDate(text string, now time.Time) (Range, bool, error) {
	switch {
	case strings.Contains(text, "today"):
		return r.dayRange(now, 0), true, nil
	case strings.Contains(text, "tomorrow"):
		return r.dayRange(now, 1), true, nil
	case strings.Contains(text, "yesterday"):
		return r.dayRange(now, -1), true, nil
	}

	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		target := weekdays[m[2]]
		ahead := (int(target) - int(now.Weekday()) + 7) % 7
		if m[1] == "next" && ahead == 0 {
			ahead = 7
		}

		return r.dayRange(now, ahead), true, nil
	}

	if strings.Contains(text, "next week") {
		start := r.startOfWeek(now).AddDate(0, 0, 7)
		return Range{Start: start, End: start.AddDate(0, 0, 7)}, true, nil
	}

	if strings.Contains(text, "this week") {
		start := r.startOfWeek(now)
		return Range{Start: start, End: start.AddDate(0, 0, 7)}, true, nil
	}

	if m := inDaysRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return r.dayRange(now, n), true, nil
	}

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])

		start, err := r.calendarDate(m[0], year, month, day)
		if err != nil {
			return Range{}, false, err
		}

		return Range{Start: start, End: start.AddDate(0, 0, 1)}, true, nil
	}

	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[2])

		start, err := r.calendarDate(m[0], now.Year(), int(months[m[1]]), day)
		if err != nil {
			return Range{}, false, err
		}

		// Dates without a year resolve into the future.
		if start.AddDate(0, 0, 1).Before(now) {
			start = start.AddDate(1, 0, 0)
		}

		return Range{Start: start, End: start.AddDate(0, 0, 1)}, true, nil
	}

	if m := slashRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])

		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}

		start, err := r.calendarDate(m[0], year, month, day)
		if err != nil {
			return Range{}, false, err
		}

		if m[3] == "" && start.AddDate(0, 0, 1).Before(now) {
			start = start.AddDate(1, 0, 0)
		}

		return Range{Start: start, End: start.AddDate(0, 0, 1)}, true, nil
	}

	return Range{}, false, nil
}

// calendarDate builds midnight of the given calendar day and rejects days
// that do not exist; time.Date would otherwise normalize February 31 into
// early March.
func (r *Resolver) calendarDate(raw string, year, month, day int) (time.Time, error) {
	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, r.Location)

	if start.Year() != year || start.Month() != time.Month(month) || start.Day() != day {
		return time.Time{}, &fault.ValidationError{
			Field:  "date",
			Reason: fmt.Sprintf("%q is not a real calendar date", strings.TrimSpace(raw)),
		}
	}

	return start, nil
}

// dayRange returns [midnight, next midnight) of now shifted by days.
// time.Date picks the earlier offset on DST-ambiguous local times, which
// keeps resolution deterministic.
func (r *Resolver) dayRange(now time.Time, days int) Range {
	day := now.AddDate(0, 0, days)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.Location)

	return Range{Start: start, End: start.AddDate(0, 0, 1)}
}

func (r *Resolver) startOfWeek(now time.Time) time.Time {
	back := (int(now.Weekday()) - int(r.WeekStart) + 7) % 7
	day := now.AddDate(0, 0, -back)

	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.Location)
}

func (r *Resolver) at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, r.Location)
}
