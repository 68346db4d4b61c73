// Package caldav is the calendar connector. It speaks the CalDAV protocol,
// so any standards-compliant server works; the default endpoint is iCloud.
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"planbot/app/config"
	"planbot/app/util/fault"
	"planbot/app/util/ratelimit"
	"planbot/app/util/retry"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	"github.com/samber/do"
)

const connectorKey = "caldav"

type Client struct {
	cfg     *config.Config
	limiter *ratelimit.Limiter
	retrier retry.Policy

	mu           sync.Mutex
	client       *caldav.Client
	calendarPath string
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		cfg:          cfg,
		limiter:      do.MustInvoke[*ratelimit.Limiter](di),
		calendarPath: cfg.CalDAV.CalendarPath,
		retrier: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			Retryable:   fault.Transient,
		},
	}, nil
}

type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

func (c *Client) connect(ctx context.Context) (*caldav.Client, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.calendarPath != "" {
		return c.client, c.calendarPath, nil
	}

	if c.client == nil {
		httpClient := &http.Client{
			Transport: &basicAuthTransport{
				username: c.cfg.CalDAV.Username,
				password: c.cfg.CalDAV.Password,
			},
			Timeout: 30 * time.Second,
		}

		client, err := caldav.NewClient(httpClient, c.cfg.CalDAV.URL)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create CalDAV client: %w", err)
		}

		c.client = client
	}

	if c.calendarPath == "" {
		path, err := c.discoverCalendar(ctx)
		if err != nil {
			return nil, "", err
		}

		c.calendarPath = path
	}

	return c.client, c.calendarPath, nil
}

// discoverCalendar picks the first calendar of the principal's home set.
func (c *Client) discoverCalendar(ctx context.Context) (string, error) {
	principal, err := c.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", &fault.AuthError{Provider: connectorKey, Err: err}
	}

	homeSet, err := c.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	if len(calendars) == 0 {
		return "", fmt.Errorf("no calendars found for %s", c.cfg.CalDAV.Username)
	}

	return calendars[0].Path, nil
}

// CreateEvent stores event and returns its UID.
func (c *Client) CreateEvent(ctx context.Context, event *Event) (string, error) {
	if err := c.limiter.TryAcquire(connectorKey, 0); err != nil {
		return "", err
	}

	if event.UID == "" {
		event.UID = uuid.NewString()
	}

	cal := eventToICS(event)

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		client, calendarPath, err := c.connect(ctx)
		if err != nil {
			return err
		}

		_, err = client.PutCalendarObject(ctx, objectPath(calendarPath, event.UID), cal)
		if err != nil {
			return fmt.Errorf("failed to put calendar object: %w", err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return event.UID, nil
}

// ListEvents returns events overlapping [from, to), sorted by the server.
func (c *Client) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	if err := c.limiter.TryAcquire(connectorKey, 0); err != nil {
		return nil, err
	}

	return retry.DoValue(ctx, c.retrier, func(ctx context.Context) ([]Event, error) {
		client, calendarPath, err := c.connect(ctx)
		if err != nil {
			return nil, err
		}

		query := &caldav.CalendarQuery{
			CompFilter: caldav.CompFilter{
				Name: "VCALENDAR",
				Comps: []caldav.CompFilter{
					{
						Name:  "VEVENT",
						Start: from,
						End:   to,
					},
				},
			},
		}

		objects, err := client.QueryCalendar(ctx, calendarPath, query)
		if err != nil {
			return nil, fmt.Errorf("failed to query calendar: %w", err)
		}

		var events []Event
		for i := range objects {
			event, err := parseCalendarObject(&objects[i])
			if err != nil {
				continue
			}
			events = append(events, event)
		}

		return events, nil
	})
}

// FindEvents lists the criteria window (next 7 days when unset) and filters
// by title substring and time of day.
func (c *Client) FindEvents(ctx context.Context, criteria Criteria, now time.Time) ([]Event, error) {
	window := criteria.Window
	if window == nil {
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		window = &TimeWindow{Start: start, End: start.AddDate(0, 0, 7)}
	}

	events, err := c.ListEvents(ctx, window.Start, window.End)
	if err != nil {
		return nil, err
	}

	titleHint := strings.ToLower(criteria.TitleHint)

	var matched []Event
	for _, event := range events {
		if titleHint != "" && !strings.Contains(strings.ToLower(event.Summary), titleHint) {
			continue
		}
		if !matchesTimeOfDay(event.Start, criteria.TimeOfDay) {
			continue
		}
		matched = append(matched, event)
	}

	return matched, nil
}

// UpdateEvent applies changes to the stored event and re-puts it, which is
// how CalDAV updates work.
func (c *Client) UpdateEvent(ctx context.Context, event Event, changes Changes) (Event, error) {
	if changes.Title != nil {
		event.Summary = *changes.Title
	}
	if changes.Location != nil {
		event.Location = *changes.Location
	}
	if changes.Note != nil {
		event.Description = *changes.Note
	}
	if changes.Start != nil {
		duration := event.End.Sub(event.Start)
		event.Start = *changes.Start
		event.End = event.Start.Add(duration)
	}
	if changes.End != nil {
		event.End = *changes.End
	}

	if !event.End.After(event.Start) {
		return Event{}, &fault.ValidationError{Field: "end", Reason: "must be after start"}
	}

	if _, err := c.CreateEvent(ctx, &event); err != nil {
		return Event{}, err
	}

	return event, nil
}

func (c *Client) DeleteEvent(ctx context.Context, uid string) error {
	if err := c.limiter.TryAcquire(connectorKey, 0); err != nil {
		return err
	}

	return c.retrier.Do(ctx, func(ctx context.Context) error {
		client, calendarPath, err := c.connect(ctx)
		if err != nil {
			return err
		}

		if err := client.RemoveAll(ctx, objectPath(calendarPath, uid)); err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}

		return nil
	})
}

// Ping verifies the server answers principal discovery.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.connect(ctx)
	return err
}

func objectPath(calendarPath, uid string) string {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}

	return calendarPath + uid + ".ics"
}

func matchesTimeOfDay(start time.Time, timeOfDay string) bool {
	switch timeOfDay {
	case "morning":
		return start.Hour() >= 6 && start.Hour() <= 11
	case "afternoon":
		return start.Hour() >= 12 && start.Hour() <= 17
	case "evening":
		return start.Hour() >= 18 && start.Hour() <= 22
	default:
		return true
	}
}

func parseCalendarObject(obj *caldav.CalendarObject) (Event, error) {
	var event Event

	if obj.Data == nil {
		return event, fmt.Errorf("no data in calendar object")
	}

	for _, comp := range obj.Data.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		if prop := comp.Props.Get(ical.PropUID); prop != nil {
			event.UID = prop.Value
		}
		if prop := comp.Props.Get(ical.PropSummary); prop != nil {
			event.Summary = prop.Value
		}
		if prop := comp.Props.Get(ical.PropDescription); prop != nil {
			event.Description = prop.Value
		}
		if prop := comp.Props.Get(ical.PropLocation); prop != nil {
			event.Location = prop.Value
		}
		if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
			event.RRule = prop.Value
		}

		if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
			if t, err := prop.DateTime(time.UTC); err == nil {
				event.Start = t
			}
			if valueType := prop.Params.Get(ical.ParamValue); valueType == string(ical.ValueDate) {
				event.AllDay = true
			}
		}

		if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
			if t, err := prop.DateTime(time.UTC); err == nil {
				event.End = t
			}
		}

		break
	}

	if event.UID == "" {
		return event, fmt.Errorf("calendar object has no UID")
	}

	return event, nil
}

func eventToICS(event *Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//planbot//CalDAV//EN")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.UID)
	vevent.Props.SetText(ical.PropSummary, event.Summary)

	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		vevent.Props.SetText(ical.PropLocation, event.Location)
	}
	if event.RRule != "" {
		vevent.Props.SetText(ical.PropRecurrenceRule, event.RRule)
	}

	if event.AllDay {
		vevent.Props.SetDate(ical.PropDateTimeStart, event.Start)
		if !event.End.IsZero() {
			vevent.Props.SetDate(ical.PropDateTimeEnd, event.End)
		}
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
		if !event.End.IsZero() {
			vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())
		}
	}

	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	cal.Children = append(cal.Children, vevent.Component)

	return cal
}
