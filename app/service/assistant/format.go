package assistant

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"planbot/app/client/caldav"
	"planbot/app/client/todoist"

	"github.com/elliotchance/pie/v2"
)

// WhatsApp rejects messages above 1600 characters; stay safely below.
const maxReplyLength = 1500

const (
	maxListedEvents = 10
	maxListedTasks  = 10
	maxListedSlots  = 8
)

func truncate(text string) string {
	if len(text) <= maxReplyLength {
		return text
	}

	return cutAtRune(text, maxReplyLength-3) + "..."
}

// cutAtRune shortens text to at most limit bytes without splitting a
// multi-byte rune, so emoji-heavy replies stay valid UTF-8.
func cutAtRune(text string, limit int) string {
	if len(text) <= limit {
		return text
	}

	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}

	return text[:limit]
}

func formatEventLine(event caldav.Event, loc *time.Location) string {
	start := event.Start.In(loc)

	when := start.Format("Mon 02/01 15:04")
	if event.AllDay {
		when = start.Format("Mon 02/01")
	}

	line := fmt.Sprintf("• %s — %s", when, event.Summary)
	if event.Location != "" {
		line += " @ " + event.Location
	}

	return line
}

func formatEvents(events []caldav.Event, loc *time.Location, periodName string) string {
	if len(events) == 0 {
		return fmt.Sprintf("🗓️ No events %s.", periodName)
	}

	shown := events
	if len(shown) > maxListedEvents {
		shown = shown[:maxListedEvents]
	}

	lines := pie.Map(shown, func(event caldav.Event) string {
		return formatEventLine(event, loc)
	})

	text := fmt.Sprintf("🗓️ Events %s:\n%s", periodName, strings.Join(lines, "\n"))
	if len(events) > maxListedEvents {
		text += fmt.Sprintf("\n... and %d more", len(events)-maxListedEvents)
	}

	return truncate(text)
}

func formatTaskLine(task todoist.Task, loc *time.Location) string {
	line := "• " + task.Content

	if task.Due != nil {
		switch {
		case task.Due.DateTime != "":
			if t, err := time.Parse(time.RFC3339, task.Due.DateTime); err == nil {
				line += fmt.Sprintf(" (due %s)", t.In(loc).Format("02/01 15:04"))
			}
		case task.Due.Date != "":
			line += fmt.Sprintf(" (due %s)", task.Due.Date)
		}
	}

	if task.Priority >= 3 {
		line += " ❗"
	}

	return line
}

func formatTasks(tasks []todoist.Task, loc *time.Location, filterName string) string {
	if len(tasks) == 0 {
		return fmt.Sprintf("🧩 No %s tasks.", filterName)
	}

	shown := tasks
	if len(shown) > maxListedTasks {
		shown = shown[:maxListedTasks]
	}

	lines := pie.Map(shown, func(task todoist.Task) string {
		return formatTaskLine(task, loc)
	})

	text := fmt.Sprintf("🧩 Your %s tasks:\n%s", filterName, strings.Join(lines, "\n"))
	if len(tasks) > maxListedTasks {
		text += fmt.Sprintf("\n... and %d more", len(tasks)-maxListedTasks)
	}

	return truncate(text)
}

func formatSlots(slots []Slot, loc *time.Location, periodName string) string {
	if len(slots) == 0 {
		return fmt.Sprintf("No free slots %s, your schedule is packed.", periodName)
	}

	shown := slots
	if len(shown) > maxListedSlots {
		shown = shown[:maxListedSlots]
	}

	lines := pie.Map(shown, func(slot Slot) string {
		return fmt.Sprintf("• %s – %s (%.1fh)",
			slot.Start.In(loc).Format("Mon 02/01 15:04"),
			slot.End.In(loc).Format("15:04"),
			slot.Duration().Hours())
	})

	return truncate(fmt.Sprintf("🕐 Free slots %s:\n%s", periodName, strings.Join(lines, "\n")))
}

func formatSummary(events []caldav.Event, tasks []todoist.Task, loc *time.Location, periodName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 Summary for %s:\n", periodName)

	if len(events) > 0 {
		fmt.Fprintf(&b, "\n🗓️ Events (%d):\n", len(events))
		shown := events
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for _, event := range shown {
			b.WriteString(formatEventLine(event, loc) + "\n")
		}
		if len(events) > 5 {
			fmt.Fprintf(&b, "... and %d more events\n", len(events)-5)
		}
	} else {
		b.WriteString("\n🗓️ No events scheduled\n")
	}

	open := pie.Filter(tasks, func(task todoist.Task) bool {
		return !task.IsCompleted
	})

	if len(tasks) > 0 {
		fmt.Fprintf(&b, "\n🧩 Tasks: %d open\n", len(open))
		shown := open
		if len(shown) > 3 {
			shown = shown[:3]
		}
		for _, task := range shown {
			b.WriteString(formatTaskLine(task, loc) + "\n")
		}
	} else {
		b.WriteString("\n🧩 No tasks found\n")
	}

	return truncate(strings.TrimRight(b.String(), "\n"))
}
