package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"planbot/app/client/caldav"
	"planbot/app/client/todoist"
	"planbot/app/util/timeparse"
)

const (
	defaultEventDuration = time.Hour
	minFreeSlotDuration  = time.Hour
)

func (s *Service) createEvent(sender string, req ParsedRequest) (string, error) {
	if req.Fields.Title == "" {
		return "What should I call the event?", nil
	}
	if req.Fields.When == nil {
		return fmt.Sprintf("When should %q happen?", req.Fields.Title), nil
	}

	event := &caldav.Event{
		Summary:     req.Fields.Title,
		Location:    req.Fields.Location,
		Description: req.Fields.Note,
		RRule:       recurrenceRule(req.Text),
	}

	if req.Fields.When.Kind == timeparse.KindPoint {
		event.Start = req.Fields.When.Point
		event.End = event.Start.Add(defaultEventDuration)
	} else {
		event.Start = req.Fields.When.Range.Start
		event.End = req.Fields.When.Range.End
		event.AllDay = true
	}

	label := fmt.Sprintf("%s on %s", event.Summary,
		event.Start.In(s.loc).Format("Mon 02/01 15:04"))
	if event.AllDay {
		label = fmt.Sprintf("%s on %s", event.Summary,
			event.Start.In(s.loc).Format("Mon 02/01"))
	}
	if event.RRule != "" {
		label += " (recurring)"
	}

	s.pending.Add(sender, PendingAction{
		Kind:  PendingCreateEvent,
		Event: event,
		Label: label,
	})

	return fmt.Sprintf("Create %s? (yes/no)", label), nil
}

func (s *Service) listEvents(ctx context.Context, req ParsedRequest) (string, error) {
	window, periodName := s.window(req)

	events, err := s.calendar.ListEvents(ctx, window.Start, window.End)
	if err != nil {
		return "", err
	}

	return formatEvents(events, s.loc, periodName), nil
}

func (s *Service) updateEvent(ctx context.Context, req ParsedRequest) (string, error) {
	criteria := caldav.Criteria{TitleHint: req.Fields.Title}

	events, err := s.calendar.FindEvents(ctx, criteria, s.now())
	if err != nil {
		return "", err
	}

	switch len(events) {
	case 0:
		return "I couldn't find a matching event in the next week.", nil
	case 1:
	default:
		return "I found several matching events:\n" +
			formatEvents(events, s.loc, "matching") +
			"\nPlease be more specific.", nil
	}

	changes := caldav.Changes{}
	if req.Fields.When != nil && req.Fields.When.Kind == timeparse.KindPoint {
		start := req.Fields.When.Point
		changes.Start = &start
	}
	if req.Fields.Location != "" {
		location := req.Fields.Location
		changes.Location = &location
	}
	if req.Fields.Note != "" {
		note := req.Fields.Note
		changes.Note = &note
	}

	if changes.Start == nil && changes.Location == nil && changes.Note == nil {
		return "What should I change about it? A new time, location or note works.", nil
	}

	updated, err := s.calendar.UpdateEvent(ctx, events[0], changes)
	if err != nil {
		return "", err
	}

	return "✏️ Updated: " + formatEventLine(updated, s.loc), nil
}

func (s *Service) deleteEvent(ctx context.Context, sender string, req ParsedRequest) (string, error) {
	if req.Fields.Title == "" {
		return "Which event should I delete?", nil
	}

	events, err := s.calendar.FindEvents(ctx, caldav.Criteria{TitleHint: req.Fields.Title}, s.now())
	if err != nil {
		return "", err
	}

	switch len(events) {
	case 0:
		return "I couldn't find a matching event in the next week.", nil
	case 1:
	default:
		return "I found several matching events:\n" +
			formatEvents(events, s.loc, "matching") +
			"\nPlease be more specific.", nil
	}

	label := formatEventLine(events[0], s.loc)

	s.pending.Add(sender, PendingAction{
		Kind:  PendingDeleteEvent,
		UID:   events[0].UID,
		Label: label,
	})

	return fmt.Sprintf("Delete %s? (yes/no)", label), nil
}

func (s *Service) createTask(ctx context.Context, req ParsedRequest) (string, error) {
	if req.Fields.Title == "" {
		return "What should the task say?", nil
	}

	create := &todoist.CreateTaskRequest{
		Content:     req.Fields.Title,
		Description: notesWithLocation(req.Fields.Note, req.Fields.Location),
		Priority:    req.Fields.Priority,
	}

	if req.Fields.When != nil {
		if req.Fields.When.Kind == timeparse.KindPoint {
			create.DueDatetime = req.Fields.When.Point.Format(time.RFC3339)
		} else {
			create.DueDate = req.Fields.When.Range.Start.Format("2006-01-02")
		}
	}

	task, err := s.tasks.CreateTask(ctx, create)
	if err != nil {
		return "", err
	}

	return "✅ Task added: " + formatTaskLine(*task, s.loc), nil
}

func (s *Service) listTasks(ctx context.Context, req ParsedRequest) (string, error) {
	if req.Fields.StatusFilter == "completed" {
		return "I only track open tasks — completed ones are archived by Todoist.", nil
	}

	tasks, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return "", err
	}

	filterName := req.Fields.StatusFilter
	if filterName == "" {
		filterName = "open"
	}

	return formatTasks(tasks, s.loc, filterName), nil
}

func (s *Service) updateTask(ctx context.Context, req ParsedRequest) (string, error) {
	if req.Fields.Title == "" {
		return "Which task do you mean?", nil
	}

	tasks, err := s.tasks.FindTasks(ctx, req.Fields.Title, "")
	if err != nil {
		return "", err
	}

	switch len(tasks) {
	case 0:
		return "I couldn't find a matching open task.", nil
	case 1:
	default:
		return "I found several matching tasks:\n" +
			formatTasks(tasks, s.loc, "matching") +
			"\nPlease be more specific.", nil
	}

	task := tasks[0]

	if isCompletion(req) {
		if err := s.tasks.CloseTask(ctx, task.ID); err != nil {
			return "", err
		}

		return "🎉 Done: " + task.Content, nil
	}

	update := &todoist.UpdateTaskRequest{}
	if req.Fields.When != nil {
		if req.Fields.When.Kind == timeparse.KindPoint {
			due := req.Fields.When.Point.Format(time.RFC3339)
			update.DueDatetime = &due
		} else {
			due := req.Fields.When.Range.Start.Format("2006-01-02")
			update.DueDate = &due
		}
	}
	if req.Fields.Priority != 0 {
		priority := req.Fields.Priority
		update.Priority = &priority
	}
	if req.Fields.Note != "" {
		note := req.Fields.Note
		update.Description = &note
	}

	if update.DueDate == nil && update.DueDatetime == nil &&
		update.Priority == nil && update.Description == nil {
		return "What should I change? A new due date, priority or note works.", nil
	}

	if err := s.tasks.UpdateTask(ctx, task.ID, update); err != nil {
		return "", err
	}

	return "✏️ Updated task: " + task.Content, nil
}

func (s *Service) deleteTask(ctx context.Context, sender string, req ParsedRequest) (string, error) {
	if req.Fields.Title == "" {
		return "Which task should I delete?", nil
	}

	tasks, err := s.tasks.FindTasks(ctx, req.Fields.Title, "")
	if err != nil {
		return "", err
	}

	switch len(tasks) {
	case 0:
		return "I couldn't find a matching open task.", nil
	case 1:
	default:
		return "I found several matching tasks:\n" +
			formatTasks(tasks, s.loc, "matching") +
			"\nPlease be more specific.", nil
	}

	s.pending.Add(sender, PendingAction{
		Kind:   PendingDeleteTask,
		TaskID: tasks[0].ID,
		Label:  tasks[0].Content,
	})

	return fmt.Sprintf("Delete task %q? (yes/no)", tasks[0].Content), nil
}

func (s *Service) freeSlots(ctx context.Context, req ParsedRequest) (string, error) {
	window, periodName := s.window(req)

	events, err := s.calendar.ListEvents(ctx, window.Start, window.End)
	if err != nil {
		return "", err
	}

	slots := FindFreeSlots(events, window, minFreeSlotDuration)

	return formatSlots(slots, s.loc, periodName), nil
}

func (s *Service) summary(ctx context.Context, req ParsedRequest) (string, error) {
	window, periodName := s.window(req)

	events, err := s.calendar.ListEvents(ctx, window.Start, window.End)
	if err != nil {
		return "", err
	}

	tasks, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return "", err
	}

	return formatSummary(events, tasks, s.loc, periodName), nil
}

// DailySummary builds and sends today's digest to the configured user.
func (s *Service) DailySummary(ctx context.Context) error {
	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	window := timeparse.Range{Start: start, End: start.AddDate(0, 0, 1)}

	events, err := s.calendar.ListEvents(ctx, window.Start, window.End)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	tasks, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	text := formatSummary(events, tasks, s.loc, "today")

	return s.messenger.Send(ctx, s.cfg.Twilio.UserNumber, text)
}

func (s *Service) generalChat(ctx context.Context, req ParsedRequest) (string, error) {
	answer, err := s.classifier.Answer(ctx, req.Text)
	if err != nil {
		return "", err
	}

	return truncate(answer), nil
}

// window resolves the request's date range, defaulting to today.
func (s *Service) window(req ParsedRequest) (timeparse.Range, string) {
	if req.Fields.When != nil {
		if req.Fields.When.Kind == timeparse.KindRange {
			return req.Fields.When.Range, periodName(req.Fields.When.Range)
		}

		day := req.Fields.When.Point
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)

		return timeparse.Range{Start: start, End: start.AddDate(0, 0, 1)},
			start.Format("Mon 02/01")
	}

	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	return timeparse.Range{Start: start, End: start.AddDate(0, 0, 1)}, "today"
}

func periodName(window timeparse.Range) string {
	days := int(window.End.Sub(window.Start).Hours() / 24)
	if days >= 7 {
		return "the week of " + window.Start.Format("02/01")
	}
	if days <= 1 {
		return window.Start.Format("Mon 02/01")
	}

	return fmt.Sprintf("%s – %s", window.Start.Format("02/01"), window.End.Format("02/01"))
}

func recurrenceRule(text string) string {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "every day") || strings.Contains(lower, "daily"):
		return "FREQ=DAILY"
	case strings.Contains(lower, "every week") || strings.Contains(lower, "weekly"):
		return "FREQ=WEEKLY"
	case strings.Contains(lower, "every month") || strings.Contains(lower, "monthly"):
		return "FREQ=MONTHLY"
	case strings.Contains(lower, "every year") || strings.Contains(lower, "yearly") ||
		strings.Contains(lower, "annually"):
		return "FREQ=YEARLY"
	default:
		return ""
	}
}

// Todoist tasks have no location field, so it rides inside the notes.
func notesWithLocation(note, location string) string {
	switch {
	case note != "" && location != "":
		return note + "\nLocation: " + location
	case location != "":
		return "Location: " + location
	default:
		return note
	}
}

func isCompletion(req ParsedRequest) bool {
	lower := strings.ToLower(req.Text)

	for _, word := range []string{"complete", "done", "finish", "finished", "close"} {
		if strings.Contains(lower, word) {
			return true
		}
	}

	return false
}
