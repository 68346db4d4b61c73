package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"planbot/app/client/caldav"
	"planbot/app/client/todoist"
	"planbot/app/client/whatsapp"
	"planbot/app/config"
	"planbot/app/service/intent"
	"planbot/app/service/nlp"
	"planbot/app/util/fault"
	"planbot/app/util/ratelimit"
	"planbot/app/util/retry"
	"planbot/app/util/timeparse"

	"github.com/samber/do"
)

const (
	maxInboundLength = 1000

	// Below this the classifier verdict is too weak to act on.
	minActionableConfidence = 0.3
)

const (
	genericErrorReply = "😕 Something went wrong, please try again."
	busyReply         = "I'm handling too many requests right now, please try again in a moment."
	clarifyReply      = "I'm not sure what you meant. I can create, list, update or delete events and tasks, find free slots or give you a summary."
)

// Service drives one inbound message through classify → extract →
// dispatch → format → reply. Messages are independent; the only state
// shared between them is the pending-confirmation store.
type Service struct {
	cfg        *config.Config
	classifier *intent.Classifier
	extractor  *nlp.Extractor
	resolver   *timeparse.Resolver
	calendar   *caldav.Client
	tasks      *todoist.Client
	messenger  *whatsapp.Client
	pending    *PendingStore
	loc        *time.Location

	now func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	resolver := timeparse.NewResolver(loc, cfg.WeekStartDay())

	return &Service{
		cfg:        cfg,
		classifier: do.MustInvoke[*intent.Classifier](di),
		extractor:  nlp.NewExtractor(resolver),
		resolver:   resolver,
		calendar:   do.MustInvoke[*caldav.Client](di),
		tasks:      do.MustInvoke[*todoist.Client](di),
		messenger:  do.MustInvoke[*whatsapp.Client](di),
		pending:    NewPendingStore(cfg.App.ConfirmTTL),
		loc:        loc,
		now:        time.Now,
	}, nil
}

func (s *Service) Pending() *PendingStore {
	return s.pending
}

// HandleMessage answers one inbound webhook message. It always sends a
// well-formed reply; the worst case is a generic apology.
func (s *Service) HandleMessage(ctx context.Context, sender, text string) error {
	if sender != s.cfg.Twilio.UserNumber {
		slog.Warn("Ignoring message from unknown sender", "sender", sender)
		return nil
	}

	text = sanitize(text)
	if text == "" {
		return s.messenger.Send(ctx, sender, clarifyReply)
	}

	reply := s.respond(ctx, sender, text)

	if err := s.messenger.Send(ctx, sender, reply); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	return nil
}

func (s *Service) respond(ctx context.Context, sender, text string) string {
	if s.pending.Has(sender) {
		if reply, handled := s.resolvePending(ctx, sender, text); handled {
			return reply
		}
	}

	cls := s.classifier.Classify(ctx, text)

	req := ParsedRequest{
		Intent:     cls.Intent,
		Fields:     s.extractor.Extract(text, cls.Intent, s.now()),
		Confidence: cls.Confidence,
		Degraded:   cls.Fallback,
		Text:       text,
	}

	slog.Info("Routed message",
		"intent", req.Intent,
		"confidence", req.Confidence,
		"degraded", req.Degraded)

	if req.Intent != intent.GeneralChat && req.Confidence < minActionableConfidence {
		return clarifyReply
	}

	reply, err := s.dispatch(ctx, sender, req)
	if err != nil {
		return s.errorReply(err)
	}

	return reply
}

// resolvePending consumes the sender's pending confirmation. Anything that
// is neither a yes nor a no leaves the pending action in place and lets the
// message flow through normal dispatch.
func (s *Service) resolvePending(ctx context.Context, sender, text string) (string, bool) {
	switch {
	case IsConfirm(text):
		action, ok := s.pending.Pop(sender)
		if !ok {
			return "That confirmation expired, please start over.", true
		}

		reply, err := s.executePending(ctx, action)
		if err != nil {
			return s.errorReply(err), true
		}

		return reply, true

	case IsCancel(text):
		s.pending.Pop(sender)
		return "👍 Cancelled.", true

	default:
		return "", false
	}
}

func (s *Service) executePending(ctx context.Context, action PendingAction) (string, error) {
	switch action.Kind {
	case PendingCreateEvent:
		uid, err := s.calendar.CreateEvent(ctx, action.Event)
		if err != nil {
			return "", err
		}

		slog.Info("Created event", "uid", uid, "summary", action.Event.Summary)

		return "✅ Created: " + action.Label, nil

	case PendingDeleteEvent:
		if err := s.calendar.DeleteEvent(ctx, action.UID); err != nil {
			return "", err
		}

		slog.Info("Deleted event", "uid", action.UID)

		return "🗑️ Deleted: " + action.Label, nil

	case PendingDeleteTask:
		if err := s.tasks.DeleteTask(ctx, action.TaskID); err != nil {
			return "", err
		}

		slog.Info("Deleted task", "id", action.TaskID)

		return "🗑️ Deleted: " + action.Label, nil

	default:
		return "", fmt.Errorf("unknown pending action %q", action.Kind)
	}
}

func (s *Service) dispatch(ctx context.Context, sender string, req ParsedRequest) (string, error) {
	switch req.Intent {
	case intent.CreateEvent:
		return s.createEvent(sender, req)
	case intent.ListEvents:
		return s.listEvents(ctx, req)
	case intent.UpdateEvent:
		return s.updateEvent(ctx, req)
	case intent.DeleteEvent:
		return s.deleteEvent(ctx, sender, req)
	case intent.CreateTask:
		return s.createTask(ctx, req)
	case intent.ListTasks:
		return s.listTasks(ctx, req)
	case intent.UpdateTask:
		return s.updateTask(ctx, req)
	case intent.DeleteTask:
		return s.deleteTask(ctx, sender, req)
	case intent.FreeSlots:
		return s.freeSlots(ctx, req)
	case intent.Summary:
		return s.summary(ctx, req)
	default:
		return s.generalChat(ctx, req)
	}
}

// errorReply maps the error taxonomy to user-facing text. Auth failures
// are logged at high severity since they mean operational misconfiguration.
func (s *Service) errorReply(err error) string {
	var authErr *fault.AuthError
	if errors.As(err, &authErr) {
		slog.Error("Provider credential rejected",
			"provider", authErr.Provider,
			"error", err,
			"telegram", true)
		return "⚠️ I can't reach " + authErr.Provider + " — my credentials need attention."
	}

	var rateErr *ratelimit.Error
	if errors.As(err, &rateErr) {
		return busyReply
	}

	var validationErr *fault.ValidationError
	if errors.As(err, &validationErr) {
		return "I couldn't use that: " + validationErr.Error()
	}

	if errors.Is(err, timeparse.ErrUnresolvedPhrase) {
		return "I couldn't figure out the date — try something like \"tomorrow at 2pm\" or \"next Monday\"."
	}

	if errors.Is(err, retry.ErrExhausted) || errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("Request gave up after retries", "error", err)
		return genericErrorReply
	}

	slog.Error("Unhandled dispatch error", "error", err)

	return genericErrorReply
}

func sanitize(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 32 || r == '\n' || r == '\t' {
			return r
		}
		return -1
	}, text)

	cleaned = strings.TrimSpace(cleaned)

	return cutAtRune(cleaned, maxInboundLength)
}
