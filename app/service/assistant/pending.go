package assistant

import (
	"strings"
	"sync"
	"time"

	"planbot/app/client/caldav"
)

type PendingKind string

const (
	PendingCreateEvent PendingKind = "create_event"
	PendingDeleteEvent PendingKind = "delete_event"
	PendingDeleteTask  PendingKind = "delete_task"
)

// PendingAction is a confirmation waiting for the sender's next message.
type PendingAction struct {
	Kind    PendingKind
	Event   *caldav.Event // create
	UID     string        // event delete
	TaskID  string        // task delete
	Label   string        // human description for the prompt
	expires time.Time
}

// PendingStore holds at most one pending action per sender with a short
// TTL. A new action for the same sender overwrites the previous one.
type PendingStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]PendingAction

	now func() time.Time
}

func NewPendingStore(ttl time.Duration) *PendingStore {
	return &PendingStore{
		ttl:     ttl,
		entries: make(map[string]PendingAction),
		now:     time.Now,
	}
}

func (s *PendingStore) Add(sender string, action PendingAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanup()

	action.expires = s.now().Add(s.ttl)
	s.entries[sender] = action
}

// Pop removes and returns the sender's pending action, if still valid.
func (s *PendingStore) Pop(sender string) (PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanup()

	action, ok := s.entries[sender]
	if ok {
		delete(s.entries, sender)
	}

	return action, ok
}

func (s *PendingStore) Has(sender string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanup()

	_, ok := s.entries[sender]

	return ok
}

// Count reports live entries, for the health surface.
func (s *PendingStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanup()

	return len(s.entries)
}

func (s *PendingStore) cleanup() {
	now := s.now()
	for sender, action := range s.entries {
		if action.expires.Before(now) {
			delete(s.entries, sender)
		}
	}
}

var confirmTokens = map[string]bool{
	"1": true, "confirm": true, "confirmed": true, "yes": true, "y": true,
	"ok": true, "okay": true, "sure": true, "yep": true, "yeah": true,
	"oui": true, "si": true, "sí": true, "ja": true, "да": true,
	"כן": true, "אישור": true, "✔": true, "✅": true, "👍": true,
}

var cancelTokens = map[string]bool{
	"0": true, "cancel": true, "c": true, "no": true, "n": true,
	"abort": true, "stop": true, "nope": true, "nah": true,
	"nein": true, "non": true, "нет": true, "לא": true, "ביטול": true,
	"✖": true, "❌": true, "👎": true,
}

func IsConfirm(text string) bool {
	return confirmTokens[strings.ToLower(strings.TrimSpace(text))]
}

func IsCancel(text string) bool {
	return cancelTokens[strings.ToLower(strings.TrimSpace(text))]
}
