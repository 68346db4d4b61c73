package intent

import "strings"

// Rule-based fallback classifier over a fixed lexicon. Used whenever the
// provider path fails, times out or is rate limited, and exercised directly
// by tests since it is fully deterministic.

var (
	createWords   = []string{"create", "add", "new", "schedule", "remind me", "set up", "book"}
	listWords     = []string{"list", "show", "what", "which", "any", "do i have", "view"}
	updateWords   = []string{"update", "change", "modify", "move", "reschedule", "postpone", "complete", "finish", "done", "mark"}
	deleteWords   = []string{"delete", "remove", "cancel", "drop"}
	taskWords     = []string{"task", "tasks", "todo", "to-do", "to do"}
	eventWords    = []string{"event", "events", "meeting", "meetings", "appointment", "appointments", "calendar"}
	freeSlotWords = []string{"free slot", "free slots", "free time", "available time", "availability", "open slots", "when am i free"}
	summaryWords  = []string{"summary", "summarize", "overview", "statistics", "recap", "digest"}
)

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}

	return false
}

// classifyByRules maps text to an intent by keyword presence alone.
// Confidence values here are intentionally modest; the caller caps them
// below the provider threshold to signal degraded mode.
func classifyByRules(text string) Classification {
	text = strings.ToLower(text)

	if containsAny(text, freeSlotWords) {
		return Classification{Intent: FreeSlots, Confidence: 0.5, Fallback: true}
	}

	if containsAny(text, summaryWords) {
		return Classification{Intent: Summary, Confidence: 0.5, Fallback: true}
	}

	isTask := containsAny(text, taskWords)
	isEvent := containsAny(text, eventWords)

	switch {
	case isTask:
		return Classification{Intent: taskOp(text), Confidence: 0.45, Fallback: true}
	case isEvent:
		return Classification{Intent: eventOp(text), Confidence: 0.45, Fallback: true}
	}

	// A bare "remind me to X" is a task even without the word itself.
	if strings.Contains(text, "remind me") {
		return Classification{Intent: CreateTask, Confidence: 0.4, Fallback: true}
	}

	return Classification{Intent: GeneralChat, Confidence: 0.2, Fallback: true}
}

func taskOp(text string) Intent {
	switch {
	case containsAny(text, deleteWords):
		return DeleteTask
	case containsAny(text, updateWords):
		return UpdateTask
	case containsAny(text, createWords):
		return CreateTask
	case containsAny(text, listWords):
		return ListTasks
	default:
		return ListTasks
	}
}

func eventOp(text string) Intent {
	switch {
	case containsAny(text, deleteWords):
		return DeleteEvent
	case containsAny(text, updateWords):
		return UpdateEvent
	case containsAny(text, createWords):
		return CreateEvent
	case containsAny(text, listWords):
		return ListEvents
	default:
		return ListEvents
	}
}
