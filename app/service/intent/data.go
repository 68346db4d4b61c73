package intent

// Intent is the discrete category of a user request. The set is closed:
// the classifier never produces a value outside it, whatever the provider
// returns.
type Intent string

const (
	CreateEvent Intent = "create_event"
	ListEvents  Intent = "list_events"
	UpdateEvent Intent = "update_event"
	DeleteEvent Intent = "delete_event"
	CreateTask  Intent = "create_task"
	ListTasks   Intent = "list_tasks"
	UpdateTask  Intent = "update_task"
	DeleteTask  Intent = "delete_task"
	FreeSlots   Intent = "free_slots_query"
	Summary     Intent = "summary_query"
	GeneralChat Intent = "general_chat"
)

var All = []Intent{
	CreateEvent, ListEvents, UpdateEvent, DeleteEvent,
	CreateTask, ListTasks, UpdateTask, DeleteTask,
	FreeSlots, Summary, GeneralChat,
}

// Parse validates a raw label against the closed set.
func Parse(raw string) (Intent, bool) {
	for _, it := range All {
		if string(it) == raw {
			return it, true
		}
	}

	return GeneralChat, false
}

func (i Intent) IsTask() bool {
	switch i {
	case CreateTask, ListTasks, UpdateTask, DeleteTask:
		return true
	}

	return false
}

func (i Intent) IsEvent() bool {
	switch i {
	case CreateEvent, ListEvents, UpdateEvent, DeleteEvent:
		return true
	}

	return false
}

// Classification is the classifier's verdict for one inbound message.
// Fallback marks results produced by the rule matcher while the provider
// was unavailable; their confidence is always capped below the provider
// acceptance threshold.
type Classification struct {
	Intent     Intent
	Confidence float64
	Fallback   bool
}
