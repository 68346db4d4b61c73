package todoist

import "time"

// Task mirrors the Todoist REST v2 task resource, trimmed to the fields
// the assistant uses.
type Task struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id,omitempty"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	Priority    int       `json:"priority,omitempty"` // 1 (normal) to 4 (urgent)
	Due         *Due      `json:"due,omitempty"`
	IsCompleted bool      `json:"is_completed,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	URL         string    `json:"url,omitempty"`
}

// Due is Todoist's due date envelope.
type Due struct {
	String      string `json:"string,omitempty"`   // human readable
	Date        string `json:"date,omitempty"`     // YYYY-MM-DD
	DateTime    string `json:"datetime,omitempty"` // RFC3339
	IsRecurring bool   `json:"is_recurring,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

type CreateTaskRequest struct {
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	DueDatetime string `json:"due_datetime,omitempty"`
}

type UpdateTaskRequest struct {
	Content     *string `json:"content,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	DueDatetime *string `json:"due_datetime,omitempty"`
}
