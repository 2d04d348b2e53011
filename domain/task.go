package domain

import "strings"

// Board columns a task can live in.
const (
	ColumnBacklog  = "backlog"
	ColumnProgress = "progress"
	ColumnDone     = "done"
	ColumnPaused   = "paused"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task represents a single board card.
type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Column      string `json:"column"`
	Tag         string `json:"tag"`
	Assignee    string `json:"assignee"`
	Priority    string `json:"priority"`
	Emoji       string `json:"emoji"`
	DueDate     string `json:"dueDate"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// TaskPatch is a partial task as submitted by clients. Pointer fields
// distinguish "absent" from "set to zero value", which is what gives update
// its partial semantics.
type TaskPatch struct {
	ID          int64   `json:"id,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Column      *string `json:"column,omitempty"`
	Tag         *string `json:"tag,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Emoji       *string `json:"emoji,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

// IsUpdate reports whether the patch targets an existing task.
func (p TaskPatch) IsUpdate() bool { return p.ID > 0 }

// NewTask materializes an insert patch into a full task. The id is left for
// the store to assign. Both timestamps are stamped to now.
func (p TaskPatch) NewTask(now int64) Task {
	t := Task{
		Column:    ColumnBacklog,
		Priority:  PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Column != nil && *p.Column != "" {
		t.Column = *p.Column
	}
	if p.Tag != nil {
		t.Tag = *p.Tag
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.Priority != nil && *p.Priority != "" {
		t.Priority = *p.Priority
	}
	if p.Emoji != nil {
		t.Emoji = *p.Emoji
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	return t
}

// Apply copies the fields present in the patch onto t and refreshes
// UpdatedAt. CreatedAt and ID are never touched.
func (p TaskPatch) Apply(t *Task, now int64) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Column != nil {
		t.Column = *p.Column
	}
	if p.Tag != nil {
		t.Tag = *p.Tag
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Emoji != nil {
		t.Emoji = *p.Emoji
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	t.UpdatedAt = now
}

// Aliases that route a newly assigned task to the clawd notification event.
var clawdAliases = []string{"clawd", "claude"}

// AssignedToClawd reports whether the assignee matches one of the clawd
// aliases, case-insensitively, as a substring.
func AssignedToClawd(assignee string) bool {
	a := strings.ToLower(assignee)
	for _, alias := range clawdAliases {
		if strings.Contains(a, alias) {
			return true
		}
	}
	return false
}
