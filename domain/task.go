package domain

import (
	"fmt"
	"time"
)

// TaskStatus is the board column a task currently occupies.
type TaskStatus string

const (
	StatusTodo  TaskStatus = "TODO"
	StatusDoing TaskStatus = "DOING"
	StatusDone  TaskStatus = "DONE"
)

// Statuses lists every legal status in board column order.
var Statuses = [...]TaskStatus{StatusTodo, StatusDoing, StatusDone}

// Valid reports whether the status is one of the three recognized values.
func (s TaskStatus) Valid() bool {
	return s == StatusTodo || s == StatusDoing || s == StatusDone
}

// ParseStatus converts a raw string into a TaskStatus.
func ParseStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, raw)
	}
	return s, nil
}

// TaskPriority ranks how urgent a task is.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

// Valid reports whether the priority is a recognized value.
func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ParsePriority converts a raw string into a TaskPriority.
func ParsePriority(raw string) (TaskPriority, error) {
	p := TaskPriority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidArgument, raw)
	}
	return p, nil
}

// Task is a unit of work belonging to exactly one project for its lifetime.
type Task struct {
	ID          string       `json:"_id"`
	ProjectID   string       `json:"projectId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueAt       *time.Time   `json:"dueAt,omitempty"`
	CreatedBy   string       `json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// TaskPatch carries a partial update. Only non-nil fields are applied.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
	DueAt       *time.Time
	// ClearDueAt removes the due date; it wins over DueAt when both are set.
	ClearDueAt bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.DueAt == nil && !p.ClearDueAt
}

// Apply merges the patch into t and refreshes UpdatedAt. UpdatedAt moves even
// when every patched field already holds the target value.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueAt {
		t.DueAt = nil
	} else if p.DueAt != nil {
		due := *p.DueAt
		t.DueAt = &due
	}
	t.UpdatedAt = Now()
}
