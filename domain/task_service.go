package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TaskStore defines the persistence operations the task service needs. Every
// operation is scoped by the owning user; a task belonging to someone else is
// reported as ErrNotFound.
type TaskStore interface {
	GetTask(ctx context.Context, userID, taskID string) (Task, error)
	InsertTask(ctx context.Context, t Task) error
	UpdateTask(ctx context.Context, userID, taskID string, patch TaskPatch) (Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) (Task, error)
	ListTasks(ctx context.Context, userID, projectID string) ([]Task, error)
}

// TaskService owns task lifecycle rules. It is the sole authority for status
// changes: nothing else writes Task.Status.
type TaskService struct{ st TaskStore }

func NewTaskService(st TaskStore) TaskService { return TaskService{st: st} }

// TaskDraft holds the caller-supplied fields for a new task.
type TaskDraft struct {
	ProjectID   string
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	DueAt       *time.Time
}

// Create validates the draft, fills defaults and persists the task.
func (s TaskService) Create(ctx context.Context, userID string, draft TaskDraft) (Task, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return Task{}, fmt.Errorf("%w: title must not be empty", ErrInvalidArgument)
	}
	if draft.ProjectID == "" {
		return Task{}, fmt.Errorf("%w: projectId must not be empty", ErrInvalidArgument)
	}
	status := draft.Status
	if status == "" {
		status = StatusTodo
	}
	if !status.Valid() {
		return Task{}, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}
	priority := draft.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return Task{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidArgument, priority)
	}

	now := Now()
	t := Task{
		ID:          uuid.NewString(),
		ProjectID:   draft.ProjectID,
		Title:       draft.Title,
		Description: draft.Description,
		Status:      status,
		Priority:    priority,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if draft.DueAt != nil {
		due := *draft.DueAt
		t.DueAt = &due
	}
	if err := s.st.InsertTask(ctx, t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Update applies a partial update. Validation happens before any write so a
// rejected patch never leaves a partially-applied change.
func (s TaskService) Update(ctx context.Context, userID, taskID string, patch TaskPatch) (Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return Task{}, fmt.Errorf("%w: title must not be empty", ErrInvalidArgument)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return Task{}, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, *patch.Status)
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return Task{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidArgument, *patch.Priority)
	}
	if patch.Empty() {
		return Task{}, fmt.Errorf("%w: update had no fields", ErrInvalidArgument)
	}
	return s.st.UpdateTask(ctx, userID, taskID, patch)
}

// Transition moves a task to the target board column. Any status may follow
// any other; a transition onto the current status still bumps UpdatedAt.
func (s TaskService) Transition(ctx context.Context, userID, taskID string, target TaskStatus) (Task, error) {
	if !target.Valid() {
		return Task{}, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, target)
	}
	t, err := s.st.UpdateTask(ctx, userID, taskID, TaskPatch{Status: &target})
	if err != nil {
		return Task{}, err
	}
	log.WithFields(log.Fields{"task": taskID, "status": target}).Debug("task transitioned")
	return t, nil
}

// Delete removes the task and returns the deleted record.
func (s TaskService) Delete(ctx context.Context, userID, taskID string) (Task, error) {
	return s.st.DeleteTask(ctx, userID, taskID)
}

// ListByProject returns the project's tasks most-recently-updated first.
func (s TaskService) ListByProject(ctx context.Context, userID, projectID string) ([]Task, error) {
	return s.st.ListTasks(ctx, userID, projectID)
}
