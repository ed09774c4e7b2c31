package storage

import (
	"testing"
	"time"

	"trellis-api/domain"
)

func TestTaskEntityRoundTrip(t *testing.T) {
	due := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	in := domain.Task{
		ID:          "t1",
		ProjectID:   "p1",
		Title:       "Ship it",
		Description: "final cut",
		Status:      domain.StatusDoing,
		Priority:    domain.PriorityHigh,
		DueAt:       &due,
		CreatedBy:   "user-1",
		CreatedAt:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 8, 2, 0, 0, 0, 123456789, time.UTC),
	}

	ent := taskToEntity(in)
	if ent.PartitionKey != "user-1" || ent.RowKey != "t1" {
		t.Fatalf("unexpected keys: %s/%s", ent.PartitionKey, ent.RowKey)
	}

	out := entityToTask(ent)
	if out.ID != in.ID || out.ProjectID != in.ProjectID || out.Title != in.Title {
		t.Fatalf("round trip lost fields: %+v", out)
	}
	if out.Status != in.Status || out.Priority != in.Priority {
		t.Fatalf("round trip lost status/priority: %+v", out)
	}
	if out.DueAt == nil || !out.DueAt.Equal(due) {
		t.Fatalf("round trip lost due date: %v", out.DueAt)
	}
	if !out.UpdatedAt.Equal(in.UpdatedAt) {
		t.Fatalf("round trip lost timestamp precision: %v vs %v", out.UpdatedAt, in.UpdatedAt)
	}
}

func TestTaskEntityWithoutDueDate(t *testing.T) {
	ent := taskToEntity(domain.Task{ID: "t1", CreatedBy: "user-1"})
	if ent.DueAt != "" {
		t.Fatalf("nil due date must encode empty, got %q", ent.DueAt)
	}
	if out := entityToTask(ent); out.DueAt != nil {
		t.Fatalf("empty due date must decode nil, got %v", out.DueAt)
	}
}

func TestProjectEntityRoundTrip(t *testing.T) {
	deadline := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	in := domain.Project{
		ID:          "p1",
		Name:        "Launch",
		Description: "it's complicated",
		Objectives:  []string{"ship", "don't break"},
		Tags:        []string{"web-app", "q4"},
		Deadline:    &deadline,
		CreatedBy:   "user-1",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	out := entityToProject(projectToEntity(in))
	if out.ID != in.ID || out.Name != in.Name || out.Description != in.Description {
		t.Fatalf("round trip lost fields: %+v", out)
	}
	if len(out.Objectives) != 2 || out.Objectives[1] != "don't break" {
		t.Fatalf("round trip lost objectives: %v", out.Objectives)
	}
	if len(out.Tags) != 2 || out.Tags[0] != "web-app" {
		t.Fatalf("round trip lost tags: %v", out.Tags)
	}
	if out.Deadline == nil || !out.Deadline.Equal(deadline) {
		t.Fatalf("round trip lost deadline: %v", out.Deadline)
	}
}

func TestEncodeStrings(t *testing.T) {
	if got := encodeStrings(nil); got != "[]" {
		t.Fatalf("nil slice must encode as [], got %q", got)
	}
	if got := decodeStrings(""); len(got) != 0 {
		t.Fatalf("empty raw must decode empty, got %v", got)
	}
	if got := decodeStrings("garbage"); len(got) != 0 {
		t.Fatalf("bad raw must decode empty, got %v", got)
	}
	round := decodeStrings(encodeStrings([]string{"a", "b"}))
	if len(round) != 2 || round[0] != "a" || round[1] != "b" {
		t.Fatalf("round trip lost values: %v", round)
	}
}

func TestEmailKey(t *testing.T) {
	if got := emailKey("  Ada@Example.COM "); got != "ada@example.com" {
		t.Fatalf("unexpected email key %q", got)
	}
}

func TestFilterValueEscapesQuotes(t *testing.T) {
	if got := filterValue("o'brien"); got != "o''brien" {
		t.Fatalf("unexpected filter value %q", got)
	}
}

func TestParseOptionalTime(t *testing.T) {
	if parseOptionalTime("") != nil {
		t.Fatal("empty string must parse to nil")
	}
	got := parseOptionalTime("2026-08-29T12:00:00Z")
	if got == nil || got.Hour() != 12 {
		t.Fatalf("unexpected parse result: %v", got)
	}
}
