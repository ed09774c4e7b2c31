package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trellis-api/domain"
)

type moveResult struct {
	task domain.Task
	err  error
}

type moveCall struct {
	taskID string
	target domain.TaskStatus
	resp   chan moveResult
}

// scriptedRemote hands every Transition call to the test, which decides when
// and how it resolves. That makes response ordering fully deterministic.
type scriptedRemote struct{ calls chan moveCall }

func newScriptedRemote() *scriptedRemote {
	return &scriptedRemote{calls: make(chan moveCall, 16)}
}

func (r *scriptedRemote) Transition(_ context.Context, taskID string, target domain.TaskStatus) (domain.Task, error) {
	c := moveCall{taskID: taskID, target: target, resp: make(chan moveResult)}
	r.calls <- c
	res := <-c.resp
	return res.task, res.err
}

func (r *scriptedRemote) next(t *testing.T) moveCall {
	t.Helper()
	select {
	case c := <-r.calls:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a Transition call")
		return moveCall{}
	}
}

func serverTask(base domain.Task, status domain.TaskStatus) domain.Task {
	base.Status = status
	base.UpdatedAt = domain.Now()
	return base
}

type recorder struct {
	mu      sync.Mutex
	renders []Columns
	errs    []error
}

func (r *recorder) render(c Columns) {
	r.mu.Lock()
	r.renders = append(r.renders, c)
	r.mu.Unlock()
}

func (r *recorder) fail(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) errCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func (r *recorder) renderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.renders)
}

func seedTask(id string, status domain.TaskStatus) domain.Task {
	return domain.Task{ID: id, ProjectID: "p1", Title: id, Status: status, UpdatedAt: domain.Now()}
}

func TestBeginMoveOptimisticThenMerge(t *testing.T) {
	remote := newScriptedRemote()
	rec := &recorder{}
	client := NewClient(remote, rec.render, rec.fail)

	seed := seedTask("t1", domain.StatusTodo)
	client.Load([]domain.Task{seed})

	if err := client.BeginMove(context.Background(), "t1", domain.StatusDoing); err != nil {
		t.Fatalf("begin move: %v", err)
	}

	// The card moved before any response came back.
	snap := client.Snapshot()
	if len(snap.Doing) != 1 || len(snap.Todo) != 0 {
		t.Fatalf("optimistic move not applied: %+v", snap)
	}
	if !client.Pending("t1") {
		t.Fatal("move should be pending while in flight")
	}

	call := remote.next(t)
	if call.taskID != "t1" || call.target != domain.StatusDoing {
		t.Fatalf("unexpected remote call: %+v", call)
	}
	authoritative := serverTask(seed, domain.StatusDoing)
	call.resp <- moveResult{task: authoritative}
	client.Wait()

	if client.Pending("t1") {
		t.Fatal("move still pending after resolution")
	}
	got, ok := client.Task("t1")
	if !ok || got.Status != domain.StatusDoing {
		t.Fatalf("server record not merged: %+v", got)
	}
	if !got.UpdatedAt.Equal(authoritative.UpdatedAt) {
		t.Fatal("cached task must carry the server UpdatedAt after merge")
	}
	if rec.errCount() != 0 {
		t.Fatalf("unexpected errors: %v", rec.errs)
	}
	// Load, optimistic apply, merge.
	if rec.renderCount() != 3 {
		t.Fatalf("expected 3 renders, got %d", rec.renderCount())
	}
}

func TestBeginMoveRevertsOnFailure(t *testing.T) {
	remote := newScriptedRemote()
	rec := &recorder{}
	client := NewClient(remote, rec.render, rec.fail)
	client.Load([]domain.Task{seedTask("t1", domain.StatusTodo)})

	if err := client.BeginMove(context.Background(), "t1", domain.StatusDone); err != nil {
		t.Fatalf("begin move: %v", err)
	}
	remote.next(t).resp <- moveResult{err: domain.ErrUnavailable}
	client.Wait()

	got, _ := client.Task("t1")
	if got.Status != domain.StatusTodo {
		t.Fatalf("failed move not reverted: %s", got.Status)
	}
	if rec.errCount() != 1 {
		t.Fatalf("error must surface exactly once, surfaced %d times", rec.errCount())
	}
	if !errors.Is(rec.errs[0], domain.ErrUnavailable) {
		t.Fatalf("unexpected surfaced error: %v", rec.errs[0])
	}
	if client.Pending("t1") {
		t.Fatal("move still pending after revert")
	}
}

func TestBeginMoveSameColumnIsNoop(t *testing.T) {
	remote := newScriptedRemote()
	rec := &recorder{}
	client := NewClient(remote, rec.render, rec.fail)
	client.Load([]domain.Task{seedTask("t1", domain.StatusDoing)})
	renders := rec.renderCount()

	if err := client.BeginMove(context.Background(), "t1", domain.StatusDoing); err != nil {
		t.Fatalf("same-column drop must be a silent no-op, got %v", err)
	}
	client.Wait()

	if len(remote.calls) != 0 {
		t.Fatal("no-op move must not call the server")
	}
	if rec.renderCount() != renders {
		t.Fatal("no-op move must not re-render")
	}
}

func TestBeginMoveUnknownTask(t *testing.T) {
	remote := newScriptedRemote()
	client := NewClient(remote, nil, nil)
	client.Load([]domain.Task{seedTask("t1", domain.StatusTodo)})

	err := client.BeginMove(context.Background(), "ghost", domain.StatusDone)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(remote.calls) != 0 {
		t.Fatal("unknown task must not reach the server")
	}
}

func TestBeginMoveInvalidStatus(t *testing.T) {
	client := NewClient(newScriptedRemote(), nil, nil)
	client.Load([]domain.Task{seedTask("t1", domain.StatusTodo)})

	if err := client.BeginMove(context.Background(), "t1", "ARCHIVED"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	remote := newScriptedRemote()
	rec := &recorder{}
	client := NewClient(remote, rec.render, rec.fail)
	seed := seedTask("t1", domain.StatusTodo)
	client.Load([]domain.Task{seed})

	ctx := context.Background()
	if err := client.BeginMove(ctx, "t1", domain.StatusDoing); err != nil {
		t.Fatalf("first move: %v", err)
	}
	first := remote.next(t)
	if err := client.BeginMove(ctx, "t1", domain.StatusDone); err != nil {
		t.Fatalf("second move: %v", err)
	}
	second := remote.next(t)

	// The first response lands after a newer move was issued, so its record
	// is stale even though the server accepted it.
	first.resp <- moveResult{task: serverTask(seed, domain.StatusDoing)}
	second.resp <- moveResult{task: serverTask(seed, domain.StatusDone)}
	client.Wait()

	got, _ := client.Task("t1")
	if got.Status != domain.StatusDone {
		t.Fatalf("stale response clobbered the newer move: %s", got.Status)
	}
	if client.Pending("t1") {
		t.Fatal("pending count did not drain")
	}
}

func TestStaleFailureIsNotSurfaced(t *testing.T) {
	remote := newScriptedRemote()
	rec := &recorder{}
	client := NewClient(remote, rec.render, rec.fail)
	seed := seedTask("t1", domain.StatusTodo)
	client.Load([]domain.Task{seed})

	ctx := context.Background()
	if err := client.BeginMove(ctx, "t1", domain.StatusDoing); err != nil {
		t.Fatalf("first move: %v", err)
	}
	first := remote.next(t)
	if err := client.BeginMove(ctx, "t1", domain.StatusDone); err != nil {
		t.Fatalf("second move: %v", err)
	}
	second := remote.next(t)

	first.resp <- moveResult{err: domain.ErrUnavailable}
	second.resp <- moveResult{task: serverTask(seed, domain.StatusDone)}
	client.Wait()

	if rec.errCount() != 0 {
		t.Fatalf("superseded failure must stay silent, surfaced %d errors", rec.errCount())
	}
	got, _ := client.Task("t1")
	if got.Status != domain.StatusDone {
		t.Fatalf("latest move lost: %s", got.Status)
	}
}

func TestMoveThereAndBack(t *testing.T) {
	remote := newScriptedRemote()
	rec := &recorder{}
	client := NewClient(remote, rec.render, rec.fail)
	seed := seedTask("t1", domain.StatusTodo)
	client.Load([]domain.Task{seed})
	ctx := context.Background()

	if err := client.BeginMove(ctx, "t1", domain.StatusDone); err != nil {
		t.Fatalf("to DONE: %v", err)
	}
	remote.next(t).resp <- moveResult{task: serverTask(seed, domain.StatusDone)}
	client.Wait()

	if err := client.BeginMove(ctx, "t1", domain.StatusTodo); err != nil {
		t.Fatalf("back to TODO: %v", err)
	}
	remote.next(t).resp <- moveResult{task: serverTask(seed, domain.StatusTodo)}
	client.Wait()

	got, _ := client.Task("t1")
	if got.Status != domain.StatusTodo {
		t.Fatalf("round trip should land on TODO, got %s", got.Status)
	}
	if rec.errCount() != 0 {
		t.Fatalf("unexpected errors: %v", rec.errs)
	}
}

func TestDetachSilencesLateResponses(t *testing.T) {
	remote := newScriptedRemote()
	rec := &recorder{}
	client := NewClient(remote, rec.render, rec.fail)
	client.Load([]domain.Task{seedTask("t1", domain.StatusTodo)})

	if err := client.BeginMove(context.Background(), "t1", domain.StatusDoing); err != nil {
		t.Fatalf("begin move: %v", err)
	}
	call := remote.next(t)
	renders := rec.renderCount()

	client.Detach()
	call.resp <- moveResult{err: domain.ErrUnavailable}
	client.Wait()

	if rec.renderCount() != renders || rec.errCount() != 0 {
		t.Fatal("detached client must not invoke callbacks")
	}
	// The cache itself is still reconciled.
	got, _ := client.Task("t1")
	if got.Status != domain.StatusTodo {
		t.Fatalf("revert skipped after detach: %s", got.Status)
	}
}

func TestLoadPreservesOrderAndDedupes(t *testing.T) {
	client := NewClient(newScriptedRemote(), nil, nil)
	client.Load([]domain.Task{
		seedTask("b", domain.StatusTodo),
		seedTask("a", domain.StatusTodo),
		seedTask("b", domain.StatusDone),
	})

	snap := client.Snapshot()
	if snap.Len() != 2 {
		t.Fatalf("duplicate IDs must collapse to one card: %d", snap.Len())
	}
	if len(snap.Todo) != 2 || snap.Todo[0].ID != "b" || snap.Todo[1].ID != "a" {
		t.Fatalf("load did not preserve server order: %+v", snap.Todo)
	}
}
