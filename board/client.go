package board

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"trellis-api/domain"
)

// Transitioner applies an authoritative status change. The server-side task
// service and the HTTP client both satisfy it.
type Transitioner interface {
	Transition(ctx context.Context, taskID string, target domain.TaskStatus) (domain.Task, error)
}

// Client keeps a per-session cache of one project's tasks and gives a drag
// action immediate visual feedback while the authoritative update is in
// flight. The cached copy is never authoritative: the server record always
// wins when a response is merged back.
//
// Concurrent moves of the same task are sequenced: every move is tagged with
// a per-task sequence number and a response is applied only while its number
// is still the latest issued, so a slow first response can never clobber a
// newer optimistic state.
type Client struct {
	remote Transitioner

	mu       sync.Mutex
	tasks    map[string]domain.Task
	order    []string
	seq      map[string]uint64
	pending  map[string]int
	onRender func(Columns)
	onError  func(error)

	wg sync.WaitGroup
}

// NewClient creates a board client. onRender is invoked with a fresh
// projection after every cache change and onError once per failed move; both
// may be nil.
func NewClient(remote Transitioner, onRender func(Columns), onError func(error)) *Client {
	return &Client{
		remote:   remote,
		tasks:    make(map[string]domain.Task),
		seq:      make(map[string]uint64),
		pending:  make(map[string]int),
		onRender: onRender,
		onError:  onError,
	}
}

// Load replaces the cached task collection with an authoritative server list.
func (c *Client) Load(tasks []domain.Task) {
	c.mu.Lock()
	c.tasks = make(map[string]domain.Task, len(tasks))
	c.order = make([]string, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := c.tasks[t.ID]; ok {
			continue
		}
		c.tasks[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	render := c.onRender
	cols := c.projectLocked()
	c.mu.Unlock()

	if render != nil {
		render(cols)
	}
}

// Snapshot projects the current cache into board columns.
func (c *Client) Snapshot() Columns {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectLocked()
}

// Task returns the cached copy of a task.
func (c *Client) Task(taskID string) (domain.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tasks[taskID]
	return t, ok
}

// Pending reports whether the task has an unresolved move in flight.
func (c *Client) Pending(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[taskID] > 0
}

// Detach drops the render and error callbacks. In-flight moves still resolve
// against the cache without panicking; their results are simply not rendered.
func (c *Client) Detach() {
	c.mu.Lock()
	c.onRender = nil
	c.onError = nil
	c.mu.Unlock()
}

// Wait blocks until every in-flight move has resolved.
func (c *Client) Wait() { c.wg.Wait() }

// BeginMove applies target optimistically, re-renders, and reconciles with the
// server asynchronously. Dropping a card onto its current column is a no-op.
// Moving an unknown task returns ErrNotFound and touches nothing.
func (c *Client) BeginMove(ctx context.Context, taskID string, target domain.TaskStatus) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, target)
	}

	c.mu.Lock()
	t, ok := c.tasks[taskID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID)
	}
	if t.Status == target {
		c.mu.Unlock()
		return nil
	}

	prev := t.Status
	c.seq[taskID]++
	moveSeq := c.seq[taskID]
	c.pending[taskID]++

	t.Status = target
	c.tasks[taskID] = t
	render := c.onRender
	cols := c.projectLocked()
	c.mu.Unlock()

	if render != nil {
		render(cols)
	}

	c.wg.Add(1)
	go c.reconcile(ctx, taskID, target, prev, moveSeq)
	return nil
}

func (c *Client) reconcile(ctx context.Context, taskID string, target, prev domain.TaskStatus, moveSeq uint64) {
	defer c.wg.Done()

	updated, err := c.remote.Transition(ctx, taskID, target)

	c.mu.Lock()
	c.pending[taskID]--
	if c.pending[taskID] <= 0 {
		delete(c.pending, taskID)
	}
	latest := c.seq[taskID] == moveSeq
	if !latest {
		// A newer move superseded this one; the last issued move owns the
		// cache entry now and this response is stale either way.
		c.mu.Unlock()
		return
	}

	render := c.onRender
	surface := c.onError
	if err == nil {
		if _, ok := c.tasks[taskID]; ok {
			c.tasks[taskID] = updated
		}
	} else if t, ok := c.tasks[taskID]; ok {
		t.Status = prev
		c.tasks[taskID] = t
	}
	cols := c.projectLocked()
	c.mu.Unlock()

	if err != nil {
		log.WithFields(log.Fields{"task": taskID, "target": target}).WithError(err).Warn("board move rejected; reverted")
		if surface != nil {
			surface(err)
		}
	}
	if render != nil {
		render(cols)
	}
}

func (c *Client) projectLocked() Columns {
	ordered := make([]domain.Task, 0, len(c.order))
	for _, id := range c.order {
		if t, ok := c.tasks[id]; ok {
			ordered = append(ordered, t)
		}
	}
	return Project(ordered)
}
