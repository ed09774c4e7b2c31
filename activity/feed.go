// Package activity publishes best-effort mutation records to a storage queue
// for downstream consumers (dashboards, digests). Publishing never blocks a
// request: on saturation the record is dropped and counted.
package activity

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"trellis-api/domain"
)

// Activity is one mutation record.
type Activity struct {
	UserID     string    `json:"userId"`
	Kind       string    `json:"kind"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	ProjectID  string    `json:"projectId,omitempty"`
	At         time.Time `json:"at"`
}

// TaskMoved builds the record for a board transition.
func TaskMoved(userID string, taskID, projectID string, target domain.TaskStatus) Activity {
	return Activity{
		UserID:     userID,
		Kind:       "task-transitioned:" + string(target),
		EntityType: "task",
		EntityID:   taskID,
		ProjectID:  projectID,
		At:         domain.Now(),
	}
}

type queue interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// Feed fans activities out to the queue through a bounded worker pool.
type Feed struct {
	queue   queue
	jobs    chan Activity
	timeout time.Duration
	logger  *log.Logger
	dropped atomic.Int64
	stopped atomic.Bool
	wg      sync.WaitGroup
	closed  sync.Once
}

// NewFeed starts the worker pool. logger must not be nil.
func NewFeed(q queue, workers, buffer int, timeout time.Duration, logger *log.Logger) *Feed {
	if logger == nil {
		panic("activity.NewFeed: logger is nil")
	}
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 1024
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	f := &Feed{
		queue:   q,
		jobs:    make(chan Activity, buffer),
		timeout: timeout,
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		f.wg.Add(1)
		go f.worker()
	}
	logger.Infof("activity feed started, workers: %d, buffer: %d, timeout: %v", workers, buffer, timeout)
	return f
}

// Publish hands the record to the pool without blocking. It reports whether
// the record was accepted; records published after Close are rejected.
func (f *Feed) Publish(a Activity) (accepted bool) {
	if f.stopped.Load() {
		return false
	}
	// Close can still win the race with the check above; a send on the
	// closed channel is converted into a rejection.
	defer func() {
		if recover() != nil {
			accepted = false
		}
	}()
	select {
	case f.jobs <- a:
		return true
	default:
		n := f.dropped.Add(1)
		f.logger.WithFields(log.Fields{"kind": a.Kind, "dropped_total": n}).Warn("activity buffer saturated; record dropped")
		return false
	}
}

// Dropped returns how many records were discarded due to saturation.
func (f *Feed) Dropped() int64 { return f.dropped.Load() }

// Close stops accepting records and waits for in-flight publishes.
func (f *Feed) Close() {
	f.closed.Do(func() {
		f.stopped.Store(true)
		close(f.jobs)
	})
	f.wg.Wait()
}

func (f *Feed) worker() {
	defer f.wg.Done()
	for a := range f.jobs {
		data, err := json.Marshal(a)
		if err != nil {
			f.logger.Errorf("activity marshal failed: %v", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		_, err = f.queue.EnqueueMessage(ctx, string(data), nil)
		cancel()
		if err != nil {
			f.logger.WithFields(log.Fields{"kind": a.Kind, "user": a.UserID}).Errorf("activity enqueue failed: %v", err)
		}
	}
}
