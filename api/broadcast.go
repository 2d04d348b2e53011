package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/ellevenagent/project-dashboard/domain"
)

const publishTimeout = 30 * time.Second

// Broadcaster is the post-commit hook behind every successful mutation
// against the durable backend: it re-reads the full task list and fans it
// out to all sessions. Jobs go through a buffered channel consumed by a
// single worker; a saturated buffer falls back to publishing inline. A
// failed re-fetch is logged and dropped, never rolled back — the write has
// already committed.
type Broadcaster struct {
	store  Storage
	hub    *Hub
	logger *log.Logger

	jobs      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewBroadcaster starts the broadcast worker. The job buffer is tunable via
// BROADCAST_BUFFER.
func NewBroadcaster(store Storage, hub *Hub, logger *log.Logger) *Broadcaster {
	b := &Broadcaster{
		store:  store,
		hub:    hub,
		logger: logger,
		jobs:   make(chan struct{}, envInt("BROADCAST_BUFFER", 64)),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

func (b *Broadcaster) run() {
	defer b.wg.Done()
	for range b.jobs {
		b.publishTasks()
	}
}

// TasksChanged schedules a full-list broadcast. Non-blocking: when the
// buffer is saturated the publish happens inline on the caller.
func (b *Broadcaster) TasksChanged() {
	select {
	case b.jobs <- struct{}{}:
	default:
		b.logger.Warn("broadcast buffer saturated, publishing inline")
		b.publishTasks()
	}
}

func (b *Broadcaster) publishTasks() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	tasks, err := b.store.List(ctx)
	cancel()
	if err != nil {
		b.logger.Errorf("broadcast re-fetch failed: %v", err)
		return
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		b.logger.Errorf("broadcast encode failed: %v", err)
		return
	}
	b.hub.Broadcast(EventTasksUpdate, data)
}

// TaskAssigned emits the clawd:task notification for a newly created task,
// independent of the general broadcast.
func (b *Broadcaster) TaskAssigned(task domain.Task) {
	payload := assignedNotification{
		Task:    task,
		Message: fmt.Sprintf("New task for %s: %s", task.Assignee, task.Title),
	}
	data, err := sonic.Marshal(payload)
	if err != nil {
		b.logger.Errorf("notification encode failed: %v", err)
		return
	}
	b.hub.Broadcast(EventClawdTask, data)
}

// Shutdown stops the worker after draining pending jobs. Intended for tests
// and process teardown.
func (b *Broadcaster) Shutdown() {
	b.closeOnce.Do(func() { close(b.jobs) })
	b.wg.Wait()
}
