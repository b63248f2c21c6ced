// Package task tracks background jobs started from HTTP handlers so their
// outcome can be polled later.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lvow2022/research-assistant/pkg/log"
)

var ErrTaskNotFound = errors.New("task not found")

type Status int

const (
	Pending Status = iota
	InProgress
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Type string

const (
	ResearchUpdate Type = "research_update"
	GapFill        Type = "gap_fill"
)

// Func is the body of a job. Its result is kept for polling.
type Func func(ctx context.Context) (any, error)

// Task is a snapshot of one job.
type Task struct {
	ID     string    `json:"id"`
	Type   Type      `json:"type"`
	Status Status    `json:"status"`
	Result any       `json:"result,omitempty"`
	Error  string    `json:"error,omitempty"`
	Ctime  time.Time `json:"ctime"`
	Utime  time.Time `json:"utime"`
}

type Center interface {
	// Gen registers a job and runs it in the background.
	Gen(typ Type, fn Func) (string, error)
	Get(id string) (Task, error)
	// Wait blocks until every started job has returned.
	Wait()
}

type center struct {
	mu      sync.RWMutex
	tasks   map[string]*Task
	wg      sync.WaitGroup
	timeout time.Duration
	ttl     time.Duration
}

// NewCenter keeps finished tasks for ttl; each job runs with timeout.
func NewCenter(timeout, ttl time.Duration) Center {
	return &center{
		tasks:   make(map[string]*Task),
		timeout: timeout,
		ttl:     ttl,
	}
}

func (c *center) Gen(typ Type, fn Func) (string, error) {
	id, err := generateTaskID()
	if err != nil {
		return "", err
	}
	now := time.Now()
	c.mu.Lock()
	c.evictLocked(now)
	c.tasks[id] = &Task{ID: id, Type: typ, Status: Pending, Ctime: now, Utime: now}
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(id, fn)
	return id, nil
}

func (c *center) run(id string, fn Func) {
	defer c.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.update(id, func(t *Task) { t.Status = InProgress })
	res, err := fn(ctx)
	c.update(id, func(t *Task) {
		if err != nil {
			t.Status = Failed
			t.Error = err.Error()
			return
		}
		t.Status = Completed
		t.Result = res
	})
	if err != nil {
		log.WithError(err).WithField("task", id).Error("background task failed")
	}
}

func (c *center) update(id string, fn func(*Task)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tasks[id]; ok {
		fn(t)
		t.Utime = time.Now()
	}
}

func (c *center) Get(id string) (Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return *t, nil
}

func (c *center) Wait() { c.wg.Wait() }

func (c *center) evictLocked(now time.Time) {
	for id, t := range c.tasks {
		done := t.Status == Completed || t.Status == Failed
		if done && now.Sub(t.Utime) > c.ttl {
			delete(c.tasks, id)
		}
	}
}

func generateTaskID() (string, error) {
	taskID, err := uuid.NewUUID()
	if err != nil {
		return "", fmt.Errorf("failed to generate task ID: %v", err)
	}
	return taskID.String(), nil
}
