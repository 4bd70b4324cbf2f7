// Package tasks runs fire-and-forget jobs on a bounded in-process queue.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"conference-central/logging"
)

const SendConfirmationEmail = "send_confirmation_email"

var (
	ErrQueueFull   = errors.New("task queue is full")
	ErrUnknownTask = errors.New("unknown task")
)

type Params map[string]string

type Handler func(ctx context.Context, params Params) error

type Task struct {
	ID     string
	Name   string
	Params Params
}

// Dispatcher queues tasks and runs them on a fixed pool of workers. Handler
// failures are logged and dropped.
type Dispatcher struct {
	logger  logging.Logger
	queue   chan Task
	workers int

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher(logger logging.Logger, workers, queueSize int) *Dispatcher {
	return &Dispatcher{
		logger:   logger.With("module", "tasks"),
		queue:    make(chan Task, queueSize),
		workers:  workers,
		handlers: make(map[string]Handler),
	}
}

func (d *Dispatcher) Handle(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

func (d *Dispatcher) handler(name string) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[name]
	return h, ok
}

// Enqueue adds a task without blocking and returns its id.
func (d *Dispatcher) Enqueue(ctx context.Context, name string, params Params) (string, error) {
	if _, ok := d.handler(name); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	task := Task{ID: uuid.NewString(), Name: name, Params: params}
	select {
	case d.queue <- task:
		d.logger.Debug(ctx, "task enqueued", "task", name, "id", task.ID)
		return task.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Run processes tasks until ctx is cancelled. Tasks still queued at that
// point are dropped.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case task := <-d.queue:
					d.execute(ctx, task)
				}
			}
		})
	}
	return g.Wait()
}

func (d *Dispatcher) execute(ctx context.Context, task Task) {
	log := d.logger.With("task", task.Name, "id", task.ID)
	h, ok := d.handler(task.Name)
	if !ok {
		log.Error(ctx, "no handler for task")
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error(ctx, "task panicked", "panic", p)
		}
	}()
	if err := h(ctx, task.Params); err != nil {
		log.Error(ctx, "task failed", "err", err)
		return
	}
	log.Info(ctx, "task done")
}
