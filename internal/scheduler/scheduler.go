package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is run immediately on start and then every Interval
type Task interface {
	Run(ctx context.Context) error
	Interval() time.Duration
	Name() string
}

// Finalizer is implemented by tasks that must run once more on shutdown,
// e.g. to persist a last snapshot
type Finalizer interface {
	Finalize(ctx context.Context) error
}

// Scheduler manages multiple scheduled tasks
type Scheduler struct {
	ctx          context.Context
	cancel       context.CancelFunc
	tasks        []Task
	wg           sync.WaitGroup
	finalTimeout time.Duration
}

// New creates a new task scheduler
func New(ctx context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		ctx:          ctx,
		cancel:       cancel,
		tasks:        make([]Task, 0),
		finalTimeout: 5 * time.Second,
	}
}

// AddTask adds a task to the scheduler
func (s *Scheduler) AddTask(task Task) {
	s.tasks = append(s.tasks, task)
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	slog.Info("Starting task scheduler")
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runTask(task)
	}
	slog.Info("Task scheduler started", "task_count", len(s.tasks))
}

// Stop stops all tasks, waits for them to return and then runs finalizers
func (s *Scheduler) Stop() {
	slog.Info("Stopping task scheduler")
	s.cancel()
	s.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), s.finalTimeout)
	defer cancel()
	for _, task := range s.tasks {
		f, ok := task.(Finalizer)
		if !ok {
			continue
		}
		if err := f.Finalize(ctx); err != nil {
			slog.Error("Error finalizing task", "task", task.Name(), "error", err)
		}
	}
	slog.Info("Task scheduler stopped")
}

// runTask runs a single task on its schedule
func (s *Scheduler) runTask(task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval())
	defer ticker.Stop()

	s.runOnce(task)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(task)
		}
	}
}

func (s *Scheduler) runOnce(task Task) {
	start := time.Now()
	if err := task.Run(s.ctx); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		slog.Error("Error running task", "task", task.Name(), "error", err)
		return
	}
	slog.Debug("Task completed", "task", task.Name(), "duration", time.Since(start))
}
