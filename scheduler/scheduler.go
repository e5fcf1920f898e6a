package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrUnknownTask is returned by RunNow for a name that was never added.
var ErrUnknownTask = errors.New("scheduler: unknown task")

// TaskFn is the function signature for scheduled tasks. The context is
// cancelled when the scheduler stops or the task is removed.
type TaskFn func(ctx context.Context) error

// TaskInfo is a snapshot of one periodic task.
type TaskInfo struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval,omitempty"`
	Spec      string        `json:"spec,omitempty"`
	Runs      int64         `json:"runs"`
	LastRun   time.Time     `json:"last_run"`
	LastError string        `json:"last_error,omitempty"`
}

// Scheduler runs periodic maintenance tasks such as the leaderboard
// refresh. Runs of one task never overlap.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[string]*task
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

type task struct {
	name     string
	interval time.Duration
	spec     string
	fn       TaskFn
	cancel   context.CancelFunc
	runMu    sync.Mutex // serialises runs

	mu      sync.Mutex // guards the fields below
	runs    int64
	lastRun time.Time
	lastErr string
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:  make(map[string]*task),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// register installs t under its name, replacing any task of the same name,
// and returns the context the task's loop must watch.
func (s *Scheduler) register(t *task) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.tasks[t.name]; ok {
		old.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	t.cancel = cancel
	s.tasks[t.name] = t
	return ctx
}

// AddTicker registers a task to run on a fixed interval.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	t := &task{name: name, interval: interval, fn: fn}
	ctx := s.register(t)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.run(ctx, t)
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

// AddCron registers a task on a standard five-field cron spec such as
// "0 8 * * *" or a descriptor such as "@hourly". Times are evaluated in UTC.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddCron(name, spec string, fn TaskFn) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("scheduler: task %s: %w", name, err)
	}
	t := &task{name: name, spec: spec, fn: fn}
	ctx := s.register(t)

	go func() {
		for {
			wait := time.Until(sched.Next(time.Now().UTC()))
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
				s.run(ctx, t)
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.String("spec", spec))
	return nil
}

// RunNow runs the named task immediately on the caller's goroutine and
// returns its error.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return s.run(ctx, t)
}

func (s *Scheduler) run(ctx context.Context, t *task) (err error) {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked",
				zap.String("task", t.name),
				zap.Any("recover", r))
			err = fmt.Errorf("task %s panicked: %v", t.name, r)
		}
		t.mu.Lock()
		t.runs++
		t.lastRun = time.Now()
		t.lastErr = ""
		if err != nil {
			t.lastErr = err.Error()
		}
		t.mu.Unlock()
	}()

	if err = t.fn(ctx); err != nil {
		s.logger.Warn("scheduler task failed", zap.String("task", t.name), zap.Error(err))
	}
	return err
}

// Remove stops and removes a task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		t.cancel()
		delete(s.tasks, name)
	}
}

// Stop stops all tasks.
func (s *Scheduler) Stop() {
	s.cancel()
}

// ListTickers returns the names of all registered tasks, sorted.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tasks returns a snapshot of every registered task, sorted by name.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	list := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		list = append(list, t)
	}
	s.mu.Unlock()

	out := make([]TaskInfo, 0, len(list))
	for _, t := range list {
		t.mu.Lock()
		out = append(out, TaskInfo{
			Name:      t.name,
			Interval:  t.interval,
			Spec:      t.spec,
			Runs:      t.runs,
			LastRun:   t.lastRun,
			LastError: t.lastErr,
		})
		t.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
