package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitea-reporter/config"
	"gitea-reporter/internal/repository"
	"gitea-reporter/pkg/logger"
	"gitea-reporter/pkg/utils"

	"github.com/robfig/cron/v3"
)

// misfireGrace drops fires that start more than this long after their
// scheduled time (e.g. after a suspended process resumes) instead of
// running them late.
const misfireGrace = 60 * time.Second

// SchedulerService owns the cron trigger per task. It is an explicitly
// constructed instance held by the composition root; the claim protocol in
// the executor is what keeps multiple replicas from double-running a task.
type SchedulerService interface {
	Start()
	Stop()
	UpsertTask(taskID uint, cronExpr string) error
	RemoveTask(taskID uint)
	RunNow(taskID uint)
	LoadActiveTasks(ctx context.Context) error
}

type schedulerService struct {
	cfg      *config.Config
	log      *logger.Logger
	taskRepo repository.TaskRepository
	executor TaskExecutor

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[uint]cron.EntryID
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	taskRepo repository.TaskRepository,
	executor TaskExecutor,
) SchedulerService {
	cronLog := cronLogger{log: log}
	return &schedulerService{
		cfg:      cfg,
		log:      log,
		taskRepo: taskRepo,
		executor: executor,
		// SkipIfStillRunning coalesces overlapping fires of the same task
		// within this process into a single run.
		cron:    cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		entries: make(map[uint]cron.EntryID),
	}
}

func (s *schedulerService) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

func (s *schedulerService) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// UpsertTask replaces any existing trigger for the task with a new one.
func (s *schedulerService) UpsertTask(taskID uint, cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[taskID]; ok {
		s.cron.Remove(id)
		delete(s.entries, taskID)
	}

	id, err := s.cron.AddFunc(cronExpr, func() { s.fire(taskID) })
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	s.entries[taskID] = id

	s.log.Info("Registered task trigger",
		logger.IntField("task_id", int(taskID)),
		logger.StringField("cron", cronExpr),
	)
	return nil
}

// RemoveTask is a no-op when the task has no trigger.
func (s *schedulerService) RemoveTask(taskID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[taskID]; ok {
		s.cron.Remove(id)
		delete(s.entries, taskID)
		s.log.Info("Removed task trigger", logger.IntField("task_id", int(taskID)))
	}
}

// RunNow triggers a one-shot execution outside the periodic schedule. It
// goes through the same claim protocol as a scheduled fire and is fully
// independent of any periodic run in flight.
func (s *schedulerService) RunNow(taskID uint) {
	s.log.Info("Manual task run requested", logger.IntField("task_id", int(taskID)))
	utils.GoSafe(func() {
		s.run(taskID)
	})
}

// LoadActiveTasks registers triggers for every active task, called once at
// startup.
func (s *schedulerService) LoadActiveTasks(ctx context.Context) error {
	tasks, err := s.taskRepo.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active tasks: %w", err)
	}

	registered := 0
	for _, task := range tasks {
		if err := s.UpsertTask(task.ID, task.CronExpression); err != nil {
			s.log.Error("Failed to register task trigger",
				logger.ErrorField(err),
				logger.IntField("task_id", int(task.ID)),
			)
			continue
		}
		registered++
	}

	s.log.Info("Registered active task triggers", logger.IntField("count", registered))
	return nil
}

func (s *schedulerService) fire(taskID uint) {
	s.mu.Lock()
	id, ok := s.entries[taskID]
	s.mu.Unlock()

	if ok {
		// Entry.Prev is the scheduled activation time of this invocation.
		entry := s.cron.Entry(id)
		if misfired(entry.Prev, time.Now()) {
			s.log.Warn("Dropping misfired task run",
				logger.IntField("task_id", int(taskID)),
				logger.StringField("scheduled_at", entry.Prev.Format(time.RFC3339)),
			)
			return
		}
	}

	s.run(taskID)
}

// misfired reports whether a fire scheduled at scheduledAt started too late
// to still run. A zero scheduledAt means the entry has not fired through the
// cron loop yet and is never treated as late.
func misfired(scheduledAt, now time.Time) bool {
	return !scheduledAt.IsZero() && now.Sub(scheduledAt) > misfireGrace
}

func (s *schedulerService) run(taskID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Scheduler.TimeoutDuration)
	defer cancel()

	if err := s.executor.Execute(ctx, taskID); err != nil {
		s.log.ErrorContext(ctx, "Task execution failed",
			logger.ErrorField(err),
			logger.IntField("task_id", int(taskID)),
		)
	}
}

// cronLogger adapts our zap wrapper to the cron.Logger interface.
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, logger.Field("details", keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, logger.ErrorField(err), logger.Field("details", keysAndValues))
}
