package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"gitea-reporter/config"
	"gitea-reporter/internal/dto"
	"gitea-reporter/internal/model"
	"gitea-reporter/internal/repository"
	"gitea-reporter/pkg/logger"
	"gitea-reporter/pkg/utils"
)

// claimStaleness is the window during which an existing claim blocks other
// workers. A crashed worker's claim expires after it and any later fire may
// reclaim the task.
const claimStaleness = 50 * time.Second

// TaskExecutor runs one full report pipeline for a task: claim, aggregate,
// render, optionally summarize, deliver, and record the outcome.
type TaskExecutor interface {
	Execute(ctx context.Context, taskID uint) error
}

type taskExecutor struct {
	cfg          *config.Config
	log          *logger.Logger
	taskRepo     repository.TaskRepository
	taskLogRepo  repository.TaskLogRepository
	giteaFactory repository.GiteaRepositoryFactory
	aiRepo       repository.AIRepository
	webhookRepo  repository.WebhookRepository
	builder      ReportBuilder
}

func NewTaskExecutor(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	builder ReportBuilder,
) TaskExecutor {
	return &taskExecutor{
		cfg:          cfg,
		log:          log,
		taskRepo:     repo.TaskRepo,
		taskLogRepo:  repo.TaskLogRepo,
		giteaFactory: repo.GiteaFactory,
		aiRepo:       repo.AIRepo,
		webhookRepo:  repo.WebhookRepo,
		builder:      builder,
	}
}

func (t *taskExecutor) Execute(ctx context.Context, taskID uint) (err error) {
	now := time.Now()
	claimed, err := t.taskRepo.ClaimRun(ctx, taskID, now, now.Add(-claimStaleness))
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to claim task run", logger.ErrorField(err), logger.IntField("task_id", int(taskID)))
		return fmt.Errorf("failed to claim task run: %w", err)
	}
	if !claimed {
		// Another worker holds this run, or a recent run just completed.
		t.log.DebugContext(ctx, "Task run already claimed", logger.IntField("task_id", int(taskID)))
		return nil
	}

	var taskLog *model.TaskLog
	defer func() {
		if r := recover(); r != nil {
			t.finalizeFailure(ctx, taskID, taskLog, fmt.Sprintf("执行异常: %v", r), string(debug.Stack()))
			err = fmt.Errorf("panic during task execution: %v", r)
		}
	}()

	task, err := t.taskRepo.FindByID(ctx, taskID,
		utils.WithPreload("GiteaConfig"),
		utils.WithPreload("NotifyConfig"),
		utils.WithPreload("AIConfig"),
	)
	if err != nil {
		t.finalizeFailure(ctx, taskID, nil, "初始化异常: "+err.Error(), "")
		return fmt.Errorf("failed to load task: %w", err)
	}

	taskLog = &model.TaskLog{
		TaskID:  task.ID,
		Status:  model.StatusRunning,
		Summary: "任务执行中...",
	}
	if err := t.taskLogRepo.Create(ctx, taskLog); err != nil {
		taskLog = nil
		t.finalizeFailure(ctx, taskID, nil, "初始化异常: "+err.Error(), "")
		return fmt.Errorf("failed to create task log: %w", err)
	}

	t.log.InfoContext(ctx, "Executing report task",
		logger.IntField("task_id", int(task.ID)),
		logger.StringField("scope", string(task.ScopeType)),
	)

	gitea := t.giteaFactory(task.GiteaConfig.BaseURL, task.GiteaConfig.Token)
	result, err := t.builder.Build(ctx, task, gitea)
	if err != nil {
		t.finalizeFailure(ctx, taskID, taskLog, "执行异常: "+err.Error(), err.Error())
		return fmt.Errorf("failed to build report: %w", err)
	}

	markdown := result.Markdown
	if task.IsAIEnabled && task.AIConfig != nil {
		// Prompt priority: task override, then the provider config's prompt;
		// the repository falls back to its built-in default.
		systemPrompt := task.AISystemPrompt
		if systemPrompt == "" {
			systemPrompt = task.AIConfig.SystemPrompt
		}
		summary := t.aiRepo.Summarize(ctx, dto.SummarizeParam{
			APIBase:      task.AIConfig.APIBase,
			APIKey:       task.AIConfig.APIKey,
			Model:        task.AIConfig.Model,
			SystemPrompt: systemPrompt,
			Content:      markdown,
		})
		markdown = summary + "\n\n" + markdown
	}

	delivered := t.webhookRepo.SendMarkdown(ctx, task.NotifyConfig.WebhookURL, markdown)

	taskLog.CommitCount = result.CommitCount
	taskLog.LogDetails = truncateRunes(markdown, model.MaxLogDetailChars)
	taskLog.RawData = result.RawData
	if delivered {
		taskLog.Status = model.StatusSuccess
		taskLog.Summary = fmt.Sprintf("执行完成：共统计到 %d 个提交", result.CommitCount)
	} else {
		taskLog.Status = model.StatusFailed
		taskLog.Summary = "推送 Webhook 失败"
	}
	if err := t.taskLogRepo.Update(ctx, taskLog); err != nil {
		t.log.ErrorContext(ctx, "Failed to finalize task log", logger.ErrorField(err), logger.IntField("task_id", int(taskID)))
		return fmt.Errorf("failed to finalize task log: %w", err)
	}

	t.log.InfoContext(ctx, "Report task finished",
		logger.IntField("task_id", int(task.ID)),
		logger.StringField("status", string(taskLog.Status)),
		logger.IntField("commit_count", result.CommitCount),
	)
	return nil
}

// finalizeFailure transitions the run's log row to failed, or creates a
// failed row directly when the failure happened before the row existed.
func (t *taskExecutor) finalizeFailure(ctx context.Context, taskID uint, taskLog *model.TaskLog, summary, details string) {
	if taskLog != nil {
		taskLog.Status = model.StatusFailed
		taskLog.Summary = summary
		taskLog.LogDetails = truncateRunes(details, model.MaxLogDetailChars)
		if err := t.taskLogRepo.Update(ctx, taskLog); err != nil {
			t.log.ErrorContext(ctx, "Failed to record task failure", logger.ErrorField(err), logger.IntField("task_id", int(taskID)))
		}
		return
	}

	failed := &model.TaskLog{
		TaskID:     taskID,
		Status:     model.StatusFailed,
		Summary:    summary,
		LogDetails: truncateRunes(details, model.MaxLogDetailChars),
	}
	if err := t.taskLogRepo.Create(ctx, failed); err != nil {
		t.log.ErrorContext(ctx, "Failed to record task failure", logger.ErrorField(err), logger.IntField("task_id", int(taskID)))
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
