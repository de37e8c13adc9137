package service

import (
	"gitea-reporter/config"
	"gitea-reporter/internal/repository"
	"gitea-reporter/pkg/logger"
)

type Service struct {
	SchedulerService SchedulerService
	TaskExecutor     TaskExecutor
	ReportBuilder    ReportBuilder
}

func NewService(cfg *config.Config, log *logger.Logger, repo *repository.Repository) *Service {
	builder := NewReportBuilder(log)
	executor := NewTaskExecutor(cfg, log, repo, builder)
	scheduler := NewSchedulerService(cfg, log, repo.TaskRepo, executor)

	return &Service{
		SchedulerService: scheduler,
		TaskExecutor:     executor,
		ReportBuilder:    builder,
	}
}
