package repository

import (
	"gitea-reporter/config"
	"gitea-reporter/pkg/cache"
	"gitea-reporter/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	TaskRepo     TaskRepository
	TaskLogRepo  TaskLogRepository
	ConfigRepo   ConfigRepository
	GiteaFactory GiteaRepositoryFactory
	AIRepo       AIRepository
	WebhookRepo  WebhookRepository
}

func NewRepository(cfg *config.Config, inmemCache cache.Cache, db *gorm.DB, log *logger.Logger) *Repository {
	return &Repository{
		TaskRepo:     NewTaskRepository(db),
		TaskLogRepo:  NewTaskLogRepository(db),
		ConfigRepo:   NewConfigRepository(db),
		GiteaFactory: NewGiteaRepositoryFactory(cfg, log, inmemCache),
		AIRepo:       NewAIRepository(cfg, log),
		WebhookRepo:  NewWebhookRepository(cfg, log),
	}
}
