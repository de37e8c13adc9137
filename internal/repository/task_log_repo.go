package repository

import (
	"context"

	"gitea-reporter/internal/model"
	"gitea-reporter/pkg/utils"

	"gorm.io/gorm"
)

type TaskLogRepository interface {
	Create(ctx context.Context, log *model.TaskLog, opts ...utils.DBOption) error
	Update(ctx context.Context, log *model.TaskLog, opts ...utils.DBOption) error
	FindByTask(ctx context.Context, taskID uint, limit int, opts ...utils.DBOption) ([]model.TaskLog, error)
}

type taskLogRepository struct {
	db *gorm.DB
}

func NewTaskLogRepository(db *gorm.DB) TaskLogRepository {
	return &taskLogRepository{db: db}
}

func (r *taskLogRepository) Create(ctx context.Context, log *model.TaskLog, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(log).Error
}

func (r *taskLogRepository) Update(ctx context.Context, log *model.TaskLog, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(log).Error
}

func (r *taskLogRepository) FindByTask(ctx context.Context, taskID uint, limit int, opts ...utils.DBOption) ([]model.TaskLog, error) {
	var logs []model.TaskLog
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("task_id = ?", taskID).
		Order("created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
