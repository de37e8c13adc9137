package repository

import (
	"context"
	"time"

	"gitea-reporter/internal/model"
	"gitea-reporter/pkg/utils"

	"gorm.io/gorm"
)

type TaskRepository interface {
	FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.ReportTask, error)
	FindActive(ctx context.Context, opts ...utils.DBOption) ([]model.ReportTask, error)
	GetAll(ctx context.Context, opts ...utils.DBOption) ([]model.ReportTask, error)
	Create(ctx context.Context, task *model.ReportTask, opts ...utils.DBOption) error
	Update(ctx context.Context, task *model.ReportTask, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
	ClaimRun(ctx context.Context, taskID uint, now, staleBefore time.Time) (bool, error)
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.ReportTask, error) {
	var task model.ReportTask
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) FindActive(ctx context.Context, opts ...utils.DBOption) ([]model.ReportTask, error) {
	var tasks []model.ReportTask
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("is_active = ?", true).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) GetAll(ctx context.Context, opts ...utils.DBOption) ([]model.ReportTask, error) {
	var tasks []model.ReportTask
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Order("id").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) Create(ctx context.Context, task *model.ReportTask, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(task).Error
}

func (r *taskRepository) Update(ctx context.Context, task *model.ReportTask, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(task).Error
}

func (r *taskRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.ReportTask{}, id).Error
}

// ClaimRun is the distributed-lock substitute: a single atomic conditional
// update of last_run_at. Zero affected rows means another worker holds the
// current run (or a run completed within the staleness window) and the
// caller must abort silently. There is deliberately no read-then-write here.
func (r *taskRepository) ClaimRun(ctx context.Context, taskID uint, now, staleBefore time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.ReportTask{}).
		Where("id = ? AND is_active = ?", taskID, true).
		Where("last_run_at IS NULL OR last_run_at < ?", staleBefore).
		Update("last_run_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
