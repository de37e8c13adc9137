package repository

import (
	"context"

	"gitea-reporter/internal/model"
	"gitea-reporter/pkg/utils"

	"gorm.io/gorm"
)

// ConfigRepository persists the connection records tasks reference: the
// source host, the delivery webhook and the optional AI provider.
type ConfigRepository interface {
	FindGiteaByID(ctx context.Context, id uint) (*model.GiteaConfig, error)
	ListGitea(ctx context.Context) ([]model.GiteaConfig, error)
	SaveGitea(ctx context.Context, cfg *model.GiteaConfig, opts ...utils.DBOption) error
	DeleteGitea(ctx context.Context, id uint) error

	ListNotify(ctx context.Context) ([]model.NotifyConfig, error)
	SaveNotify(ctx context.Context, cfg *model.NotifyConfig, opts ...utils.DBOption) error
	DeleteNotify(ctx context.Context, id uint) error

	ListAI(ctx context.Context) ([]model.AIConfig, error)
	SaveAI(ctx context.Context, cfg *model.AIConfig, opts ...utils.DBOption) error
	DeleteAI(ctx context.Context, id uint) error
}

type configRepository struct {
	db *gorm.DB
}

func NewConfigRepository(db *gorm.DB) ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) FindGiteaByID(ctx context.Context, id uint) (*model.GiteaConfig, error) {
	var cfg model.GiteaConfig
	if err := r.db.WithContext(ctx).First(&cfg, id).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *configRepository) ListGitea(ctx context.Context) ([]model.GiteaConfig, error) {
	var cfgs []model.GiteaConfig
	if err := r.db.WithContext(ctx).Order("id").Find(&cfgs).Error; err != nil {
		return nil, err
	}
	return cfgs, nil
}

func (r *configRepository) SaveGitea(ctx context.Context, cfg *model.GiteaConfig, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(cfg).Error
}

func (r *configRepository) DeleteGitea(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.GiteaConfig{}, id).Error
}

func (r *configRepository) ListNotify(ctx context.Context) ([]model.NotifyConfig, error) {
	var cfgs []model.NotifyConfig
	if err := r.db.WithContext(ctx).Order("id").Find(&cfgs).Error; err != nil {
		return nil, err
	}
	return cfgs, nil
}

func (r *configRepository) SaveNotify(ctx context.Context, cfg *model.NotifyConfig, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(cfg).Error
}

func (r *configRepository) DeleteNotify(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.NotifyConfig{}, id).Error
}

func (r *configRepository) ListAI(ctx context.Context) ([]model.AIConfig, error) {
	var cfgs []model.AIConfig
	if err := r.db.WithContext(ctx).Order("id").Find(&cfgs).Error; err != nil {
		return nil, err
	}
	return cfgs, nil
}

func (r *configRepository) SaveAI(ctx context.Context, cfg *model.AIConfig, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(cfg).Error
}

func (r *configRepository) DeleteAI(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.AIConfig{}, id).Error
}
