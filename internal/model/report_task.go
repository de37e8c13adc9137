package model

import (
	"time"

	"gorm.io/datatypes"
)

type ScopeType string

const (
	ScopeAll      ScopeType = "all"
	ScopeOwner    ScopeType = "owner"
	ScopeSpecific ScopeType = "specific"
	ScopeUser     ScopeType = "user"
)

// IsRepoScope reports whether the scope aggregates repository data rather
// than a user activity feed.
func (s ScopeType) IsRepoScope() bool {
	return s != ScopeUser
}

type ReportTask struct {
	ID             uint           `gorm:"primaryKey"`
	Name           string         `gorm:"type:varchar(255);not null"`
	CronExpression string         `gorm:"type:varchar(100);not null"`
	ScopeType      ScopeType      `gorm:"type:varchar(50);not null"`
	TargetRepos    datatypes.JSON `gorm:"type:jsonb"`
	ReportDays     int            `gorm:"default:1"`
	IsAIEnabled    bool           `gorm:"default:false"`
	AISystemPrompt string         `gorm:"type:text"`
	IsActive       bool           `gorm:"default:true"`

	// LastRunAt doubles as the distributed claim marker, see
	// TaskRepository.ClaimRun.
	LastRunAt *time.Time

	GiteaConfigID  uint  `gorm:"not null"`
	NotifyConfigID uint  `gorm:"not null"`
	AIConfigID     *uint

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	GiteaConfig  GiteaConfig  `gorm:"foreignKey:GiteaConfigID"`
	NotifyConfig NotifyConfig `gorm:"foreignKey:NotifyConfigID"`
	AIConfig     *AIConfig    `gorm:"foreignKey:AIConfigID"`
	Logs         []TaskLog    `gorm:"foreignKey:TaskID"`
}

func (ReportTask) TableName() string {
	return "report_tasks"
}
