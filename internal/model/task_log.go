package model

import (
	"time"

	"gorm.io/datatypes"
)

type TaskLogStatus string

const (
	StatusRunning TaskLogStatus = "running"
	StatusSuccess TaskLogStatus = "success"
	StatusFailed  TaskLogStatus = "failed"
)

// MaxLogDetailChars bounds the rendered report (or stack trace) persisted
// with an execution log.
const MaxLogDetailChars = 5000

type TaskLog struct {
	ID          uint          `gorm:"primaryKey"`
	TaskID      uint          `gorm:"not null;index"`
	Status      TaskLogStatus `gorm:"type:varchar(50);not null"`
	CommitCount int           `gorm:"default:0"`
	Summary     string        `gorm:"type:text"`
	LogDetails  string        `gorm:"type:text"`
	RawData     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time     `gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime"`
}

func (TaskLog) TableName() string {
	return "task_logs"
}
