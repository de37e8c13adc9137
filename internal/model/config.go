package model

import "time"

// GiteaConfig holds the source-host endpoint and credential a task reads
// activity from.
type GiteaConfig struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	BaseURL   string    `gorm:"type:varchar(512);not null"`
	Token     string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (GiteaConfig) TableName() string {
	return "gitea_configs"
}

// NotifyConfig holds the webhook a rendered report is delivered to.
type NotifyConfig struct {
	ID         uint      `gorm:"primaryKey"`
	Name       string    `gorm:"type:varchar(255);not null"`
	WebhookURL string    `gorm:"type:varchar(512);not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (NotifyConfig) TableName() string {
	return "notify_configs"
}

// AIConfig holds an OpenAI-compatible provider used for optional report
// summarization.
type AIConfig struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"type:varchar(255);not null"`
	APIBase      string    `gorm:"type:varchar(512);default:'https://api.openai.com/v1'"`
	APIKey       string    `gorm:"type:varchar(255);not null"`
	Model        string    `gorm:"type:varchar(255);default:'gpt-3.5-turbo'"`
	SystemPrompt string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (AIConfig) TableName() string {
	return "ai_configs"
}
