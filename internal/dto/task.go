package dto

// Request DTOs for the management API.

type TaskRequest struct {
	Name           string   `json:"name" validate:"required"`
	CronExpression string   `json:"cron_expression" validate:"required"`
	ScopeType      string   `json:"scope_type" validate:"required,oneof=all owner specific user"`
	TargetRepos    []string `json:"target_repos"`
	ReportDays     int      `json:"report_days" validate:"min=1"`
	IsAIEnabled    bool     `json:"is_ai_enabled"`
	AISystemPrompt string   `json:"ai_system_prompt"`
	IsActive       bool     `json:"is_active"`
	GiteaConfigID  uint     `json:"gitea_config_id" validate:"required"`
	NotifyConfigID uint     `json:"notify_config_id" validate:"required"`
	AIConfigID     *uint    `json:"ai_config_id"`
}

type GiteaConfigRequest struct {
	Name    string `json:"name" validate:"required"`
	BaseURL string `json:"base_url" validate:"required,url"`
	Token   string `json:"token" validate:"required"`
}

type NotifyConfigRequest struct {
	Name       string `json:"name" validate:"required"`
	WebhookURL string `json:"webhook_url" validate:"required,url"`
}

type AIConfigRequest struct {
	Name         string `json:"name" validate:"required"`
	APIBase      string `json:"api_base" validate:"required"`
	APIKey       string `json:"api_key" validate:"required"`
	Model        string `json:"model" validate:"required"`
	SystemPrompt string `json:"system_prompt"`
}
