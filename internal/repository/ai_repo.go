package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"gitea-reporter/config"
	"gitea-reporter/internal/dto"
	"gitea-reporter/pkg/httpclient"
	"gitea-reporter/pkg/logger"
)

const defaultSystemPrompt = "你是一个资深软件工程师，请根据提供的代码提交记录、PR和Issue，" +
	"总结出一份简洁、专业的日报。重点突出重要的变更和待办事项。" +
	"请直接返回总结后的 Markdown 内容，不要包含多余的解释。"

// Some providers wrap their reasoning in <think> tags inside the content;
// that block is stripped before use.
var thinkBlockPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// AIRepository summarizes a rendered report through an OpenAI-compatible
// chat completion endpoint. Summarize never fails: every error class is
// converted into a human-readable string that is used as the summary.
type AIRepository interface {
	Summarize(ctx context.Context, param dto.SummarizeParam) string
}

type openAIRepository struct {
	cfg    *config.Config
	logger *logger.Logger

	// newClient is swappable in tests.
	newClient func(baseURL, apiKey string) httpclient.HTTPClient
}

func NewAIRepository(cfg *config.Config, log *logger.Logger) AIRepository {
	return &openAIRepository{
		cfg:    cfg,
		logger: log,
		newClient: func(baseURL, apiKey string) httpclient.HTTPClient {
			return httpclient.New(log, baseURL, cfg.AI.BaseTimeout, apiKey)
		},
	}
}

func (r *openAIRepository) Summarize(ctx context.Context, param dto.SummarizeParam) string {
	systemPrompt := param.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	baseURL := strings.TrimRight(param.APIBase, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return fmt.Sprintf("AI 总结出错: API Base URL 必须以 http:// 或 https:// 开头。当前值: %s", param.APIBase)
	}

	// A loopback base URL inside a container points at the container
	// itself, a common pitfall with locally hosted models.
	if strings.Contains(baseURL, "localhost") || strings.Contains(baseURL, "127.0.0.1") {
		r.logger.WarnContext(ctx, "AI API base URL contains a loopback address; in Docker this refers to the container, not the host",
			logger.StringField("api_base", baseURL),
		)
	}

	body := dto.ChatCompletionRequest{
		Model: param.Model,
		Messages: []dto.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "请总结以下内容：\n\n" + param.Content},
		},
	}

	r.logger.DebugContext(ctx, "Requesting AI summary",
		logger.StringField("api_base", baseURL),
		logger.StringField("model", param.Model),
	)

	var result dto.ChatCompletionResponse
	client := r.newClient(baseURL, param.APIKey)
	resp, err := client.Post(ctx, "/chat/completions", body, nil, &result)
	if err != nil {
		if isTimeout(err) {
			return fmt.Sprintf("AI 总结出错: 请求超时，模型响应过慢或网络不通。详情: %v", err)
		}
		return fmt.Sprintf("AI 总结出错: 网络连接失败，请检查 API Base URL 是否正确且可访问。详情: %v", err)
	}
	if !resp.IsSuccess() {
		return fmt.Sprintf("AI 总结出错: API 返回了错误状态码: %d。内容: %s", resp.StatusCode, string(resp.Body))
	}

	if len(result.Choices) == 0 {
		return "AI 返回了空内容，请检查模型配置或提示词。"
	}

	content := strings.TrimSpace(thinkBlockPattern.ReplaceAllString(result.Choices[0].Message.Content, ""))
	if content == "" {
		return "AI 返回了空内容，请检查模型配置或提示词。"
	}
	return content
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
