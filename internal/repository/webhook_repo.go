package repository

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"gitea-reporter/config"
	"gitea-reporter/internal/dto"
	"gitea-reporter/pkg/httpclient"
	"gitea-reporter/pkg/logger"
)

// maxChunkBytes is the WeCom markdown payload limit.
const maxChunkBytes = 4000

// WebhookRepository delivers a markdown document to a webhook URL in
// byte-bounded chunks. Delivery is best effort: every chunk is attempted
// once, the result is the AND of the per-chunk outcomes.
type WebhookRepository interface {
	SendMarkdown(ctx context.Context, webhookURL, content string) bool
}

type webhookRepository struct {
	httpClient httpclient.HTTPClient
	logger     *logger.Logger
}

func NewWebhookRepository(cfg *config.Config, log *logger.Logger) WebhookRepository {
	return &webhookRepository{
		httpClient: httpclient.New(log, "", cfg.Gitea.BaseTimeout, ""),
		logger:     log,
	}
}

func (r *webhookRepository) SendMarkdown(ctx context.Context, webhookURL, content string) bool {
	chunks := splitMarkdown(content, maxChunkBytes)

	success := true
	for i, chunk := range chunks {
		body := chunk
		if len(chunks) > 1 {
			body = fmt.Sprintf("%s\n\n(续 %d/%d)", chunk, i+1, len(chunks))
		}

		resp, err := r.httpClient.Post(ctx, webhookURL, dto.NewMarkdownWebhookPayload(body), nil, nil)
		if err != nil {
			r.logger.WarnContext(ctx, "Webhook chunk delivery failed",
				logger.IntField("chunk", i+1),
				logger.ErrorField(err),
			)
			success = false
			continue
		}
		if resp.StatusCode != http.StatusOK {
			r.logger.WarnContext(ctx, "Webhook chunk rejected",
				logger.IntField("chunk", i+1),
				logger.IntField("status", resp.StatusCode),
			)
			success = false
		}
	}
	return success
}

// splitMarkdown splits content into line-preserving chunks of at most
// maxBytes UTF-8 bytes each. A single line longer than the limit is kept
// whole in its own chunk rather than split mid-line.
func splitMarkdown(content string, maxBytes int) []string {
	if len(content) <= maxBytes {
		return []string{content}
	}

	var chunks []string
	var current strings.Builder
	for _, line := range splitAfterLines(content) {
		if current.Len()+len(line) > maxBytes && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitAfterLines splits content into lines keeping the trailing newline on
// each line.
func splitAfterLines(content string) []string {
	lines := strings.SplitAfter(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
