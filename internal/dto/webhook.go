package dto

// MarkdownWebhookPayload is the WeCom-style body posted per chunk.
type MarkdownWebhookPayload struct {
	MsgType  string          `json:"msgtype"`
	Markdown MarkdownContent `json:"markdown"`
}

type MarkdownContent struct {
	Content string `json:"content"`
}

func NewMarkdownWebhookPayload(content string) MarkdownWebhookPayload {
	return MarkdownWebhookPayload{
		MsgType:  "markdown",
		Markdown: MarkdownContent{Content: content},
	}
}
