package dto

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// SummarizeParam carries the per-task provider settings for one
// summarization call.
type SummarizeParam struct {
	APIBase      string
	APIKey       string
	Model        string
	SystemPrompt string
	Content      string
}
