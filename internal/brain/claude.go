package brain

import (
	"encoding/json"
	"fmt"

	"github.com/abelbrown/viralscope/internal/logging"
)

const (
	claudeEndpoint   = "https://api.anthropic.com/v1/messages"
	claudeModel      = "claude-sonnet-4-5-20250929"
	anthropicVersion = "2023-06-01"
)

type claudeRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
}

// buildClaudeBody sends a single user message. The system instruction is
// folded in ahead of the prompt.
func buildClaudeBody(cfg ProviderConfig, req Request) claudeRequest {
	content := req.UserPrompt
	if req.SystemPrompt != "" {
		content = req.SystemPrompt + "\n\n" + req.UserPrompt
	}
	return claudeRequest{
		Model:     cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: content}},
		MaxTokens: maxTokensOr(req.MaxTokens, defaultMaxTokens),
	}
}

// claudeText extracts content[0].text
func claudeText(cfg ProviderConfig, body []byte) (string, error) {
	var result claudeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if result.StopReason == "max_tokens" {
		logging.Warn("Response truncated due to max tokens",
			"provider", cfg.Kind,
			"model", result.Model)
	}
	if len(result.Content) == 0 {
		return "", nil
	}
	return result.Content[0].Text, nil
}
