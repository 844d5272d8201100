package brain

import (
	"encoding/json"
	"fmt"

	"github.com/abelbrown/viralscope/internal/logging"
)

const (
	openAIEndpoint = "https://api.openai.com/v1/chat/completions"
	openAIModel    = "gpt-4o-mini"
)

// Chat-completions wire format, shared by OpenAI and Grok.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
}

func buildChatBody(cfg ProviderConfig, req Request) chatRequest {
	return chatRequest{
		Model: cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: temperatureOr(req.Temperature, defaultTemperature),
		MaxTokens:   maxTokensOr(req.MaxTokens, defaultMaxTokens),
	}
}

// chatText extracts choices[0].message.content
func chatText(cfg ProviderConfig, body []byte) (string, error) {
	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil
	}

	choice := result.Choices[0]
	if choice.FinishReason == "length" {
		logging.Warn("Response truncated due to max tokens",
			"provider", cfg.Kind,
			"model", result.Model,
			"content_length", len(choice.Message.Content))
	}
	return choice.Message.Content, nil
}
