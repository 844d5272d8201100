package brain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/abelbrown/viralscope/internal/logging"
)

const (
	geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiModel    = "gemini-2.5-flash"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// geminiURL appends the model method and the key query parameter
func geminiURL(cfg ProviderConfig) string {
	return fmt.Sprintf("%s/%s:generateContent?key=%s",
		strings.TrimRight(cfg.Endpoint, "/"),
		url.PathEscape(cfg.Model),
		url.QueryEscape(cfg.APIKey))
}

func buildGeminiBody(req Request) geminiRequest {
	text := req.UserPrompt
	if req.SystemPrompt != "" {
		text = req.SystemPrompt + "\n\n" + req.UserPrompt
	}
	return geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     temperatureOr(req.Temperature, defaultTemperature),
			MaxOutputTokens: maxTokensOr(req.MaxTokens, defaultMaxTokens),
		},
	}
}

// geminiText extracts candidates[0].content.parts[0].text
func geminiText(cfg ProviderConfig, body []byte) (string, error) {
	var result geminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(result.Candidates) == 0 {
		return "", nil
	}

	candidate := result.Candidates[0]
	if candidate.FinishReason == "MAX_TOKENS" {
		logging.Warn("Response truncated due to max tokens",
			"provider", cfg.Kind,
			"model", cfg.Model)
	}
	if len(candidate.Content.Parts) == 0 {
		return "", nil
	}
	return candidate.Content.Parts[0].Text, nil
}
