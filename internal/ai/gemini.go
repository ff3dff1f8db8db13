package ai

import (
	"context"
	"fmt"
	"strings"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// geminiPromptText 系统提示词作为前缀拼入用户文本
func geminiPromptText(systemPrompt, prompt string) string {
	if systemPrompt == "" {
		return prompt
	}
	return systemPrompt + "\n\n" + prompt
}

func (c *Client) askGemini(ctx context.Context, prompt string) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: geminiPromptText(c.cfg.SystemPrompt, prompt)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxTokens,
		},
	}

	var result geminiResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.cfg.APIKey).
		SetBody(body).
		SetResult(&result).
		Post(fmt.Sprintf("/models/%s:generateContent", c.cfg.Model))
	if err := classifyResponse(resp, err); err != nil {
		return "", err
	}

	var sb strings.Builder
	if len(result.Candidates) > 0 {
		for _, part := range result.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", newError(ErrEmptyResponse, resp.StatusCode(), nil)
	}
	return content, nil
}
