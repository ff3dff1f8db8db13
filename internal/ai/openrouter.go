package ai

import (
	"context"
	"strings"
)

// OpenAI 兼容的 chat/completions 请求与响应

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) askOpenRouter(ctx context.Context, prompt string) (string, error) {
	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	req := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.APIKey).
		SetBody(body)
	if c.cfg.Referer != "" {
		req.SetHeader("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.SetHeader("X-Title", c.cfg.Title)
	}

	var result chatResponse
	resp, err := req.SetResult(&result).Post("/chat/completions")
	if err := classifyResponse(resp, err); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == nil {
		return "", newError(ErrEmptyResponse, resp.StatusCode(), nil)
	}
	content := strings.TrimSpace(*result.Choices[0].Message.Content)
	if content == "" {
		return "", newError(ErrEmptyResponse, resp.StatusCode(), nil)
	}
	return content, nil
}
