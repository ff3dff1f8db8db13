// Package ai 第三方 chat-completion 接口客户端（OpenRouter / Gemini）
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// 默认配置
const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel   = "mistralai/mistral-7b-instruct:free"
	DefaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel       = "gemini-2.5-flash"
	DefaultTemperature       = 0.6
	DefaultSystemPrompt      = "You are a medical assistant. Answer briefly in simple Hinglish."
	DefaultTimeout           = 30 * time.Second
)

// Asker 自由文本问答能力
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Config 客户端配置
type Config struct {
	Provider     string // openrouter 或 gemini
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64 // 原样发送，0 是合法值；默认值由调用方给出（DefaultTemperature）
	MaxTokens    int     // 0 表示不限制
	SystemPrompt string
	Timeout      time.Duration
	RetryCount   int    // 默认 0，不重试
	Referer      string // OpenRouter HTTP-Referer
	Title        string // OpenRouter X-Title
}

// WithDefaults 补齐未设置的字段
func (c Config) WithDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderOpenRouter
	}
	if c.BaseURL == "" {
		if c.Provider == ProviderGemini {
			c.BaseURL = DefaultGeminiBaseURL
		} else {
			c.BaseURL = DefaultOpenRouterBaseURL
		}
	}
	if c.Model == "" {
		if c.Provider == ProviderGemini {
			c.Model = DefaultGeminiModel
		} else {
			c.Model = DefaultOpenRouterModel
		}
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Client chat-completion 客户端
type Client struct {
	cfg        Config
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建客户端；未配置 API Key 时仍可创建，Ask 会直接返回 ErrMissingCredential
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()
	if cfg.Provider != ProviderOpenRouter && cfg.Provider != ProviderGemini {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		cfg:        cfg,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Config 返回生效的配置
func (c *Client) Config() Config {
	return c.cfg
}

// Ask 发送一次问答请求
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", newError(ErrMissingCredential, 0, nil)
	}

	start := time.Now()
	var (
		content string
		err     error
	)
	switch c.cfg.Provider {
	case ProviderGemini:
		content, err = c.askGemini(ctx, prompt)
	default:
		content, err = c.askOpenRouter(ctx, prompt)
	}

	if err != nil {
		c.logger.Warn("AI request failed",
			zap.String("provider", c.cfg.Provider),
			zap.String("model", c.cfg.Model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}

	c.logger.Info("AI request succeeded",
		zap.String("provider", c.cfg.Provider),
		zap.String("model", c.cfg.Model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("content_length", len(content)),
	)
	return content, nil
}

// classifyResponse 将传输错误和状态码归类
func classifyResponse(resp *resty.Response, err error) error {
	if err != nil {
		status := 0
		if resp != nil && resp.RawResponse != nil {
			status = resp.StatusCode()
		}
		return newError(ErrRequestFailed, status, err)
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return newError(ErrQuotaExceeded, status, apiErrorMessage(resp))
	default:
		return newError(ErrRequestFailed, status, apiErrorMessage(resp))
	}
}

// apiErrorMessage 截取响应体作为错误原因
func apiErrorMessage(resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	if body == "" {
		return nil
	}
	if len(body) > 256 {
		body = body[:256]
	}
	return errors.New(body)
}
