package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ProviderAnthropic is the llm.provider value served by Anthropic.
const ProviderAnthropic = "anthropic"

const (
	anthropicVersion = "2023-06-01"
	defaultBaseURL   = "https://api.anthropic.com"
	defaultMaxTokens = 1000
)

type Anthropic struct {
	APIKey  string
	BaseURL string
	Model   string
	http    *resty.Client
}

func NewAnthropic(apiKey, baseURL, model string, timeout time.Duration) *Anthropic {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := resty.New().
		SetTimeout(timeout).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json")
	return &Anthropic{APIKey: apiKey, BaseURL: baseURL, Model: model, http: c}
}

func (a *Anthropic) Name() string { return ProviderAnthropic + ":" + a.Model }

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a single user turn to the Messages API and returns the
// concatenated text blocks of the reply.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	body := messagesRequest{
		Model:       a.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	}
	var (
		resp messagesResponse
		fail apiError
	)
	r, err := a.http.R().SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&fail).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	if r.IsError() {
		if fail.Error.Message != "" {
			return "", fmt.Errorf("anthropic messages: %s: %s", r.Status(), fail.Error.Message)
		}
		return "", fmt.Errorf("anthropic messages: %s; body: %s", r.Status(), abbreviate(r.String(), 500))
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic messages: empty reply")
	}
	return sb.String(), nil
}

// Ping issues the smallest possible completion.
func (a *Anthropic) Ping(ctx context.Context) error {
	_, err := a.Complete(ctx, Request{Prompt: "ping", MaxTokens: 1})
	return err
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
