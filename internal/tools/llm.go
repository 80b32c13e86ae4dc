package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// LLMConfig selects the chat-completion provider. An API key shaped like an
// Anthropic key routes to the messages API; everything else uses the
// OpenAI-compatible chat completions endpoint, which also covers local
// runtimes behind a custom BaseURL.
type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// LLMClient is a minimal chat-completion client with per-call timeout and a
// single retry on transport failure.
type LLMClient struct {
	provider string
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
	logger   *log.Logger
}

// NewLLMClient builds a client from config. A client with no API key and no
// base URL is disabled; callers must check Enabled before use.
func NewLLMClient(cfg LLMConfig) *LLMClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	c := &LLMClient{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.New(log.Writer(), "[LLM] ", log.LstdFlags),
	}

	switch {
	case strings.HasPrefix(cfg.APIKey, "sk-ant-"):
		c.provider = "anthropic"
		c.baseURL = "https://api.anthropic.com/v1/messages"
		if c.model == "" {
			c.model = "claude-sonnet-4-20250514"
		}
	case cfg.APIKey != "" || cfg.BaseURL != "":
		c.provider = "openai"
		c.baseURL = "https://api.openai.com/v1/chat/completions"
		if c.model == "" {
			c.model = "gpt-4o-mini"
		}
	}
	if cfg.BaseURL != "" {
		c.baseURL = cfg.BaseURL
	}

	if c.provider != "" {
		c.logger.Printf("🤖 LLM client initialized (provider=%s model=%s)", c.provider, c.model)
	} else {
		c.logger.Printf("⚠️ No LLM provider configured, LLM tools disabled")
	}
	return c
}

// Enabled reports whether a provider is configured.
func (c *LLMClient) Enabled() bool { return c.provider != "" }

// Chat sends a single-turn prompt and returns the assistant text. Transport
// errors are retried once; API errors are not.
func (c *LLMClient) Chat(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("llm client not configured")
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second):
			}
		}

		var text string
		var err error
		if c.provider == "anthropic" {
			text, err = c.callAnthropic(ctx, prompt)
		} else {
			text, err = c.callOpenAI(ctx, prompt)
		}
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *LLMClient) callOpenAI(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens": 4096,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm api error %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty llm response")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *LLMClient) callAnthropic(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"model":      c.model,
		"max_tokens": 4096,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm api error %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("empty llm response")
	}
	return result.Content[0].Text, nil
}

// ExtractJSON strips markdown code fences and surrounding prose from an LLM
// reply, returning the outermost JSON object.
func ExtractJSON(s string) []byte {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return []byte(s[start : end+1])
	}
	return []byte(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
