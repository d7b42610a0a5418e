package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mandimind/internal/advisor"
	"mandimind/internal/logger"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2
	maxBackoff        = 8 * time.Second
)

// Config wires an OpenAI-compatible chat-completions endpoint.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

// Client calls a hosted model for negotiation advice. It satisfies
// advisor.Oracle; the engine treats every error here as a cue to use the
// deterministic path instead.
type Client struct {
	cfg   Config
	httpc *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.5
	}
	return &Client{cfg: cfg, httpc: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) Suggest(ctx context.Context, req advisor.OracleRequest) (advisor.OracleResult, error) {
	content, err := c.chat(ctx, systemPrompt, buildUserPrompt(req))
	if err != nil {
		return advisor.OracleResult{}, err
	}
	return parseSuggestion(content)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chat posts one chat-completions request, retrying 429/5xx with Retry-After
// or exponential backoff.
func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/")
	url = strings.TrimSuffix(url, "/chat/completions") + "/chat/completions"

	body, _ := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"temperature": c.cfg.Temperature,
	})

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return "", err
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				return "", derr
			}
			if len(r.Choices) == 0 {
				return "", fmt.Errorf("empty choices")
			}
			return r.Choices[0].Message.Content, nil
		}

		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		retryAfter := resp.Header.Get("Retry-After")
		resp.Body.Close()

		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		if !retryableStatus(resp.StatusCode) || attempt == c.cfg.MaxRetries {
			break
		}

		wait := backoff(attempt, retryAfter)
		logger.Debugf("oracle retry in %s after %v", wait, lastErr)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func backoff(attempt int, retryAfter string) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	wait := 800 * time.Millisecond << attempt
	if wait > maxBackoff {
		wait = maxBackoff
	}
	return wait
}
