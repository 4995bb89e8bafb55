package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/teachback/teachback-backend/internal/platform/apierr"
	"github.com/teachback/teachback-backend/internal/platform/envutil"
	"github.com/teachback/teachback-backend/internal/platform/logger"
)

// GenerateOptions carries per-call tuning. A nil Temperature leaves the
// parameter out of the request entirely; some models reject it.
type GenerateOptions struct {
	Temperature *float64
}

// Client is the language-model capability the extraction and conversation
// services depend on.
type Client interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries int
}

// NewClient builds a chat-completions client from the environment. The API
// key is injected via OPENAI_API_KEY and is never logged.
func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := strings.TrimRight(envutil.Str("OPENAI_BASE_URL", "https://api.openai.com"), "/")
	model := envutil.Str("OPENAI_MODEL", "gpt-4-turbo")
	timeoutSec := envutil.Int("OPENAI_TIMEOUT_SECONDS", 120)
	maxRetries := envutil.Int("OPENAI_MAX_RETRIES", 3)

	return &client{
		log:        log.With("service", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "system", Content: prompt}},
		Temperature: opts.Temperature,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return "", apierr.Provider(err)
			}
			c.log.Warn("Retrying OpenAI call", "attempt", attempt, "error", lastErr)
		}

		text, err := c.doChat(ctx, reqBody)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil || !isRetryableErr(err) {
			break
		}
	}
	return "", apierr.Provider(fmt.Errorf("openai chat completion: %w", lastErr))
}

func (c *client) doChat(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &httpError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decoding chat completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func sleepBackoff(ctx context.Context, attempt int) error {
	base := 500 * time.Millisecond
	d := base << (attempt - 1)
	d += time.Duration(rand.Int63n(int64(base)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
