package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/guc1/domain-agent/internal/metrics"
)

// Client talks to an OpenRouter-compatible chat completions API.
type Client struct {
	config *Config
	http   *http.Client
}

// NewClient validates the config and builds a client.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.SetDefaults()
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}, nil
}

// ChatParams describe one model call.
type ChatParams struct {
	// Agent labels the call for logging and metrics ("question", "creator-A", ...).
	Agent string

	Model       string
	Temperature float64
	System      string
	User        string

	// JSONMode requests a JSON object response where the model supports it.
	JSONMode bool
}

type chatRequest struct {
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature,omitempty"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// ChatText performs a single completion and returns the raw content.
func (c *Client) ChatText(ctx context.Context, p ChatParams) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if p.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: p.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: p.User})

	reqBody := chatRequest{
		Model:       p.Model,
		Temperature: p.Temperature,
		Messages:    messages,
	}
	if p.JSONMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ModelRequestDuration.WithLabelValues(p.Agent).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", newNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", newAPIError(resp.StatusCode, string(errBody))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", newAPIError(0, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", newAPIError(0, "no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// ChatJSON generates a structured output with parse/validation retries: when
// the model returns malformed or invalid JSON, the error is fed back into the
// prompt and the call repeated up to MaxRetries. Network and API errors are
// not retried.
func ChatJSON[T any](c *Client, ctx context.Context, p ChatParams, validate func(*T) error) (*T, error) {
	originalUser := p.User
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		content, err := c.ChatText(ctx, p)
		if err != nil {
			var modelErr *Error
			if isTerminal(err, &modelErr) {
				return nil, err
			}
			lastErr = err
			continue
		}

		content = cleanMarkdownFences(content)

		var result T
		if err := json.Unmarshal([]byte(content), &result); err != nil {
			lastErr = newParseError(content, err)
			p.User = fmt.Sprintf("%s\n\nPREVIOUS ATTEMPT FAILED:\nError: %v\n\nReturn valid JSON matching the exact structure requested.", originalUser, err)
			continue
		}

		if validate != nil {
			if err := validate(&result); err != nil {
				lastErr = newValidationError(err.Error(), err)
				p.User = fmt.Sprintf("%s\n\nPREVIOUS VALIDATION ERROR:\n%v\n\nFix the output to pass validation.", originalUser, err)
				continue
			}
		}
		return &result, nil
	}

	return nil, fmt.Errorf("model output unusable after %d attempts: %w", c.config.MaxRetries, lastErr)
}

func isTerminal(err error, target **Error) bool {
	if e, ok := err.(*Error); ok {
		*target = e
		return e.Type == ErrorTypeNetwork || e.Type == ErrorTypeAPI
	}
	return false
}

// cleanMarkdownFences strips ```json fences some models wrap around JSON.
func cleanMarkdownFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimSpace(strings.TrimPrefix(content, "```json"))
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimSpace(strings.TrimPrefix(content, "```"))
	}
	if strings.HasSuffix(content, "```") {
		content = strings.TrimSpace(strings.TrimSuffix(content, "```"))
	}
	return content
}
