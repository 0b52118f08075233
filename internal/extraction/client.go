package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MinInputChars is the shortest text worth sending to the model
	MinInputChars = 20
	// MaxInputChars is where long articles are truncated
	MaxInputChars = 12000
)

// Config holds the chat completions settings
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxChars    int
	Retry       RetryPolicy
}

// DefaultConfig returns OpenAI GPT-4o settings with the default retry policy
func DefaultConfig() Config {
	return Config{
		Endpoint:    "https://api.openai.com/v1/chat/completions",
		Model:       "gpt-4o",
		Temperature: 0.1,
		Timeout:     60 * time.Second,
		MaxChars:    MaxInputChars,
		Retry:       DefaultRetryPolicy(),
	}
}

// Client calls an OpenAI-compatible chat completions endpoint
type Client struct {
	config Config
	http   *http.Client
}

var _ Extractor = (*Client)(nil)

// ChatRequest represents an OpenAI-compatible chat completion request
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatMessage represents a message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the expected response format
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatResponse represents an OpenAI-compatible chat completion response
type ChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewClient creates an LLM client; a missing API key is a setup error
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	defaults := DefaultConfig()
	if config.Endpoint == "" {
		config.Endpoint = defaults.Endpoint
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxChars <= 0 {
		config.MaxChars = defaults.MaxChars
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = defaults.Retry
	}

	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}, nil
}

// PrepareInput trims and bounds article text, rejecting text too short to extract from
func PrepareInput(text string, maxChars int) (string, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return "", ErrEmptyInput
	}
	length := utf8.RuneCountInString(cleaned)
	if length < MinInputChars {
		return "", fmt.Errorf("%w (%d chars)", ErrInputTooShort, length)
	}
	if maxChars > 0 && length > maxChars {
		log.Printf("Article truncated from %d to %d characters", length, maxChars)
		cleaned = string([]rune(cleaned)[:maxChars])
	}
	return cleaned, nil
}

// Extract sends the article to the model and validates the JSON it returns
func (c *Client) Extract(ctx context.Context, text string) (*Result, error) {
	cleaned, err := PrepareInput(text, c.config.MaxChars)
	if err != nil {
		return nil, err
	}

	req := ChatRequest{
		Model: c.config.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: cleaned},
		},
		Temperature:    c.config.Temperature,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	var result *Result
	err = c.config.Retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.sendChatRequest(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
		}

		parsed, err := Parse(resp.Choices[0].Message.Content)
		if err != nil {
			return err
		}
		parsed.InputTokens = resp.Usage.PromptTokens
		parsed.OutputTokens = resp.Usage.CompletionTokens
		parsed.Model = resp.Model
		if parsed.Model == "" {
			parsed.Model = c.config.Model
		}
		parsed.PromptVersion = PromptVersion
		result = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) sendChatRequest(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var retryAfter time.Duration
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &chatResp, nil
}
