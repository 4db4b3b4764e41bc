package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Image is the payload handed to a vision gateway.
type Image struct {
	Data      []byte
	MediaType string
}

// Gateway abstracts a vision-capable language model: one image plus system
// and user instructions in, generated text out.
type Gateway interface {
	GenerateVision(ctx context.Context, system, user string, img Image) (string, error)
}

const anthropicVersion = "2023-06-01"

// AnthropicGateway implements Gateway against the Anthropic Messages API.
type AnthropicGateway struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewAnthropicGateway(baseURL, apiKey, model string, maxTokens int, timeout time.Duration, log *zap.SugaredLogger) *AnthropicGateway {
	return &AnthropicGateway{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type messagesRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	System    string           `json:"system"`
	Messages  []messageParam   `json:"messages"`
}

type messageParam struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (g *AnthropicGateway) GenerateVision(ctx context.Context, system, user string, img Image) (string, error) {
	reqBody := messagesRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    system,
		Messages: []messageParam{
			{
				Role: "user",
				Content: []contentBlock{
					{
						Type: "image",
						Source: &imageSource{
							Type:      "base64",
							MediaType: img.MediaType,
							Data:      base64.StdEncoding.EncodeToString(img.Data),
						},
					},
					{
						Type: "text",
						Text: user,
					},
				},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result messagesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no text content in response, body: %s", string(body))
	}

	g.log.Debugw("anthropic response received",
		"model", g.model,
		"chars", text.Len(),
		"elapsed", time.Since(start),
	)
	return text.String(), nil
}
