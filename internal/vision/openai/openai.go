// Package openai talks to OpenAI-compatible chat completion endpoints such as
// OpenRouter and xAI.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/platelens/internal/vision"
)

const (
	OpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	GrokURL       = "https://api.x.ai/v1/chat/completions"
)

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content []part `json:"content"`
}

type part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type ChatAnalyzer struct {
	apiKey  string
	model   string
	prompt  string
	baseURL string
	// headers are sent with every request, e.g. OpenRouter's HTTP-Referer and X-Title.
	headers map[string]string
	client  *http.Client
}

func NewChatAnalyzer(baseURL, apiKey, model, prompt string, headers map[string]string) *ChatAnalyzer {
	return &ChatAnalyzer{
		apiKey:  apiKey,
		model:   model,
		prompt:  prompt,
		baseURL: baseURL,
		headers: headers,
		client:  &http.Client{},
	}
}

func (a *ChatAnalyzer) Analyze(ctx context.Context, r io.Reader, mimeType string) (*vision.AnalysisResult, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	body := request{
		Model: a.model,
		Messages: []message{{
			Role: "user",
			Content: []part{
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL(mimeType, imageData)}},
				{Type: "text", Text: a.prompt},
			},
		}},
		MaxTokens:   1024,
		Temperature: 0.3,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", a.model, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close chat completion response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, &vision.APIError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	var respBody response
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(respBody.Choices) == 0 {
		return nil, fmt.Errorf("empty response from %s", a.model)
	}

	return &vision.AnalysisResult{
		RawResponse: respBody.Choices[0].Message.Content,
		Model:       a.model,
	}, nil
}

func dataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
