package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/platelens/internal/vision"
)

// maxTokens comfortably covers the JSON reply (≈200 tokens) and the prose
// reply (≈150 tokens).
const maxTokens = 1024

type ClaudeAnalyzer struct {
	client *anthropic.Client
	model  string
	prompt string
}

// NewClaudeAnalyzer builds an analyzer for the Anthropic Messages API.
// opts are passed to the underlying client, e.g. anthropic.WithBaseURL.
func NewClaudeAnalyzer(apiKey, model, prompt string, opts ...anthropic.ClientOption) *ClaudeAnalyzer {
	return &ClaudeAnalyzer{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
		prompt: prompt,
	}
}

func (a *ClaudeAnalyzer) Analyze(ctx context.Context, r io.Reader, mimeType string) (*vision.AnalysisResult, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					base64.StdEncoding.EncodeToString(imageData),
				)),
				anthropic.NewTextMessageContent(a.prompt),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	return &vision.AnalysisResult{
		RawResponse: resp.GetFirstContentText(),
		Model:       a.model,
	}, nil
}

// normaliseMIME maps browser MIME types to the values the Anthropic API accepts.
// The Anthropic API accepts only jpeg, png, gif, and webp. Unknown types are
// coerced to jpeg, which is what the re-encoder produces anyway.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
